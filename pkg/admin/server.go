// Package admin serves a small read-only HTTP surface for operators.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/joripage/crossbook/pkg/logging"
	"github.com/joripage/crossbook/pkg/oms/model"
	"github.com/joripage/crossbook/pkg/orderbook"
	"go.uber.org/zap"
)

type Config struct {
	Addr string `yaml:"addr"`
}

type BookReader interface {
	Top() orderbook.Depth
}

type OrderReader interface {
	GetOrder(orderID int64) (model.Order, error)
}

type TopOfBook struct {
	BestBid    *int64 `json:"best_bid"`
	BestAsk    *int64 `json:"best_ask"`
	Bids       int    `json:"bids"`
	Asks       int    `json:"asks"`
	StopOrders int    `json:"stop_orders"`
}

type Server struct {
	book   BookReader
	orders OrderReader
	router *mux.Router
	logger *logging.Logger
}

// NewServer wires the routes. orders may be nil, in which case order lookups
// answer 404.
func NewServer(book BookReader, orders OrderReader, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &Server{
		book:   book,
		orders: orders,
		router: mux.NewRouter(),
		logger: logger.Named("admin"),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestID)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/book/top", s.handleTop).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id:[0-9]+}", s.handleGetOrder).Methods(http.MethodGet)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "admin server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = logging.NewRequestID()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	d := s.book.Top()
	top := TopOfBook{Bids: d.Bids, Asks: d.Asks, StopOrders: d.StopOrders}
	if d.HasBid {
		top.BestBid = &d.BestBid
	}
	if d.HasAsk {
		top.BestAsk = &d.BestAsk
	}
	s.writeJSON(w, r, http.StatusOK, top)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid order id")
		return
	}
	if s.orders == nil {
		s.writeError(w, r, http.StatusNotFound, "order not found")
		return
	}

	order, err := s.orders.GetOrder(id)
	if err != nil {
		s.writeError(w, r, http.StatusNotFound, "order not found")
		return
	}
	s.writeJSON(w, r, http.StatusOK, order)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.writeJSON(w, r, status, map[string]string{"error": msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn(r.Context(), "write response", zap.Error(err))
	}
}
