package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joripage/crossbook/config"
	"github.com/joripage/crossbook/pkg/admin"
	"github.com/joripage/crossbook/pkg/logging"
	"github.com/joripage/crossbook/pkg/notify"
	"github.com/joripage/crossbook/pkg/oms"
	"github.com/joripage/crossbook/pkg/oms/model"
	riskrule "github.com/joripage/crossbook/pkg/oms/risk_rule"
	"github.com/joripage/crossbook/pkg/orderbook"
	"github.com/joripage/crossbook/pkg/persistence"
	"go.uber.org/zap"
)

const defaultAdminAddr = ":8080"

// reportLogger is the order gateway used until a session layer is attached.
type reportLogger struct {
	logger *logging.Logger
}

func (g reportLogger) OnOrderReport(ctx context.Context, report model.Order) {
	g.logger.Debug(ctx, "order report",
		zap.Int64("order_id", report.OrderID),
		zap.String("status", string(report.Status)),
		zap.String("cum_qty", report.CumQuantity.String()),
		zap.String("leaves_qty", report.LeavesQuantity.String()),
	)
}

func main() {
	var configFile string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}

	logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel))
	defer func() {
		_ = logger.Sync()
	}()
	zap.ReplaceGlobals(logger.Zap())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := persistence.New(cfg.Persistence)
	if err != nil {
		logger.Fatal(ctx, "open persistence", zap.String("driver", cfg.Persistence.Driver), zap.Error(err))
	}

	notifier, closeNotifier, err := notify.New(cfg.Notification, logger)
	if err != nil {
		logger.Fatal(ctx, "open notification sink", zap.String("driver", cfg.Notification.Driver), zap.Error(err))
	}

	book := orderbook.NewOrderBook(&orderbook.OrderBookConfig{
		Persistence:  store,
		Notifier:     notifier,
		Logger:       logger,
		AsyncPersist: cfg.Book.AsyncPersist,
	})

	res, err := book.Initialize(ctx)
	if err != nil && !errors.Is(err, orderbook.ErrStorage) {
		logger.Fatal(ctx, "initialize book", zap.Error(err))
	}
	if err != nil {
		logger.Warn(ctx, "book initialized but snapshot write failed", zap.Error(err))
	}

	om := oms.NewOMS(book, &oms.OMSConfig{
		Instrument: cfg.Book.Instrument,
		Rules:      riskrule.NewRules(cfg.Risk),
		Gateway:    reportLogger{logger: logger.Named("report")},
		Logger:     logger,
	})
	restored := om.Restore(ctx)

	depth := book.Top()
	logger.Info(ctx, "book ready",
		zap.String("service", cfg.ServiceName),
		zap.String("symbol", cfg.Book.Instrument.Symbol),
		zap.Int("restored_orders", restored),
		zap.Int("settle_trades", len(res.Trades)),
		zap.Int("bid_orders", depth.Bids),
		zap.Int("ask_orders", depth.Asks),
		zap.Int("stop_orders", depth.StopOrders),
	)

	addr := cfg.Admin.Addr
	if addr == "" {
		addr = defaultAdminAddr
	}
	srv := admin.NewServer(book, om, logger)
	if err := srv.Start(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error(ctx, "admin server stopped", zap.Error(err))
	}

	logger.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := book.Close(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "flush book snapshot", zap.Error(err))
	}
	if err := closeNotifier(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "close notification sink", zap.Error(err))
	}
	if err := closeStore(); err != nil {
		logger.Error(shutdownCtx, "close persistence", zap.Error(err))
	}
}
