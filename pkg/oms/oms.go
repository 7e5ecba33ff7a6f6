package oms

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/joripage/crossbook/pkg/logging"
	"github.com/joripage/crossbook/pkg/oms/model"
	riskrule "github.com/joripage/crossbook/pkg/oms/risk_rule"
	"github.com/joripage/crossbook/pkg/orderbook"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type OMSConfig struct {
	Instrument Instrument
	Rules      []riskrule.RiskRule
	Gateway    OrderGateway
	Logger     *logging.Logger
}

// OMS sits between the session layer and the book: it checks risk, converts
// decimal requests into book units and turns book results into order reports.
type OMS struct {
	book       *orderbook.OrderBook
	instrument Instrument
	rules      []riskrule.RiskRule
	gateway    OrderGateway
	logger     *logging.Logger

	// mu serializes request handling so reports follow book order.
	mu             sync.Mutex
	orderIDMapping sync.Map

	totalMatchQty   atomic.Int64
	totalMatchCount atomic.Int64
}

func NewOMS(book *orderbook.OrderBook, cfg *OMSConfig) *OMS {
	if cfg == nil {
		cfg = &OMSConfig{}
	}
	s := &OMS{
		book:       book,
		instrument: cfg.Instrument,
		rules:      cfg.Rules,
		gateway:    cfg.Gateway,
		logger:     cfg.Logger,
	}
	if s.gateway == nil {
		s.gateway = nopGateway{}
	}
	if s.logger == nil {
		s.logger = logging.NewNopLogger()
	}
	s.logger = s.logger.Named("oms")
	return s
}

// Restore starts tracking orders the book reloaded from persistence. Their
// original quantity is unknown, so the remaining size stands in for it.
func (s *OMS) Restore(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders := s.book.ActiveOrders()
	for _, o := range orders {
		add := &model.AddOrder{
			OrderID:   int64(o.ID),
			Account:   o.Owner,
			Side:      model.OrderSideBuy,
			Type:      model.OrderTypeLimit,
			Price:     s.instrument.TicksToPrice(o.Price),
			StopPrice: s.instrument.TicksToPrice(o.StopPrice),
			Quantity:  s.instrument.LotsToQuantity(o.Size),
		}
		if o.Side == orderbook.ASK {
			add.Side = model.OrderSideSell
		}
		if o.Kind == orderbook.STOP {
			add.Type = model.OrderTypeStop
			add.Price = decimal.Zero
		} else {
			add.StopPrice = decimal.Zero
		}

		order := model.NewOrder(add, s.instrument.Symbol)
		order.Settle(add.Quantity, true)
		s.AddOrderToMap(order)
	}

	s.logger.Info(ctx, "restored orders from book", zap.Int("orders", len(orders)))
	return len(orders)
}

// AddOrder checks, converts and submits a new order. The returned report is
// valid whenever the error is nil or wraps orderbook.ErrStorage.
func (s *OMS) AddOrder(ctx context.Context, addOrder *model.AddOrder) (model.Order, error) {
	if logging.RequestID(ctx) == "" {
		ctx = logging.WithRequestID(ctx, logging.NewRequestID())
	}

	order := model.NewOrder(addOrder, s.instrument.Symbol)
	for _, rule := range s.rules {
		if err := rule.Check(addOrder); err != nil {
			return s.reject(ctx, order, fmt.Errorf("%w: %w", orderbook.ErrInvalidOrder, err))
		}
	}
	bookOrder, err := s.instrument.ToBookOrder(addOrder)
	if err != nil {
		return s.reject(ctx, order, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.GetOrderByOrderID(addOrder.OrderID); err == nil {
		return s.reject(ctx, order, fmt.Errorf("%w: %d", orderbook.ErrDuplicateID, addOrder.OrderID))
	}

	res, err := s.book.Submit(ctx, bookOrder)
	if err != nil && !errors.Is(err, orderbook.ErrStorage) {
		return s.reject(ctx, order, err)
	}

	s.AddOrderToMap(order)
	s.processResult(ctx, order, res)
	return *order, err
}

// CancelOrder cancels a live order for its account. Stops triggered by the
// cancel are reported like any other fills.
func (s *OMS) CancelOrder(ctx context.Context, cancelOrder *model.CancelOrder) (model.Order, error) {
	if logging.RequestID(ctx) == "" {
		ctx = logging.WithRequestID(ctx, logging.NewRequestID())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order, lookupErr := s.GetOrderByOrderID(cancelOrder.OrderID)
	if lookupErr == nil && !order.CanCancel() {
		return *order, fmt.Errorf("%w: %s", errInvalidOrderStatus, order.Status)
	}

	res, err := s.book.Cancel(ctx, cancelOrder.Account, orderbook.OrderID(cancelOrder.OrderID))
	if err != nil && !errors.Is(err, orderbook.ErrStorage) {
		return model.Order{}, err
	}

	if lookupErr != nil {
		order = &model.Order{OrderID: cancelOrder.OrderID, Account: cancelOrder.Account, Symbol: s.instrument.Symbol}
	}
	order.Cancel()
	order.Fills = nil
	s.DeleteOrderByOrderID(order.OrderID)
	s.gateway.OnOrderReport(ctx, *order)

	s.processResult(ctx, nil, res)
	return *order, err
}

func (s *OMS) reject(ctx context.Context, order *model.Order, err error) (model.Order, error) {
	order.Status = model.OrderStatusRejected
	order.LeavesQuantity = decimal.Zero
	s.logger.Info(ctx, "order rejected", zap.Int64("order_id", order.OrderID), zap.Error(err))
	s.gateway.OnOrderReport(ctx, *order)
	return *order, err
}

// processResult applies the fills of one book call to every tracked order it
// touched, settles their status against the book and reports them.
func (s *OMS) processResult(ctx context.Context, submitted *model.Order, res orderbook.Result) {
	touched := map[int64]*model.Order{}
	touch := func(order *model.Order) {
		if _, ok := touched[order.OrderID]; !ok {
			order.Fills = nil
			touched[order.OrderID] = order
		}
	}
	if submitted != nil {
		touch(submitted)
	}

	for _, tr := range res.Trades {
		fill := model.Fill{
			BidOrderID: int64(tr.BidOrderID),
			AskOrderID: int64(tr.AskOrderID),
			Price:      s.instrument.TicksToPrice(tr.Price),
			Quantity:   s.instrument.LotsToQuantity(tr.Size),
		}
		for _, id := range []int64{fill.BidOrderID, fill.AskOrderID} {
			order, err := s.GetOrderByOrderID(id)
			if err != nil {
				s.logger.Warn(ctx, "fill for untracked order", zap.Int64("order_id", id))
				continue
			}
			touch(order)
			order.ApplyFill(fill.Quantity, fill.Price)
			order.Fills = append(order.Fills, fill)
		}

		s.totalMatchQty.Add(tr.Size)
		if n := s.totalMatchCount.Add(1); n%10000 == 0 {
			s.logger.Info(ctx, "match stats", zap.Int64("matches", n), zap.Int64("lots", s.totalMatchQty.Load()))
		}
	}

	ids := make([]int64, 0, len(touched))
	for id := range touched {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		order := touched[id]
		live, err := s.book.Get(orderbook.OrderID(id))
		if err != nil {
			order.Settle(decimal.Zero, false)
		} else {
			order.Settle(s.instrument.LotsToQuantity(live.Size), true)
		}

		s.gateway.OnOrderReport(ctx, *order)
		if order.IsEnd() {
			s.DeleteOrderByOrderID(id)
		}
	}
}
