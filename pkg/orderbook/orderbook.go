// file: pkg/orderbook/orderbook.go

package orderbook

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/joripage/crossbook/pkg/logging"
	"go.uber.org/zap"
)

// Persistence stores the full set of active orders. PersistActiveOrders
// overwrites whatever was stored before.
type Persistence interface {
	LoadActiveOrders(ctx context.Context) ([]Order, error)
	PersistActiveOrders(ctx context.Context, orders []Order) error
}

// Notifier receives the ids of orders that traded during a call. Delivery is
// best effort; a failing notifier never fails the trading call.
type Notifier interface {
	Notify(ctx context.Context, ids []OrderID) error
}

type OrderBookConfig struct {
	Persistence Persistence
	Notifier    Notifier
	Logger      *logging.Logger

	// AsyncPersist hands snapshots to a background writer instead of writing
	// them inside the critical section.
	AsyncPersist bool

	Now func() time.Time
}

// OrderBook is a single-instrument book. Every mutating call runs under one
// mutex: store, both queues and the stop registry change together.
type OrderBook struct {
	mu sync.Mutex

	store *orderStore
	bids  *priceLevelQueue
	asks  *priceLevelQueue
	stops *stopRegistry
	seq   uint64

	persistence Persistence
	notifier    Notifier
	snapshots   *snapshotWriter
	logger      *logging.Logger
	now         func() time.Time
}

func NewOrderBook(cfg *OrderBookConfig) *OrderBook {
	if cfg == nil {
		cfg = &OrderBookConfig{}
	}

	ob := &OrderBook{
		store:       newOrderStore(),
		bids:        newPriceLevelQueue(BID),
		asks:        newPriceLevelQueue(ASK),
		stops:       newStopRegistry(),
		persistence: cfg.Persistence,
		notifier:    cfg.Notifier,
		logger:      cfg.Logger,
		now:         cfg.Now,
	}
	if ob.logger == nil {
		ob.logger = logging.NewNopLogger()
	}
	if ob.now == nil {
		ob.now = time.Now
	}
	if cfg.AsyncPersist && cfg.Persistence != nil {
		ob.snapshots = newSnapshotWriter(cfg.Persistence, ob.logger)
		go ob.snapshots.run()
	}

	return ob
}

// Initialize loads the persisted active orders, replays them through the same
// classification as live submissions, then settles the book. It must be
// called once, before any other mutation.
func (ob *OrderBook) Initialize(ctx context.Context) (Result, error) {
	var loaded []Order
	if ob.persistence != nil {
		var err error
		loaded, err = ob.persistence.LoadActiveOrders(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("load active orders: %w", err)
		}
	}

	ob.mu.Lock()
	if ob.store.len() > 0 {
		ob.mu.Unlock()
		return Result{}, errBookNotEmpty
	}

	for i := range loaded {
		order := loaded[i]
		if err := order.Validate(); err != nil {
			ob.logger.Warn(ctx, "skip persisted order", zap.Int64("order_id", int64(order.ID)), zap.Error(err))
			continue
		}
		if order.Kind == MARKET {
			ob.logger.Warn(ctx, "skip persisted market order", zap.Int64("order_id", int64(order.ID)))
			continue
		}
		if _, err := ob.store.get(order.ID); err == nil {
			ob.logger.Warn(ctx, "skip duplicate persisted order", zap.Int64("order_id", int64(order.ID)))
			continue
		}
		ob.admit(&order)
	}

	ex := newExecution()
	ob.settle(ctx, ex)
	res := Result{Trades: ex.trades, Affected: ex.affected.sorted()}
	ob.logger.Info(ctx, "order book initialized",
		zap.Int("loaded", len(loaded)),
		zap.Int("active", ob.store.len()),
		zap.Int("trades", len(ex.trades)))

	err := ob.persistLocked(ctx)
	ob.mu.Unlock()

	ob.notify(ctx, res.Affected)
	return res, err
}

// Submit validates order and dispatches it by kind. Rejected submissions
// leave the book untouched.
func (ob *OrderBook) Submit(ctx context.Context, order Order) (Result, error) {
	if err := order.Validate(); err != nil {
		return Result{}, err
	}

	ob.mu.Lock()
	if _, err := ob.store.get(order.ID); err == nil {
		ob.mu.Unlock()
		return Result{}, fmt.Errorf("%w: %d", ErrDuplicateID, order.ID)
	}

	o := &order
	if o.DateBucket == "" {
		o.DateBucket = DateBucketOf(ob.now())
	}
	requested := o.Size

	ex := newExecution()
	switch o.Kind {
	case LIMIT:
		ob.submitLimit(ctx, ex, o)
	case MARKET:
		ob.submitMarket(ctx, ex, o)
	case STOP:
		ob.submitStop(ctx, o)
	}
	ob.settle(ctx, ex)

	res := Result{
		OrderID:   o.ID,
		Affected:  ex.affected.sorted(),
		Trades:    ex.trades,
		Requested: requested,
		Discarded: ex.discarded[o.ID],
	}
	res.Filled = requested - o.Size - res.Discarded

	err := ob.persistLocked(ctx)
	ob.mu.Unlock()

	ob.notify(ctx, res.Affected)
	return res, err
}

// Cancel removes owner's order id from the book. Cancelling can move the best
// price, so stops are re-evaluated and any resulting trades are reported.
func (ob *OrderBook) Cancel(ctx context.Context, owner string, id OrderID) (Result, error) {
	ob.mu.Lock()
	order, err := ob.store.get(id)
	if err != nil {
		ob.mu.Unlock()
		return Result{}, fmt.Errorf("%w: %d", err, id)
	}
	if order.Owner != owner {
		ob.mu.Unlock()
		return Result{}, fmt.Errorf("%w: %d", ErrNotOwner, id)
	}

	switch order.Kind {
	case LIMIT:
		ob.queue(order.Side).remove(order)
	case STOP:
		ob.stops.remove(order.ID)
	}
	ob.store.remove(order.ID)
	ob.logger.Debug(ctx, "order canceled", zap.Int64("order_id", int64(id)), zap.String("owner", owner))

	ex := newExecution()
	ob.settle(ctx, ex)
	res := Result{OrderID: id, Affected: ex.affected.sorted(), Trades: ex.trades}

	err = ob.persistLocked(ctx)
	ob.mu.Unlock()

	ob.notify(ctx, res.Affected)
	return res, err
}

// Close waits for the background snapshot writer to flush, if there is one.
func (ob *OrderBook) Close(ctx context.Context) error {
	if ob.snapshots == nil {
		return nil
	}
	return ob.snapshots.close(ctx)
}

func (ob *OrderBook) submitLimit(ctx context.Context, ex *execution, order *Order) {
	ob.admit(order)
	ob.crossMatch(ctx, ex)
}

func (ob *OrderBook) submitMarket(ctx context.Context, ex *execution, order *Order) {
	ob.admit(order)
	ob.executeMarket(ctx, ex, order)
}

func (ob *OrderBook) submitStop(ctx context.Context, order *Order) {
	ob.admit(order)
	ob.logger.Debug(ctx, "stop order registered",
		zap.Int64("order_id", int64(order.ID)), zap.Int64("stop_price", order.StopPrice))
}

// admit records order in the store and places it in the structure its kind
// calls for. Market orders only live in the store while they execute.
func (ob *OrderBook) admit(order *Order) {
	ob.seq++
	order.Sequence = ob.seq
	_ = ob.store.insert(order)

	switch order.Kind {
	case LIMIT:
		ob.queue(order.Side).push(order)
	case STOP:
		ob.stops.add(order)
	}
}

// executeMarket consumes the opposite side until order is filled or the side
// runs dry. The unfilled remainder is discarded, never rested.
func (ob *OrderBook) executeMarket(ctx context.Context, ex *execution, order *Order) {
	counter := ob.queue(order.Side.Opposite())
	for order.Size > 0 && !counter.isEmpty() {
		best := counter.peekBest()
		size := min(order.Size, best.Size)
		ob.fill(ctx, ex, order, best, best.Price, size)
		if best.Size == 0 {
			counter.popBest()
			ob.store.remove(best.ID)
		}
	}

	if order.Size > 0 {
		ex.discarded[order.ID] += order.Size
		ob.logger.Debug(ctx, "market remainder discarded",
			zap.Int64("order_id", int64(order.ID)), zap.Int64("size", order.Size))
		order.Size = 0
	}
	ob.store.remove(order.ID)
}

// crossMatch trades resting limit orders while the best bid reaches the best
// ask. Every trade executes at the ask's limit price.
func (ob *OrderBook) crossMatch(ctx context.Context, ex *execution) {
	for {
		bid := ob.bids.peekBest()
		ask := ob.asks.peekBest()
		if bid == nil || ask == nil || bid.Price < ask.Price {
			return
		}

		size := min(bid.Size, ask.Size)
		ob.fill(ctx, ex, bid, ask, ask.Price, size)

		if bid.Size == 0 {
			ob.bids.popBest()
			ob.store.remove(bid.ID)
		}
		if ask.Size == 0 {
			ob.asks.popBest()
			ob.store.remove(ask.ID)
		}
	}
}

// settle brings the book to a state with no cross and no stop whose trigger
// holds. Triggered stops only take liquidity, so they cannot recreate a cross.
func (ob *OrderBook) settle(ctx context.Context, ex *execution) {
	ob.crossMatch(ctx, ex)

	for {
		bestBid, hasBid := ob.bids.bestPrice()
		bestAsk, hasAsk := ob.asks.bestPrice()
		stop := ob.stops.nextTriggered(bestBid, hasBid, bestAsk, hasAsk)
		if stop == nil {
			return
		}

		ob.logger.Info(ctx, "stop order triggered",
			zap.Int64("order_id", int64(stop.ID)),
			zap.String("side", string(stop.Side)),
			zap.Int64("stop_price", stop.StopPrice))
		stop.Kind = MARKET
		ob.executeMarket(ctx, ex, stop)
	}
}

func (ob *OrderBook) fill(ctx context.Context, ex *execution, a, b *Order, price, size int64) {
	a.Size -= size
	b.Size -= size

	trade := Trade{BidOrderID: a.ID, AskOrderID: b.ID, Price: price, Size: size}
	if a.Side == ASK {
		trade.BidOrderID, trade.AskOrderID = b.ID, a.ID
	}
	ex.trades = append(ex.trades, trade)
	ex.affected.add(a.ID, b.ID)

	ob.logger.Debug(ctx, "trade",
		zap.Int64("bid_order_id", int64(trade.BidOrderID)),
		zap.Int64("ask_order_id", int64(trade.AskOrderID)),
		zap.Int64("price", price),
		zap.Int64("size", size))
}

func (ob *OrderBook) queue(side Side) *priceLevelQueue {
	if side == BID {
		return ob.bids
	}
	return ob.asks
}

func (ob *OrderBook) persistLocked(ctx context.Context) error {
	if ob.persistence == nil {
		return nil
	}

	snapshot := ob.store.snapshot()
	if ob.snapshots != nil {
		ob.snapshots.enqueue(snapshot)
		return nil
	}

	if err := ob.persistence.PersistActiveOrders(ctx, snapshot); err != nil {
		ob.logger.Error(ctx, "persist active orders", zap.Int("orders", len(snapshot)), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return nil
}

func (ob *OrderBook) notify(ctx context.Context, ids []OrderID) {
	if ob.notifier == nil || len(ids) == 0 {
		return
	}
	if err := ob.notifier.Notify(ctx, ids); err != nil {
		ob.logger.Error(ctx, "notify affected orders", zap.Int("orders", len(ids)), zap.Error(err))
	}
}

type execution struct {
	trades    []Trade
	affected  affectedSet
	discarded map[OrderID]int64
}

func newExecution() *execution {
	return &execution{
		affected:  make(affectedSet),
		discarded: make(map[OrderID]int64),
	}
}
