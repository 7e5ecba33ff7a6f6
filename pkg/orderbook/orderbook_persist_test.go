package orderbook

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

type memPersistence struct {
	mu        sync.Mutex
	loaded    []Order
	snapshots [][]Order
	loadErr   error
	failWrite bool
}

func (m *memPersistence) LoadActiveOrders(ctx context.Context) ([]Order, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.loaded, nil
}

func (m *memPersistence) PersistActiveOrders(ctx context.Context, orders []Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return errors.New("disk full")
	}
	m.snapshots = append(m.snapshots, orders)
	return nil
}

func (m *memPersistence) last() []Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.snapshots) == 0 {
		return nil
	}
	return m.snapshots[len(m.snapshots)-1]
}

type recordingNotifier struct {
	calls [][]OrderID
	err   error
}

func (n *recordingNotifier) Notify(ctx context.Context, ids []OrderID) error {
	n.calls = append(n.calls, ids)
	return n.err
}

func TestPersistAfterEveryMutation(t *testing.T) {
	p := &memPersistence{}
	ob := NewOrderBook(&OrderBookConfig{Persistence: p})

	mustSubmit(t, ob, limit(1, BID, 100, 10))
	mustSubmit(t, ob, stop(2, ASK, 90, 5))
	mustSubmit(t, ob, limit(3, ASK, 100, 4))
	if _, err := ob.Cancel(ctxBG, "user-2", 2); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if len(p.snapshots) != 4 {
		t.Fatalf("expected 4 snapshots, got %d", len(p.snapshots))
	}
	if got := p.snapshots[1]; len(got) != 2 || got[0].ID != 1 || got[1].ID != 2 {
		t.Errorf("snapshot should list orders by sequence, got %+v", got)
	}
	last := p.last()
	if len(last) != 1 || last[0].ID != 1 || last[0].Size != 6 {
		t.Errorf("expected only bid 1 with 6 remaining, got %+v", last)
	}
}

func TestRejectedSubmissionIsNotPersisted(t *testing.T) {
	p := &memPersistence{}
	ob := NewOrderBook(&OrderBookConfig{Persistence: p})

	if _, err := ob.Submit(ctxBG, limit(1, BID, 100, -1)); !errors.Is(err, ErrInvalidOrder) {
		t.Fatalf("expected ErrInvalidOrder, got %v", err)
	}
	if _, err := ob.Cancel(ctxBG, "user-1", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(p.snapshots) != 0 {
		t.Errorf("rejected calls wrote %d snapshots", len(p.snapshots))
	}
}

func TestStorageErrorKeepsResult(t *testing.T) {
	p := &memPersistence{failWrite: true}
	ob := NewOrderBook(&OrderBookConfig{Persistence: p})

	_, err := ob.Submit(ctxBG, limit(1, BID, 100, 10))
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	res, err := ob.Submit(ctxBG, limit(2, ASK, 100, 10))
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	if len(res.Trades) != 1 || !sameIDs(res.Affected, 1, 2) {
		t.Errorf("trade must stand despite the storage failure, got %+v", res)
	}
	if len(ob.ActiveOrders()) != 0 {
		t.Errorf("in-memory book is authoritative, got %+v", ob.ActiveOrders())
	}
}

func TestDateBucketStamped(t *testing.T) {
	now := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)
	p := &memPersistence{}
	ob := NewOrderBook(&OrderBookConfig{Persistence: p, Now: func() time.Time { return now }})

	mustSubmit(t, ob, limit(1, BID, 100, 10))
	o := limit(2, BID, 99, 10)
	o.DateBucket = "112023"
	mustSubmit(t, ob, o)

	last := p.last()
	if last[0].DateBucket != "032024" {
		t.Errorf("expected bucket 032024, got %q", last[0].DateBucket)
	}
	if last[1].DateBucket != "112023" {
		t.Errorf("caller bucket must be kept, got %q", last[1].DateBucket)
	}
}

func TestInitializeReplaysSnapshot(t *testing.T) {
	p := &memPersistence{loaded: []Order{
		limit(7, ASK, 105, 3),
		limit(3, BID, 99, 2),
		stop(5, BID, 120, 1),
		limit(4, ASK, 105, 6),
	}}
	ob := NewOrderBook(&OrderBookConfig{Persistence: p})

	res, err := ob.Initialize(ctxBG)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if len(res.Affected) != 0 {
		t.Errorf("nothing should trade, got %+v", res)
	}

	orders := ob.ActiveOrders()
	want := []OrderID{7, 3, 5, 4}
	if len(orders) != len(want) {
		t.Fatalf("expected %d orders, got %+v", len(want), orders)
	}
	for i, id := range want {
		if orders[i].ID != id {
			t.Errorf("position %d: expected %d, got %d", i, id, orders[i].ID)
		}
	}

	// replay order decides time priority at 105
	res = mustSubmit(t, ob, limit(10, BID, 105, 4))
	if len(res.Trades) != 2 || res.Trades[0].AskOrderID != 7 || res.Trades[1].AskOrderID != 4 {
		t.Errorf("expected fills against 7 then 4, got %+v", res.Trades)
	}
}

func TestInitializeSettlesLoadedBook(t *testing.T) {
	p := &memPersistence{loaded: []Order{
		limit(1, BID, 100, 5),
		limit(2, ASK, 99, 3),
		stop(3, ASK, 100, 1),
		market(4, BID, 10),
		limit(5, ASK, 0, 3),
		limit(1, ASK, 120, 1),
	}}
	n := &recordingNotifier{}
	ob := NewOrderBook(&OrderBookConfig{Persistence: p, Notifier: n})

	res, err := ob.Initialize(ctxBG)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if len(res.Trades) != 2 {
		t.Fatalf("expected cross and stop trades, got %+v", res.Trades)
	}
	if res.Trades[0].Price != 99 || res.Trades[0].Size != 3 {
		t.Errorf("expected 3 @ 99, got %+v", res.Trades[0])
	}
	if res.Trades[1].Price != 100 || res.Trades[1].Size != 1 {
		t.Errorf("expected stop 1 @ 100, got %+v", res.Trades[1])
	}
	if !sameIDs(res.Affected, 1, 2, 3) {
		t.Errorf("unexpected affected %v", res.Affected)
	}
	if len(n.calls) != 1 || !sameIDs(n.calls[0], 1, 2, 3) {
		t.Errorf("expected one notification, got %v", n.calls)
	}

	last := p.last()
	if len(last) != 1 || last[0].ID != 1 || last[0].Size != 1 {
		t.Errorf("expected bid 1 with 1 remaining, got %+v", last)
	}

	if _, err := ob.Initialize(ctxBG); !errors.Is(err, errBookNotEmpty) {
		t.Errorf("second initialize: expected errBookNotEmpty, got %v", err)
	}
}

func TestInitializeLoadError(t *testing.T) {
	boom := errors.New("connection refused")
	ob := NewOrderBook(&OrderBookConfig{Persistence: &memPersistence{loadErr: boom}})

	if _, err := ob.Initialize(ctxBG); !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}
}

func TestNotifierReceivesAffectedIDs(t *testing.T) {
	n := &recordingNotifier{}
	ob := NewOrderBook(&OrderBookConfig{Notifier: n})

	mustSubmit(t, ob, limit(1, BID, 100, 10))
	mustSubmit(t, ob, limit(2, BID, 100, 10))
	mustSubmit(t, ob, limit(3, ASK, 100, 15))

	if len(n.calls) != 1 {
		t.Fatalf("only trading calls notify, got %v", n.calls)
	}
	if !sameIDs(n.calls[0], 1, 2, 3) {
		t.Errorf("expected [1 2 3], got %v", n.calls[0])
	}
}

func TestNotifierErrorIsNotFatal(t *testing.T) {
	n := &recordingNotifier{err: errors.New("broker down")}
	ob := NewOrderBook(&OrderBookConfig{Notifier: n})

	mustSubmit(t, ob, limit(1, BID, 100, 10))
	res, err := ob.Submit(ctxBG, limit(2, ASK, 100, 10))
	if err != nil {
		t.Fatalf("notifier failure leaked: %v", err)
	}
	if len(res.Trades) != 1 || len(n.calls) != 1 {
		t.Errorf("expected trade and notification attempt, got %+v %v", res, n.calls)
	}
}

func TestAsyncPersistFlushesOnClose(t *testing.T) {
	p := &memPersistence{}
	ob := NewOrderBook(&OrderBookConfig{Persistence: p, AsyncPersist: true})

	for i := 1; i <= 50; i++ {
		side := BID
		if i%3 == 0 {
			side = ASK
		}
		mustSubmit(t, ob, limit(OrderID(i), side, int64(90+i%7), 5))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ob.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := ob.Close(ctx); err != nil {
		t.Fatalf("second close: %v", err)
	}

	if got, want := p.last(), ob.ActiveOrders(); !reflect.DeepEqual(got, want) {
		t.Errorf("last snapshot differs from book:\ngot  %+v\nwant %+v", got, want)
	}
}
