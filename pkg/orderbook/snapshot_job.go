package orderbook

import (
	"context"
	"sync"

	"github.com/joripage/crossbook/pkg/logging"
	"go.uber.org/zap"
)

// snapshotWriter persists snapshots off the book's critical section. Only the
// newest pending snapshot is kept; older ones are superseded before they are
// written, so the store always converges on the latest state.
type snapshotWriter struct {
	persistence Persistence
	logger      *logging.Logger

	mu      sync.Mutex
	pending []Order
	dirty   bool

	wake      chan struct{}
	closing   chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newSnapshotWriter(p Persistence, logger *logging.Logger) *snapshotWriter {
	return &snapshotWriter{
		persistence: p,
		logger:      logger,
		wake:        make(chan struct{}, 1),
		closing:     make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// enqueue must be handed a snapshot the caller no longer mutates.
func (w *snapshotWriter) enqueue(snapshot []Order) {
	w.mu.Lock()
	w.pending = snapshot
	w.dirty = true
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *snapshotWriter) run() {
	defer close(w.done)
	for {
		select {
		case <-w.wake:
			w.flush()
		case <-w.closing:
			w.flush()
			return
		}
	}
}

func (w *snapshotWriter) flush() {
	w.mu.Lock()
	snapshot, dirty := w.pending, w.dirty
	w.pending, w.dirty = nil, false
	w.mu.Unlock()

	if !dirty {
		return
	}
	ctx := context.Background()
	if err := w.persistence.PersistActiveOrders(ctx, snapshot); err != nil {
		w.logger.Error(ctx, "async persist active orders", zap.Int("orders", len(snapshot)), zap.Error(err))
	}
}

func (w *snapshotWriter) close(ctx context.Context) error {
	w.closeOnce.Do(func() { close(w.closing) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
