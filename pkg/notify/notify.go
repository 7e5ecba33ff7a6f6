// Package notify delivers the ids of orders that traded to whoever owns
// them. Every sink implements orderbook.Notifier.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/joripage/crossbook/pkg/logging"
	"github.com/joripage/crossbook/pkg/orderbook"
	"go.uber.org/zap"
)

// Notification is the payload published by the stream sinks.
type Notification struct {
	EventID   string              `json:"event_id"`
	RequestID string              `json:"request_id,omitempty"`
	OrderIDs  []orderbook.OrderID `json:"order_ids"`
	Timestamp time.Time           `json:"timestamp"`
}

func NewNotification(ctx context.Context, ids []orderbook.OrderID) Notification {
	return Notification{
		EventID:   uuid.NewString(),
		RequestID: logging.RequestID(ctx),
		OrderIDs:  ids,
		Timestamp: time.Now().UTC(),
	}
}

// LogNotifier writes every notification to the log.
type LogNotifier struct {
	logger *logging.Logger
}

func NewLogNotifier(logger *logging.Logger) *LogNotifier {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &LogNotifier{logger: logger.Named("notify")}
}

func (n *LogNotifier) Notify(ctx context.Context, ids []orderbook.OrderID) error {
	raw := make([]int64, len(ids))
	for i, id := range ids {
		raw[i] = int64(id)
	}
	n.logger.Info(ctx, "orders traded", zap.Int64s("order_ids", raw))
	return nil
}

// Multi fans a notification out to every sink. All sinks are tried; their
// errors are joined.
type Multi []orderbook.Notifier

func (m Multi) Notify(ctx context.Context, ids []orderbook.OrderID) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, ids); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
