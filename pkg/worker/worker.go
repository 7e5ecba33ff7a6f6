// Package worker archives the trade notifications published by the book into
// the database.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	kafkawrapper "github.com/joripage/crossbook/pkg/kafka_wrapper"
	"github.com/joripage/crossbook/pkg/logging"
	"github.com/joripage/crossbook/pkg/notify"
	"github.com/joripage/crossbook/pkg/repo"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	natsFetchBatch = 10
	natsFetchWait  = 2 * time.Second
)

type Worker struct {
	notification repo.INotification
	logger       *logging.Logger
	now          func() time.Time
}

func NewWorker(r repo.IRepo, logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Worker{
		notification: r.Notification(),
		logger:       logger.Named("worker"),
		now:          time.Now,
	}
}

// HandleKafka matches kafkawrapper.ConsumerGroup.Run. A returned error makes
// the consumer retry the whole batch.
func (w *Worker) HandleKafka(ctx context.Context, msgs []kafkawrapper.Message) error {
	payloads := make([][]byte, len(msgs))
	for i, m := range msgs {
		payloads[i] = m.Value
	}
	return w.handle(ctx, payloads)
}

// StartNATS pulls from a durable JetStream consumer until ctx is done.
// Messages are acked once their batch is stored.
func (w *Worker) StartNATS(ctx context.Context, js nats.JetStreamContext, subject, durable string) error {
	sub, err := js.PullSubscribe(subject, durable)
	if err != nil {
		return err
	}
	defer func() {
		_ = sub.Unsubscribe()
	}()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		msgs, err := sub.Fetch(natsFetchBatch, nats.MaxWait(natsFetchWait))
		if err != nil {
			if !errors.Is(err, nats.ErrTimeout) && !errors.Is(err, context.DeadlineExceeded) {
				w.logger.Warn(ctx, "nats fetch", zap.Error(err))
			}
			continue
		}

		payloads := make([][]byte, len(msgs))
		for i, m := range msgs {
			payloads[i] = m.Data
		}
		if err := w.handle(ctx, payloads); err != nil {
			w.logger.Error(ctx, "store notifications", zap.Error(err))
			for _, m := range msgs {
				_ = m.Nak()
			}
			continue
		}
		for _, m := range msgs {
			_ = m.Ack()
		}
	}
}

// handle stores every decodable payload in one insert. Undecodable payloads
// are logged and dropped since retrying cannot fix them.
func (w *Worker) handle(ctx context.Context, payloads [][]byte) error {
	received := w.now().UTC()

	var records []*repo.NotificationRecord
	for _, p := range payloads {
		var n notify.Notification
		if err := json.Unmarshal(p, &n); err != nil {
			w.logger.Warn(ctx, "drop undecodable notification", zap.Error(err), zap.ByteString("payload", p))
			continue
		}
		records = append(records, toRecords(n, received)...)
	}
	if len(records) == 0 {
		return nil
	}
	return w.notification.BulkCreate(ctx, records)
}

func toRecords(n notify.Notification, received time.Time) []*repo.NotificationRecord {
	records := make([]*repo.NotificationRecord, 0, len(n.OrderIDs))
	for _, id := range n.OrderIDs {
		records = append(records, &repo.NotificationRecord{
			EventID:     n.EventID,
			OrderID:     int64(id),
			RequestID:   n.RequestID,
			PublishedAt: n.Timestamp,
			ReceivedAt:  received,
		})
	}
	return records
}
