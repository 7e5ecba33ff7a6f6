package notify

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/joripage/crossbook/pkg/orderbook"
	"github.com/nats-io/nats.go"
)

type jsonPublisher interface {
	PublishJSON(ctx context.Context, topic string, key string, v any, headers map[string]string) error
}

// KafkaNotifier publishes one Notification per trading call. The first
// affected id is the partition key so related fills stay ordered.
type KafkaNotifier struct {
	producer jsonPublisher
	topic    string
}

func NewKafkaNotifier(producer jsonPublisher, topic string) *KafkaNotifier {
	return &KafkaNotifier{producer: producer, topic: topic}
}

func (n *KafkaNotifier) Notify(ctx context.Context, ids []orderbook.OrderID) error {
	msg := NewNotification(ctx, ids)
	key := ""
	if len(ids) > 0 {
		key = strconv.FormatInt(int64(ids[0]), 10)
	}
	return n.producer.PublishJSON(ctx, n.topic, key, msg, map[string]string{"event_id": msg.EventID})
}

type asyncPublisher interface {
	PublishAsync(subj string, data []byte, opts ...nats.PubOpt) (nats.PubAckFuture, error)
}

// NATSNotifier publishes to a JetStream subject without waiting for the ack.
type NATSNotifier struct {
	js      asyncPublisher
	subject string
}

func NewNATSNotifier(js asyncPublisher, subject string) *NATSNotifier {
	return &NATSNotifier{js: js, subject: subject}
}

func (n *NATSNotifier) Notify(ctx context.Context, ids []orderbook.OrderID) error {
	msg := NewNotification(ctx, ids)
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = n.js.PublishAsync(n.subject, data, nats.MsgId(msg.EventID))
	return err
}
