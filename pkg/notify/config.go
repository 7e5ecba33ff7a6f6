package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	kafkawrapper "github.com/joripage/crossbook/pkg/kafka_wrapper"
	"github.com/joripage/crossbook/pkg/logging"
	"github.com/joripage/crossbook/pkg/orderbook"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	DriverNone  = "none"
	DriverLog   = "log"
	DriverKafka = "kafka"
	DriverNATS  = "nats"
)

type KafkaConfig struct {
	Producer kafkawrapper.ProducerConfig `yaml:"producer"`
	Topic    string                      `yaml:"topic"`
}

type NATSConfig struct {
	URL     string `yaml:"url"`
	Stream  string `yaml:"stream"`
	Subject string `yaml:"subject"`
}

type Config struct {
	Driver string      `yaml:"driver"`
	Kafka  KafkaConfig `yaml:"kafka"`
	NATS   NATSConfig  `yaml:"nats"`
	// Log also writes every notification to the log next to a stream driver.
	Log bool `yaml:"log"`
}

// New builds the configured sink. The returned close func flushes and releases
// the underlying connection; it is never nil.
func New(cfg Config, logger *logging.Logger) (orderbook.Notifier, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	var (
		sink    orderbook.Notifier
		closeFn = noop
	)
	switch cfg.Driver {
	case "", DriverNone:
	case DriverLog:
		return NewLogNotifier(logger), noop, nil
	case DriverKafka:
		producer := kafkawrapper.NewProducer(cfg.Kafka.Producer)
		sink = NewKafkaNotifier(producer, cfg.Kafka.Topic)
		closeFn = producer.Close
	case DriverNATS:
		nc, js, err := ConnectJetStream(cfg.NATS)
		if err != nil {
			return nil, noop, err
		}
		sink = NewNATSNotifier(js, cfg.NATS.Subject)
		closeFn = func(ctx context.Context) error {
			select {
			case <-js.PublishAsyncComplete():
			case <-ctx.Done():
			}
			return nc.Drain()
		}
	default:
		return nil, noop, fmt.Errorf("unknown notification driver %q", cfg.Driver)
	}

	if cfg.Log {
		if sink == nil {
			return NewLogNotifier(logger), closeFn, nil
		}
		sink = Multi{sink, NewLogNotifier(logger)}
	}
	return sink, closeFn, nil
}

// ConnectJetStream dials NATS with backoff and makes sure the stream carrying
// cfg.Subject exists.
func ConnectJetStream(cfg NATSConfig) (*nats.Conn, nats.JetStreamContext, error) {
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}

	var nc *nats.Conn
	boff := backoff.NewExponentialBackOff()
	boff.MaxElapsedTime = time.Minute
	err := backoff.Retry(func() error {
		var err error
		nc, err = nats.Connect(url)
		if err != nil {
			zap.S().Warnf("connect nats %s: %v", url, err)
		}
		return err
	}, boff)
	if err != nil {
		return nil, nil, err
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, err
	}

	if cfg.Stream != "" {
		if _, err := js.StreamInfo(cfg.Stream); err != nil {
			_, err = js.AddStream(&nats.StreamConfig{
				Name:     cfg.Stream,
				Subjects: []string{cfg.Subject},
			})
			if err != nil {
				nc.Close()
				return nil, nil, fmt.Errorf("add stream %s: %w", cfg.Stream, err)
			}
		}
	}
	return nc, js, nil
}
