package main

import (
	"context"
	"errors"
	"flag"
	"os/signal"
	"syscall"

	"github.com/joripage/crossbook/config"
	postgres_wrapper "github.com/joripage/crossbook/pkg/infra/postgres"
	kafkawrapper "github.com/joripage/crossbook/pkg/kafka_wrapper"
	"github.com/joripage/crossbook/pkg/logging"
	"github.com/joripage/crossbook/pkg/notify"
	"github.com/joripage/crossbook/pkg/repo"
	"github.com/joripage/crossbook/pkg/worker"
	"go.uber.org/zap"
)

const defaultDurable = "crossbook_archiver"

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

	if cfg.Persistence.Postgres == nil {
		logger.Fatal(ctx, "worker needs persistence.postgres for the notification archive")
	}
	db, err := postgres_wrapper.InitPostgresWithBackoff(cfg.Persistence.Postgres)
	if err != nil {
		logger.Fatal(ctx, "init db", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	w := worker.NewWorker(repo.NewRepo(db), logger)

	source := cfg.Worker.Source
	if source == "" {
		source = cfg.Notification.Driver
	}

	switch source {
	case notify.DriverKafka:
		consumerCfg := cfg.Worker.Kafka
		if len(consumerCfg.Brokers) == 0 {
			consumerCfg.Brokers = cfg.Notification.Kafka.Producer.Brokers
		}
		if consumerCfg.Topic == "" {
			consumerCfg.Topic = cfg.Notification.Kafka.Topic
		}
		if consumerCfg.GroupID == "" {
			consumerCfg.GroupID = defaultDurable
		}
		cg, err := kafkawrapper.NewConsumerGroup(consumerCfg)
		if err != nil {
			logger.Fatal(ctx, "init kafka consumer", zap.Error(err))
		}
		defer cg.Close()

		logger.Info(ctx, "archiving notifications from kafka", zap.String("topic", consumerCfg.Topic))
		err = cg.Run(ctx, w.HandleKafka)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error(ctx, "kafka consumer stopped", zap.Error(err))
		}
	case notify.DriverNATS:
		nc, js, err := notify.ConnectJetStream(cfg.Notification.NATS)
		if err != nil {
			logger.Fatal(ctx, "connect nats", zap.Error(err))
		}
		defer nc.Close()

		durable := cfg.Worker.Durable
		if durable == "" {
			durable = defaultDurable
		}
		logger.Info(ctx, "archiving notifications from nats", zap.String("subject", cfg.Notification.NATS.Subject))
		err = w.StartNATS(ctx, js, cfg.Notification.NATS.Subject, durable)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error(ctx, "nats consumer stopped", zap.Error(err))
		}
	default:
		logger.Fatal(ctx, "unsupported worker source", zap.String("source", source))
	}
}
