package config

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
	"github.com/joripage/crossbook/pkg/admin"
	kafkawrapper "github.com/joripage/crossbook/pkg/kafka_wrapper"
	"github.com/joripage/crossbook/pkg/notify"
	"github.com/joripage/crossbook/pkg/oms"
	riskrule "github.com/joripage/crossbook/pkg/oms/risk_rule"
	"github.com/joripage/crossbook/pkg/persistence"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type BookConfig struct {
	Instrument oms.Instrument `yaml:"instrument"`
	// AsyncPersist writes snapshots from a background goroutine.
	AsyncPersist bool `yaml:"async_persist"`
}

type WorkerConfig struct {
	// Source is kafka or nats.
	Source string `yaml:"source"`
	// Kafka brokers and topic default to the notification producer's.
	Kafka   kafkawrapper.ConsumerConfig `yaml:"kafka"`
	Durable string                      `yaml:"durable"`
}

type AppConfig struct {
	ServiceName  string             `yaml:"service_name"`
	LogLevel     string             `yaml:"log_level"`
	Book         BookConfig         `yaml:"book"`
	Persistence  persistence.Config `yaml:"persistence"`
	Notification notify.Config      `yaml:"notification"`
	Risk         riskrule.Config    `yaml:"risk"`
	Admin        admin.Config       `yaml:"admin"`
	Worker       WorkerConfig       `yaml:"worker"`
}

// Load load config from file and environment variables. A .env file in the
// working directory, if present, is loaded first and never overrides
// variables that are already set.
func Load(filePath string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		zap.S().Warnf("load .env: %v", err)
	}

	if len(filePath) == 0 {
		filePath = os.Getenv("CONFIG_FILE")
	}

	fields := []interface{}{
		"func",
		"config.readFromFile",
		"filePath",
		filePath,
	}

	sugar := zap.S().With(fields...)

	sugar.Debug("Load config...")

	configBytes, err := os.ReadFile(filePath)
	if err != nil {
		sugar.Error("Failed to load config file")
		return nil, err
	}
	configBytes = []byte(os.ExpandEnv(string(configBytes)))

	cfg := &AppConfig{}

	err = yaml.Unmarshal(configBytes, cfg)
	if err != nil {
		sugar.Error("Failed to parse config file")
		return nil, err
	}

	zap.S().Debugf("config: %+v", cfg)

	return cfg, nil
}
