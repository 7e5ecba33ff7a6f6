// Package persistence implements the durable active-order snapshot the order
// book reloads at startup. Every store overwrites the full set on each call.
package persistence

import (
	"fmt"

	"github.com/joripage/crossbook/pkg/infra"
	postgres_wrapper "github.com/joripage/crossbook/pkg/infra/postgres"
	redis_wrapper "github.com/joripage/crossbook/pkg/infra/redis"
	"github.com/joripage/crossbook/pkg/orderbook"
	"gorm.io/gorm"
)

const (
	DriverNone     = "none"
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverPebble   = "pebble"
)

type Config struct {
	Driver   string `yaml:"driver"`
	FilePath string `yaml:"file_path"`

	Postgres *postgres_wrapper.PostgresConfig `yaml:"postgres"`

	// MigrationSource, when set, applies the schema before the SQL store opens.
	MigrationSource string `yaml:"migration_source"`

	Redis    *redis_wrapper.RedisConfig `yaml:"redis"`
	RedisKey string                     `yaml:"redis_key"`

	// PebbleDir is the directory of the embedded pebble database.
	PebbleDir string `yaml:"pebble_dir"`
}

// New opens the configured store. The returned close func is never nil.
func New(cfg Config) (orderbook.Persistence, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Driver {
	case "", DriverNone:
		return nil, noop, nil
	case DriverFile:
		s, err := NewFileStore(cfg.FilePath)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	case DriverPostgres:
		if cfg.Postgres == nil {
			return nil, noop, fmt.Errorf("persistence: postgres driver needs a postgres section")
		}
		var (
			db  *gorm.DB
			err error
		)
		if cfg.MigrationSource != "" {
			db, err = infra.GetMigrateTool().OpenAndMigrate(cfg.Postgres, cfg.MigrationSource)
		} else {
			db, err = postgres_wrapper.InitPostgresWithBackoff(cfg.Postgres)
		}
		if err != nil {
			return nil, noop, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, noop, err
		}
		return NewSQLStore(db), sqlDB.Close, nil
	case DriverRedis:
		if cfg.Redis == nil {
			return nil, noop, fmt.Errorf("persistence: redis driver needs a redis section")
		}
		rdb, err := redis_wrapper.InitRedisWithBackoff(cfg.Redis)
		if err != nil {
			return nil, noop, err
		}
		return NewRedisStore(rdb, cfg.RedisKey), rdb.Close, nil
	case DriverPebble:
		s, err := NewPebbleStore(cfg.PebbleDir)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	}
	return nil, noop, fmt.Errorf("unknown persistence driver %q", cfg.Driver)
}
