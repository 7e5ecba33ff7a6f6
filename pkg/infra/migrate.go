package infra

import (
	"errors"
	"fmt"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	postgres_wrapper "github.com/joripage/crossbook/pkg/infra/postgres"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultMigrationSource is where cmd/migrate and the server look for the
// active-order schema.
const DefaultMigrationSource = "file://migration/sql"

// IMigrateTool tool to migrate schema and data.
type IMigrateTool interface {
	// OpenAndMigrate connects with backoff, then brings the schema up to date.
	OpenAndMigrate(cfg *postgres_wrapper.PostgresConfig, source string) (*gorm.DB, error)

	// Migrate from current version to latest version.
	Migrate(source string, connStr string) error
}

type migrateTool struct {
	mu sync.Mutex
}

var once sync.Once         // nolint
var singleton IMigrateTool // nolint

// GetMigrateTool get singleton instance for migrate tool
func GetMigrateTool() IMigrateTool { // nolint
	once.Do(func() {
		singleton = &migrateTool{}
	})
	return singleton
}

// Migrate applies pending up migrations. Concurrent callers are serialized.
func (mt *migrateTool) Migrate(source string, connStr string) error {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	zap.S().Infof("migrating from %s", source)

	mg, err := migrate.New(source, connStr)
	if err != nil {
		return fmt.Errorf("create migration: %w", err)
	}
	defer mg.Close()

	version, dirty, err := mg.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return err
	}

	// a dirty version failed half way; step back and apply it again
	if dirty {
		zap.S().Warnf("migration version %d is dirty, forcing %d", version, int(version)-1)
		if err := mg.Force(int(version) - 1); err != nil {
			return err
		}
	}

	if err := mg.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	zap.S().Info("migration done")
	return nil
}

func (mt *migrateTool) OpenAndMigrate(cfg *postgres_wrapper.PostgresConfig, source string) (*gorm.DB, error) {
	db, err := postgres_wrapper.InitPostgresWithBackoff(cfg)
	if err != nil {
		return nil, err
	}

	connStr := cfg.MigrationConnURL
	if connStr == "" {
		connStr = cfg.DataSource
	}
	if err := mt.Migrate(source, connStr); err != nil {
		return nil, err
	}
	return db, nil
}
