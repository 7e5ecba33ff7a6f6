package main

import (
	"flag"

	"github.com/joripage/crossbook/config"
	"github.com/joripage/crossbook/pkg/infra"
	"go.uber.org/zap"
)

func main() {
	var (
		configFile string
		source     string
	)
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.StringVar(&source, "source", infra.DefaultMigrationSource, "Migration source url")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(logger)
	defer func() {
		_ = logger.Sync()
	}()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}

	pg := cfg.Persistence.Postgres
	if pg == nil {
		zap.S().Fatal("persistence.postgres is not configured")
	}
	connStr := pg.MigrationConnURL
	if connStr == "" {
		connStr = pg.DataSource
	}

	mgTool := infra.GetMigrateTool()
	if err := mgTool.Migrate(source, connStr); err != nil {
		zap.S().Fatalf("migrate: %v", err)
	}
}
