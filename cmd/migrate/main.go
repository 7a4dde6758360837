package main

import (
	"flag"
	"os"

	"go.uber.org/zap"

	"github.com/ivankudzin/plutonic/backend/internal/config"
	"github.com/ivankudzin/plutonic/backend/internal/infra/logger"
	pgrepo "github.com/ivankudzin/plutonic/backend/internal/repo/postgres"
)

func main() {
	steps := flag.Int("steps", 0, "migrations to apply; 0 means all, negative rolls back")
	flag.Parse()

	cfgPath := os.Getenv("APP_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = log.Sync()
	}()

	if err := pgrepo.Migrate(cfg.Postgres.DSN, *steps); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	version, dirty, err := pgrepo.MigrationVersion(cfg.Postgres.DSN)
	if err != nil {
		log.Fatal("read migration version", zap.Error(err))
	}
	log.Info("migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))
}
