package main

import (
	"context"
	"os"

	"go.uber.org/zap"

	"hotelapi/pkg/config"
	"hotelapi/pkg/db"
	"hotelapi/pkg/logger"
)

func main() {
	cfg := config.Load()
	if err := logger.Initialize(cfg.LogLevel, zap.String("cmd", "migrate")); err != nil {
		panic(err)
	}
	log := logger.Log

	if cfg.MigrationsPath == "" {
		cfg.MigrationsPath = "file://migrations"
	}

	// Uses DIRECT_URL when set; poolers reject the advisory locks migrate takes.
	if err := db.MigrateConfig(cfg.MigrationsPath, cfg); err != nil {
		log.Error("migrate failed", zap.Error(err))
		os.Exit(1)
	}

	// The runtime connection (DATABASE_URL) must open too. DSNs stay out of the log.
	pool, err := db.Open(context.Background(), cfg)
	if err != nil {
		log.Error("runtime db open failed", zap.Error(err))
		os.Exit(1)
	}
	pool.Close()

	log.Info("migrations applied", zap.String("path", cfg.MigrationsPath))
}
