package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/natededev/de-commerce/internal/config"
	"github.com/natededev/de-commerce/internal/db"
	"github.com/natededev/de-commerce/internal/logging"
	"github.com/natededev/de-commerce/internal/migrate"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.Named("migrate")

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	if err := migrate.Apply(ctx, pool, logger); err != nil {
		logger.Fatal("apply migrations", zap.Error(err))
	}

	logger.Info("migrations applied")
}
