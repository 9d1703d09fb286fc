package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/natededev/de-commerce/internal/config"
	"github.com/natededev/de-commerce/internal/db"
	"github.com/natededev/de-commerce/internal/logging"
	productrepo "github.com/natededev/de-commerce/internal/repository/product"
	userrepo "github.com/natededev/de-commerce/internal/repository/user"
	"github.com/natededev/de-commerce/internal/seed"
	productsvc "github.com/natededev/de-commerce/internal/service/product"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	products := productsvc.New(productrepo.NewPostgres(pool, logger))
	users := userrepo.NewPostgres(pool, logger)
	if err := seed.Apply(ctx, products, users, logger); err != nil {
		logger.Fatal("seed apply", zap.Error(err))
	}
}
