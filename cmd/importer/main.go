package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/natededev/de-commerce/internal/config"
	"github.com/natededev/de-commerce/internal/db"
	"github.com/natededev/de-commerce/internal/importer"
	"github.com/natededev/de-commerce/internal/logging"
	productrepo "github.com/natededev/de-commerce/internal/repository/product"
	productsvc "github.com/natededev/de-commerce/internal/service/product"
)

func main() {
	var filePath string
	pflag.StringVarP(&filePath, "file", "f", "", "Path to product CSV (name,description,price,category,image,stock)")
	pflag.String("config", "", "config file")
	pflag.Parse()

	if filePath == "" {
		pflag.Usage()
		os.Exit(2)
	}

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

	f, err := os.Open(filePath)
	if err != nil {
		logger.Fatal("open file", zap.Error(err))
	}
	defer f.Close()

	imp := importer.NewCSVImporter(f, productsvc.New(productrepo.NewPostgres(pool, logger)), logger)

	start := time.Now()
	count, err := imp.Run(ctx)
	if err != nil {
		logger.Fatal("import failed", zap.Int("imported", count), zap.Error(err))
	}

	fmt.Printf("Imported %d products in %s\n", count, time.Since(start).Truncate(time.Millisecond))
}
