package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/natededev/de-commerce/internal/authn"
	"github.com/natededev/de-commerce/internal/config"
	"github.com/natededev/de-commerce/internal/db"
	"github.com/natededev/de-commerce/internal/httpserver"
	"github.com/natededev/de-commerce/internal/logging"
	"github.com/natededev/de-commerce/internal/migrate"
	cartrepo "github.com/natededev/de-commerce/internal/repository/cart"
	categoryrepo "github.com/natededev/de-commerce/internal/repository/category"
	productrepo "github.com/natededev/de-commerce/internal/repository/product"
	tokenrepo "github.com/natededev/de-commerce/internal/repository/token"
	userrepo "github.com/natededev/de-commerce/internal/repository/user"
	cartsvc "github.com/natededev/de-commerce/internal/service/cart"
	productsvc "github.com/natededev/de-commerce/internal/service/product"
	usersvc "github.com/natededev/de-commerce/internal/service/user"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.Named("api")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Fatal("connect to db", zap.Error(err))
	}
	defer dbpool.Close()

	if err := migrate.Apply(ctx, dbpool, logger); err != nil {
		logger.Fatal("apply migrations", zap.Error(err))
	}

	verifier, err := authn.NewVerifier(ctx, cfg.JWTSecret, cfg.JWKSURL, cfg.JWTIssuer)
	if err != nil {
		logger.Fatal("init token verifier", zap.Error(err))
	}
	signer, err := authn.NewSigner(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL)
	if err != nil {
		logger.Fatal("init token signer", zap.Error(err))
	}

	revocations := authn.NewRevocations(tokenrepo.NewPostgres(dbpool, logger), logger)
	go revocations.PurgeLoop(ctx, time.Hour)

	productRepo := productrepo.NewPostgres(dbpool, logger)
	cartRepo := cartrepo.NewPostgres(dbpool, logger)
	userRepo := userrepo.NewPostgres(dbpool, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		CartSvc:     cartsvc.New(cartRepo, productRepo, logger),
		ProductSvc:  productsvc.New(productRepo),
		UserSvc:     usersvc.New(userRepo, signer),
		CategorySvc: categoryrepo.NewPostgres(dbpool, logger),
		Verifier:    verifier,
		Revocations: revocations,
		CORSOrigins: cfg.CORSAllowedOrigins,
	})
	if err != nil {
		logger.Fatal("init server", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}
