package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/natededev/de-commerce/internal/cartclient"
	"github.com/natededev/de-commerce/internal/config"
	"github.com/natededev/de-commerce/internal/domain"
	"github.com/natededev/de-commerce/internal/localcart"
	"github.com/natededev/de-commerce/internal/logging"
	"github.com/natededev/de-commerce/internal/reconcile"
)

// app is the per-invocation wiring shared by every command.
type app struct {
	logger   *zap.Logger
	redis    *redis.Client
	sessions *localcart.SessionStore
	client   *cartclient.Client
	rec      *reconcile.Reconciler
}

func newApp(cfg config.ClientConfig) (*app, error) {
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	a := &app{logger: logger}
	var kv localcart.KV
	if cfg.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		kv = localcart.NewRedisKV(a.redis)
	} else {
		fkv, err := localcart.NewFileKV(cfg.StoreDir)
		if err != nil {
			return nil, fmt.Errorf("open cart store: %w", err)
		}
		kv = fkv
	}

	a.sessions = localcart.NewSessionStore(kv)
	a.client = cartclient.New(cartclient.Options{
		BaseURL:    cfg.APIBaseURL,
		Timeout:    cfg.RequestTimeout,
		MaxRetries: cfg.MaxRetries,
		Tokens:     a.sessions,
		Logger:     logger,
	})
	a.rec = reconcile.New(localcart.NewStore(kv, logger), a.client, a.client, logger)
	return a, nil
}

// start loads the displayed cart and enters the state the stored session
// implies. A session whose merge never completed is merged now; if that
// fails for any reason other than a rejected token the command runs
// anonymously and the merge is retried next time.
func (a *app) start(ctx context.Context) error {
	a.rec.Start(ctx)

	sess, ok, err := a.sessions.Load(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if sess.Merged {
		_, err = a.rec.Resume(ctx)
	} else {
		err = a.merge(ctx, sess)
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNotAuthenticated):
		a.logger.Info("session rejected, signing out", zap.String("email", sess.Email))
		if err := a.sessions.Clear(ctx); err != nil {
			return err
		}
		a.rec.Logout(ctx)
		return nil
	case !sess.Merged:
		a.logger.Warn("cart merge deferred", zap.String("email", sess.Email), zap.Error(err))
		return nil
	default:
		return err
	}
}

func (a *app) merge(ctx context.Context, sess localcart.Session) error {
	if _, err := a.rec.Reconcile(ctx); err != nil {
		return fmt.Errorf("merge cart: %w", err)
	}
	sess.Merged = true
	return a.sessions.Save(ctx, sess)
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	_ = a.logger.Sync()
}
