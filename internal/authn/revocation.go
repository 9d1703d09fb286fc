package authn

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"go.uber.org/zap"

	"github.com/natededev/de-commerce/internal/domain"
	"github.com/natededev/de-commerce/internal/logging"
	tokenrepo "github.com/natededev/de-commerce/internal/repository/token"
)

// Revocations is the sign-out denylist. Raw tokens are never stored.
type Revocations struct {
	repo   tokenrepo.Repository
	logger *zap.Logger
}

func NewRevocations(repo tokenrepo.Repository, logger *zap.Logger) *Revocations {
	return &Revocations{repo: repo, logger: logging.OrNop(logger).Named("revocations")}
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Revoke denies raw until its expiry. Tokens without an expiry are held for a
// day.
func (r *Revocations) Revoke(ctx context.Context, raw string, id domain.Identity) error {
	exp := id.ExpiresAt
	if exp.IsZero() {
		exp = time.Now().Add(24 * time.Hour)
	}
	return r.repo.Revoke(ctx, tokenrepo.Revoked{Hash: hashToken(raw), UserID: id.UserID, ExpiresAt: exp})
}

func (r *Revocations) Revoked(ctx context.Context, raw string) (bool, error) {
	return r.repo.IsRevoked(ctx, hashToken(raw))
}

// PurgeLoop drops expired entries every interval until ctx is done.
func (r *Revocations) PurgeLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.repo.PurgeExpired(ctx)
			if err != nil {
				r.logger.Warn("purge revoked tokens", zap.Error(err))
				continue
			}
			if n > 0 {
				r.logger.Info("purged revoked tokens", zap.Int64("count", n))
			}
		}
	}
}
