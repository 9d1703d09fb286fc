package token

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/natededev/de-commerce/internal/logging"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logging.OrNop(logger).Named("token_repo")}
}

// Revoke records the token. Revoking twice is a no-op.
func (r *postgresRepo) Revoke(ctx context.Context, token Revoked) error {
	const q = `
INSERT INTO revoked_tokens (token_hash, user_id, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (token_hash) DO NOTHING
`
	if _, err := r.pool.Exec(ctx, q, token.Hash, token.UserID, token.ExpiresAt); err != nil {
		r.logger.Error("revoke token", zap.String("user_id", token.UserID), zap.Error(err))
		return err
	}
	return nil
}

func (r *postgresRepo) IsRevoked(ctx context.Context, hash string) (bool, error) {
	const q = `
SELECT EXISTS (
    SELECT 1 FROM revoked_tokens WHERE token_hash = $1 AND expires_at > now()
)
`
	var revoked bool
	if err := r.pool.QueryRow(ctx, q, hash).Scan(&revoked); err != nil {
		return false, err
	}
	return revoked, nil
}

// PurgeExpired drops entries whose tokens can no longer verify.
func (r *postgresRepo) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM revoked_tokens WHERE expires_at <= now()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
