package token

import (
	"context"
	"time"
)

// Revoked is a signed-out access token, stored by hash until it would have
// expired anyway.
type Revoked struct {
	Hash      string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type Repository interface {
	Revoke(ctx context.Context, token Revoked) error
	IsRevoked(ctx context.Context, hash string) (bool, error)
	PurgeExpired(ctx context.Context) (int64, error)
}
