package token

import (
	"context"
	"testing"
	"time"

	"github.com/natededev/de-commerce/internal/db/dbtest"
)

func TestPostgres_RevokeAndPurge(t *testing.T) {
	ctx := context.Background()
	pool := dbtest.Pool(t)
	repo := NewPostgres(pool, nil)

	live := Revoked{Hash: "live", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}
	stale := Revoked{Hash: "stale", UserID: "u1", ExpiresAt: time.Now().Add(-time.Hour)}
	for _, tok := range []Revoked{live, stale, live} {
		if err := repo.Revoke(ctx, tok); err != nil {
			t.Fatalf("Revoke %s: %v", tok.Hash, err)
		}
	}

	revoked, err := repo.IsRevoked(ctx, "live")
	if err != nil || !revoked {
		t.Fatalf("expected live token revoked, got %v (err=%v)", revoked, err)
	}
	revoked, err = repo.IsRevoked(ctx, "stale")
	if err != nil || revoked {
		t.Fatalf("expected expired entry ignored, got %v (err=%v)", revoked, err)
	}
	revoked, err = repo.IsRevoked(ctx, "unknown")
	if err != nil || revoked {
		t.Fatalf("expected unknown token not revoked, got %v (err=%v)", revoked, err)
	}

	n, err := repo.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged row, got %d", n)
	}
}
