package authn

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natededev/de-commerce/internal/domain"
	tokenrepo "github.com/natededev/de-commerce/internal/repository/token"
)

type memoryTokens struct {
	mu      sync.Mutex
	revoked map[string]tokenrepo.Revoked
	purges  int
}

func (m *memoryTokens) Revoke(_ context.Context, tok tokenrepo.Revoked) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[tok.Hash] = tok
	return nil
}

func (m *memoryTokens) IsRevoked(_ context.Context, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.revoked[hash]
	return ok && tok.ExpiresAt.After(time.Now()), nil
}

func (m *memoryTokens) PurgeExpired(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purges++
	return 0, nil
}

func TestRevocationsHashTokens(t *testing.T) {
	ctx := context.Background()
	repo := &memoryTokens{revoked: map[string]tokenrepo.Revoked{}}
	rev := NewRevocations(repo, nil)

	exp := time.Now().Add(time.Hour)
	require.NoError(t, rev.Revoke(ctx, "raw-token", domain.Identity{UserID: "u1", ExpiresAt: exp}))

	for hash, tok := range repo.revoked {
		assert.NotEqual(t, "raw-token", hash)
		assert.Len(t, hash, 64)
		assert.Equal(t, "u1", tok.UserID)
		assert.True(t, exp.Equal(tok.ExpiresAt))
	}

	revoked, err := rev.Revoked(ctx, "raw-token")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = rev.Revoked(ctx, "other-token")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestPurgeLoopStopsWithContext(t *testing.T) {
	repo := &memoryTokens{revoked: map[string]tokenrepo.Revoked{}}
	rev := NewRevocations(repo, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rev.PurgeLoop(ctx, time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return repo.purges > 0
	}, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("purge loop did not stop")
	}
}
