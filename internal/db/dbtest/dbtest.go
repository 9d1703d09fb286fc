// Package dbtest provides a migrated Postgres pool for integration tests.
//
// TEST_DB_DSN selects an existing database. Without it a postgres container is
// started with testcontainers-go; tests are skipped when neither is available.
package dbtest

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/natededev/de-commerce/internal/migrate"
)

var (
	containerOnce sync.Once
	containerDSN  string
	containerErr  error
)

// Pool returns a pool against a freshly truncated, migrated database.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}
	ctx := context.Background()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		dsn = startContainer(ctx)
		if dsn == "" {
			t.Skipf("no database available: %v", containerErr)
		}
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := migrate.Apply(ctx, pool, nil); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	Reset(ctx, t, pool)
	return pool
}

// Reset truncates every application table.
func Reset(ctx context.Context, t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if _, err := pool.Exec(ctx, `TRUNCATE cart_items, carts, products, users, revoked_tokens RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

// The container is shared by every test in the package binary and removed by
// the testcontainers reaper when the process exits.
func startContainer(ctx context.Context) string {
	containerOnce.Do(func() {
		startCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()

		req := testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "commerce",
				"POSTGRES_PASSWORD": "commerce",
				"POSTGRES_DB":       "commerce_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(90 * time.Second),
		}
		c, err := testcontainers.GenericContainer(startCtx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		if err != nil {
			containerErr = fmt.Errorf("start postgres container: %w", err)
			return
		}
		host, err := c.Host(startCtx)
		if err != nil {
			containerErr = fmt.Errorf("container host: %w", err)
			return
		}
		port, err := c.MappedPort(startCtx, "5432/tcp")
		if err != nil {
			containerErr = fmt.Errorf("container port: %w", err)
			return
		}
		containerDSN = fmt.Sprintf("postgres://commerce:commerce@%s:%s/commerce_test?sslmode=disable", host, port.Port())
	})
	return containerDSN
}
