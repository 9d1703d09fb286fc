package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/natededev/de-commerce/internal/logging"
)

//go:embed sql/*.sql
var migrationsFS embed.FS

// Apply runs all embedded migrations up against the pool's database.
func Apply(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	logger = logging.OrNop(logger)

	srcDriver, err := iofs.New(migrationsFS, "sql")
	if err != nil {
		return fmt.Errorf("init iofs: %w", err)
	}

	sqlDB, err := sql.Open("pgx", pool.Config().ConnString())
	if err != nil {
		return fmt.Errorf("open sql db: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sql db: %w", err)
	}

	dbDriver, err := pgx.WithInstance(sqlDB, &pgx.Config{})
	if err != nil {
		return fmt.Errorf("init db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", srcDriver, "pgx5", dbDriver)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	defer m.Close()

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Debug("schema up to date")
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("migrate up: %w (every version needs both .up.sql and .down.sql)", err)
	case err != nil:
		return fmt.Errorf("migrate up: %w", err)
	}

	version, dirty, verr := m.Version()
	if verr == nil {
		logger.Info("migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))
	}
	return nil
}
