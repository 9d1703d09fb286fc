package category

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/natededev/de-commerce/internal/logging"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logging.OrNop(logger).Named("category_repo")}
}

// List returns the distinct non-empty product categories, sorted by name.
func (r *postgresRepo) List(ctx context.Context) ([]string, error) {
	const q = `
SELECT DISTINCT category
FROM products
WHERE category <> ''
ORDER BY category ASC
`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		r.logger.Error("list categories", zap.Error(err))
		return nil, err
	}
	result, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = []string{}
	}
	return result, nil
}
