package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/natededev/de-commerce/internal/domain"
	"github.com/natededev/de-commerce/internal/logging"
)

// Columns selected for every product read. price is read as text so the
// decimal survives without float rounding.
const selectColumns = `id::text, name, description, price::text, image, category, in_stock, stock_count, rating, review_count, created_at, updated_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logging.OrNop(logger).Named("product_repo")}
}

func (r *postgresRepo) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int, error) {
	where, args := filterClause(f)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM products`+where, args...).Scan(&total); err != nil {
		r.logger.Error("count products", zap.Error(err))
		return nil, 0, err
	}

	q := `SELECT ` + selectColumns + ` FROM products` + where +
		fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, q, append(args, f.Limit, f.Offset())...)
	if err != nil {
		r.logger.Error("list products", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	result := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	r.logger.Debug("listed products", zap.Int("count", len(result)), zap.Int("total", total))
	return result, total, nil
}

func filterClause(f domain.ProductFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Category != "" {
		add("lower(category) = lower($%d)", f.Category)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		add("(name ILIKE $%[1]d OR description ILIKE $%[1]d)", "%"+s+"%")
	}
	if f.MinPrice != nil {
		add("price >= $%d::numeric", f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		add("price <= $%d::numeric", f.MaxPrice.String())
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			r.logger.Error("get product", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (name, description, price, image, category, in_stock, stock_count, rating, review_count)
VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8, $9)
RETURNING ` + selectColumns
	created, err := scanProduct(r.pool.QueryRow(ctx, q,
		p.Name, p.Description, p.Price.String(), p.Image, p.Category, p.InStock, p.StockCount, p.Rating, p.ReviewCount,
	))
	if err != nil {
		r.logger.Error("create product", zap.String("name", p.Name), zap.Error(err))
		return nil, err
	}
	r.logger.Info("created product", zap.String("id", created.ID), zap.String("name", created.Name))
	return created, nil
}

func (r *postgresRepo) Update(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if _, err := uuid.Parse(p.ID); err != nil {
		return nil, domain.ErrNotFound
	}
	const q = `
UPDATE products
SET name = $2, description = $3, price = $4::numeric, image = $5, category = $6,
    in_stock = $7, stock_count = $8, rating = $9, review_count = $10, updated_at = now()
WHERE id = $1
RETURNING ` + selectColumns
	updated, err := scanProduct(r.pool.QueryRow(ctx, q,
		p.ID, p.Name, p.Description, p.Price.String(), p.Image, p.Category, p.InStock, p.StockCount, p.Rating, p.ReviewCount,
	))
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			r.logger.Error("update product", zap.String("id", p.ID), zap.Error(err))
		}
		return nil, err
	}
	return updated, nil
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}
	cmd, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("delete product", zap.String("id", id), zap.Error(err))
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) Upsert(ctx context.Context, p domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (name, description, price, image, category, in_stock, stock_count, rating, review_count)
VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8, $9)
ON CONFLICT (lower(name), lower(category)) DO UPDATE SET
    description = EXCLUDED.description,
    price = EXCLUDED.price,
    image = EXCLUDED.image,
    in_stock = EXCLUDED.in_stock,
    stock_count = EXCLUDED.stock_count,
    rating = COALESCE(EXCLUDED.rating, products.rating),
    review_count = EXCLUDED.review_count,
    updated_at = now()
RETURNING ` + selectColumns
	res, err := scanProduct(r.pool.QueryRow(ctx, q,
		p.Name, p.Description, p.Price.String(), p.Image, p.Category, p.InStock, p.StockCount, p.Rating, p.ReviewCount,
	))
	if err != nil {
		r.logger.Error("upsert product", zap.String("name", p.Name), zap.String("category", p.Category), zap.Error(err))
		return nil, err
	}
	r.logger.Debug("upserted product", zap.String("id", res.ID), zap.String("name", res.Name))
	return res, nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	var price string
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&price,
		&p.Image,
		&p.Category,
		&p.InStock,
		&p.StockCount,
		&p.Rating,
		&p.ReviewCount,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	p.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("decode price %q: %w", price, err)
	}
	return &p, nil
}
