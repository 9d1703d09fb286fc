package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/natededev/de-commerce/internal/domain"
	"github.com/natededev/de-commerce/internal/logging"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logging.OrNop(logger).Named("cart_repo")}
}

func (r *postgresRepo) GetOrCreateActive(ctx context.Context, userID string) (string, error) {
	var cartID string
	if err := r.pool.QueryRow(ctx, `SELECT get_or_create_active_cart($1)::text`, userID).Scan(&cartID); err != nil {
		r.logger.Error("get or create cart", zap.String("user_id", userID), zap.Error(err))
		return "", err
	}
	return cartID, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, cartID string) (*domain.Cart, error) {
	if _, err := uuid.Parse(cartID); err != nil {
		return nil, domain.ErrNotFound
	}
	const cartQuery = `
SELECT id::text, user_id, status, created_at, updated_at
FROM carts
WHERE id = $1
`
	var cart domain.Cart
	err := r.pool.QueryRow(ctx, cartQuery, cartID).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.Status,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	const linesQuery = `
SELECT ci.id::text, ci.cart_id::text, ci.product_id::text, ci.quantity, ci.created_at, ci.updated_at,
       p.id::text, p.name, p.description, p.price::text, p.image, p.category, p.in_stock, p.stock_count,
       p.rating, p.review_count, p.created_at, p.updated_at
FROM cart_items ci
JOIN products p ON p.id = ci.product_id
WHERE ci.cart_id = $1
ORDER BY ci.created_at ASC, ci.id
`
	rows, err := r.pool.Query(ctx, linesQuery, cart.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := []domain.CartLine{}
	for rows.Next() {
		var line domain.CartLine
		var price string
		if err := rows.Scan(
			&line.ID,
			&line.CartID,
			&line.ProductID,
			&line.Quantity,
			&line.CreatedAt,
			&line.UpdatedAt,
			&line.Product.ID,
			&line.Product.Name,
			&line.Product.Description,
			&price,
			&line.Product.Image,
			&line.Product.Category,
			&line.Product.InStock,
			&line.Product.StockCount,
			&line.Product.Rating,
			&line.Product.ReviewCount,
			&line.Product.CreatedAt,
			&line.Product.UpdatedAt,
		); err != nil {
			return nil, err
		}
		line.Product.Price, err = decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("decode price %q: %w", price, err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	cart.Lines = lines
	out := cart.Recalculated()
	return &out, nil
}

func (r *postgresRepo) VerifyOwnership(ctx context.Context, cartID, userID string) error {
	if _, err := uuid.Parse(cartID); err != nil {
		return domain.ErrOwnership
	}
	var owned bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM carts WHERE id = $1 AND user_id = $2)`, cartID, userID).Scan(&owned)
	if err != nil {
		return err
	}
	if !owned {
		r.logger.Warn("cart ownership rejected", zap.String("cart_id", cartID), zap.String("user_id", userID))
		return domain.ErrOwnership
	}
	return nil
}

func (r *postgresRepo) LineQuantity(ctx context.Context, cartID, productID string) (int, error) {
	if _, err := uuid.Parse(productID); err != nil {
		return 0, nil
	}
	var qty int
	err := r.pool.QueryRow(ctx, `SELECT quantity FROM cart_items WHERE cart_id = $1 AND product_id = $2`, cartID, productID).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return qty, nil
}

func (r *postgresRepo) SetLineQuantity(ctx context.Context, cartID, productID string, quantity int) error {
	if quantity <= 0 {
		return r.DeleteLine(ctx, cartID, productID)
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
INSERT INTO cart_items (cart_id, product_id, quantity)
VALUES ($1, $2, $3)
ON CONFLICT (cart_id, product_id) DO UPDATE SET
    quantity = EXCLUDED.quantity,
    updated_at = now()
`, cartID, productID, quantity); err != nil {
		return err
	}
	if err := touchCart(ctx, tx, cartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *postgresRepo) DeleteLine(ctx context.Context, cartID, productID string) error {
	if _, err := uuid.Parse(productID); err != nil {
		// No line can reference a malformed id.
		return nil
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`, cartID, productID); err != nil {
		return err
	}
	if err := touchCart(ctx, tx, cartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *postgresRepo) ClearLines(ctx context.Context, cartID string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return err
	}
	if err := touchCart(ctx, tx, cartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *postgresRepo) ReplaceLines(ctx context.Context, cartID string, lines []LineInput) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return err
	}

	if len(lines) > 0 {
		cid, err := uuid.Parse(cartID)
		if err != nil {
			return fmt.Errorf("cart id: %w", err)
		}
		rows := make([][]any, 0, len(lines))
		for _, l := range lines {
			pid, err := uuid.Parse(l.ProductID)
			if err != nil {
				return fmt.Errorf("product id %q: %w", l.ProductID, err)
			}
			rows = append(rows, []any{cid, pid, l.Quantity})
		}
		n, err := tx.CopyFrom(ctx,
			pgx.Identifier{"cart_items"},
			[]string{"cart_id", "product_id", "quantity"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return err
		}
		if int(n) != len(lines) {
			return fmt.Errorf("copied %d of %d cart lines", n, len(lines))
		}
	}

	if err := touchCart(ctx, tx, cartID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	r.logger.Debug("replaced cart lines", zap.String("cart_id", cartID), zap.Int("lines", len(lines)))
	return nil
}

func touchCart(ctx context.Context, tx pgx.Tx, cartID string) error {
	_, err := tx.Exec(ctx, `UPDATE carts SET updated_at = now() WHERE id = $1`, cartID)
	return err
}
