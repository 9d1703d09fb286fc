package user

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/natededev/de-commerce/internal/domain"
	"github.com/natededev/de-commerce/internal/logging"
)

const selectColumns = `id::text, email, name, role, password_hash, created_at, updated_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logging.OrNop(logger).Named("user_repo")}
}

func (r *postgresRepo) Create(ctx context.Context, u domain.User) (*domain.User, error) {
	role := u.Role
	if role == "" {
		role = domain.RoleUser
	}
	const q = `
INSERT INTO users (email, name, role, password_hash)
VALUES ($1, $2, $3, $4)
RETURNING ` + selectColumns
	return r.scanUser(r.pool.QueryRow(ctx, q, strings.ToLower(u.Email), u.Name, string(role), u.PasswordHash))
}

func (r *postgresRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `SELECT ` + selectColumns + ` FROM users WHERE lower(email) = lower($1) LIMIT 1`
	return r.scanUser(r.pool.QueryRow(ctx, q, email))
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	const q = `SELECT ` + selectColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.pool.QueryRow(ctx, q, id))
}

func (r *postgresRepo) Update(ctx context.Context, id, name, email string) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	const q = `
UPDATE users
SET name = $2, email = $3, updated_at = now()
WHERE id = $1
RETURNING ` + selectColumns
	return r.scanUser(r.pool.QueryRow(ctx, q, id, name, strings.ToLower(email)))
}

func (r *postgresRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}
	cmd, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, passwordHash)
	if err != nil {
		r.logger.Error("update password", zap.String("id", id), zap.Error(err))
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var role string
	err := row.Scan(&u.ID, &u.Email, &u.Name, &role, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Error("scan user", zap.Error(err))
		return nil, err
	}
	u.Role = domain.UserRole(role)
	return &u, nil
}
