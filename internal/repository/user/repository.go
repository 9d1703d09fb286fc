package user

import (
	"context"

	"github.com/natededev/de-commerce/internal/domain"
)

// Repository persists and fetches storefront users.
type Repository interface {
	Create(ctx context.Context, u domain.User) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	Update(ctx context.Context, id, name, email string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}
