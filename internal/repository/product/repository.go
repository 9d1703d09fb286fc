package product

import (
	"context"

	"github.com/natededev/de-commerce/internal/domain"
)

// Repository persists and fetches catalog products.
type Repository interface {
	List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, p domain.Product) (*domain.Product, error)
	Update(ctx context.Context, p domain.Product) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	// Upsert inserts or updates the product keyed by name and category.
	Upsert(ctx context.Context, p domain.Product) (*domain.Product, error)
}
