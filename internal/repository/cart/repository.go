package cart

import (
	"context"

	"github.com/natededev/de-commerce/internal/domain"
)

// LineInput is one product and quantity written by ReplaceLines.
type LineInput struct {
	ProductID string
	Quantity  int
}

// Repository persists carts and their lines. Totals are never stored; GetByID
// recomputes them from the joined lines.
type Repository interface {
	// GetOrCreateActive returns the id of the user's active cart, creating it
	// when absent. Concurrent callers observe the same cart.
	GetOrCreateActive(ctx context.Context, userID string) (string, error)
	GetByID(ctx context.Context, cartID string) (*domain.Cart, error)
	// VerifyOwnership returns ErrOwnership unless cartID exists and belongs to userID.
	VerifyOwnership(ctx context.Context, cartID, userID string) error
	// LineQuantity returns the quantity held for productID, or 0 without a line.
	LineQuantity(ctx context.Context, cartID, productID string) (int, error)
	SetLineQuantity(ctx context.Context, cartID, productID string, quantity int) error
	DeleteLine(ctx context.Context, cartID, productID string) error
	ClearLines(ctx context.Context, cartID string) error
	// ReplaceLines swaps the full line set in a single transaction.
	ReplaceLines(ctx context.Context, cartID string, lines []LineInput) error
}
