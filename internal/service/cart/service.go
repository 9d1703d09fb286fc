package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/natededev/de-commerce/internal/domain"
	"github.com/natededev/de-commerce/internal/logging"
	cartrepo "github.com/natededev/de-commerce/internal/repository/cart"
)

// Service applies cart rules on top of the cart and product repositories.
// Stock checks are point-in-time; nothing is reserved.
type Service struct {
	repo        cartRepo
	productRepo productRepo
	logger      *zap.Logger
}

type cartRepo interface {
	GetOrCreateActive(ctx context.Context, userID string) (string, error)
	GetByID(ctx context.Context, cartID string) (*domain.Cart, error)
	VerifyOwnership(ctx context.Context, cartID, userID string) error
	LineQuantity(ctx context.Context, cartID, productID string) (int, error)
	SetLineQuantity(ctx context.Context, cartID, productID string, quantity int) error
	DeleteLine(ctx context.Context, cartID, productID string) error
	ClearLines(ctx context.Context, cartID string) error
	ReplaceLines(ctx context.Context, cartID string, lines []cartrepo.LineInput) error
}

type productRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

func New(repo cartrepo.Repository, productRepo productRepo, logger *zap.Logger) *Service {
	return &Service{repo: repo, productRepo: productRepo, logger: logging.OrNop(logger).Named("cart_service")}
}

// SyncItem is one line of a client cart pushed by Sync. Clients may send the
// product id directly or inside the line's product snapshot.
type SyncItem struct {
	ProductID string      `json:"productId"`
	Quantity  int         `json:"quantity"`
	Product   *ProductRef `json:"product,omitempty"`
}

// ProductRef is the part of a product snapshot Sync reads.
type ProductRef struct {
	ID string `json:"id"`
}

func (i SyncItem) productID() string {
	if id := strings.TrimSpace(i.ProductID); id != "" {
		return id
	}
	if i.Product != nil {
		return strings.TrimSpace(i.Product.ID)
	}
	return ""
}

// SyncInput is the client's full cart. Total and ItemCount are informational;
// the server recomputes both from the stored lines.
type SyncInput struct {
	Items     []SyncItem      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"itemCount"`
}

// GetOrCreateActive returns the user's active cart, creating an empty one when
// none exists.
func (s *Service) GetOrCreateActive(ctx context.Context, userID string) (*domain.Cart, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrNotAuthenticated
	}
	cartID, err := s.repo.GetOrCreateActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get or create cart: %w", err)
	}
	return s.repo.GetByID(ctx, cartID)
}

// AddItem adds quantity units of productID to the user's active cart, summing
// into an existing line.
func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, domain.Invalid("quantity", "quantity must be at least 1")
	}
	product, err := s.product(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := product.CheckStock(quantity); err != nil {
		return nil, err
	}

	cartID, err := s.repo.GetOrCreateActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get or create cart: %w", err)
	}
	existing, err := s.repo.LineQuantity(ctx, cartID, product.ID)
	if err != nil {
		return nil, err
	}
	total := existing + quantity
	if existing > 0 {
		if err := product.CheckStock(total); err != nil {
			return nil, err
		}
	}
	if err := s.repo.SetLineQuantity(ctx, cartID, product.ID, total); err != nil {
		return nil, err
	}
	s.logger.Debug("item added", zap.String("cart_id", cartID), zap.String("product_id", product.ID), zap.Int("quantity", total))
	return s.repo.GetByID(ctx, cartID)
}

// UpdateQuantity replaces a line's quantity. A quantity of zero or less
// removes the line. It never creates a line: a product without one in the
// cart is ErrNotFound.
func (s *Service) UpdateQuantity(ctx context.Context, userID, cartID, productID string, quantity int) (*domain.Cart, error) {
	if err := s.repo.VerifyOwnership(ctx, cartID, userID); err != nil {
		return nil, err
	}
	existing, err := s.repo.LineQuantity(ctx, cartID, productID)
	if err != nil {
		return nil, err
	}
	if existing == 0 {
		return nil, fmt.Errorf("%w: product %s is not in the cart", domain.ErrNotFound, productID)
	}
	if quantity <= 0 {
		if err := s.repo.DeleteLine(ctx, cartID, productID); err != nil {
			return nil, err
		}
		return s.repo.GetByID(ctx, cartID)
	}
	product, err := s.product(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := product.CheckStock(quantity); err != nil {
		return nil, err
	}
	if err := s.repo.SetLineQuantity(ctx, cartID, product.ID, quantity); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, cartID)
}

// RemoveItem deletes a line. Removing an absent product is not an error.
func (s *Service) RemoveItem(ctx context.Context, userID, cartID, productID string) (*domain.Cart, error) {
	if err := s.repo.VerifyOwnership(ctx, cartID, userID); err != nil {
		return nil, err
	}
	if err := s.repo.DeleteLine(ctx, cartID, productID); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, cartID)
}

// Clear deletes every line and returns the emptied cart.
func (s *Service) Clear(ctx context.Context, userID, cartID string) (*domain.Cart, error) {
	if err := s.repo.VerifyOwnership(ctx, cartID, userID); err != nil {
		return nil, err
	}
	if err := s.repo.ClearLines(ctx, cartID); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, cartID)
}

// Sync replaces the user's active cart lines with in.Items. Every line is
// validated against current stock before the cart is touched, so a rejected
// sync leaves the stored cart as it was.
func (s *Service) Sync(ctx context.Context, userID string, in SyncInput) (*domain.Cart, error) {
	lines, err := foldItems(in.Items)
	if err != nil {
		return nil, err
	}
	for _, l := range lines {
		product, err := s.product(ctx, l.ProductID)
		if err != nil {
			return nil, err
		}
		if err := product.CheckStock(l.Quantity); err != nil {
			return nil, err
		}
	}

	cartID, err := s.repo.GetOrCreateActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get or create cart: %w", err)
	}
	if err := s.repo.ReplaceLines(ctx, cartID, lines); err != nil {
		s.logger.Error("sync replace failed", zap.String("cart_id", cartID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrSyncFailed, err)
	}
	s.logger.Info("cart synced", zap.String("cart_id", cartID), zap.Int("lines", len(lines)))
	return s.repo.GetByID(ctx, cartID)
}

// foldItems validates item shape and sums duplicate product ids, keeping the
// first-seen order.
func foldItems(items []SyncItem) ([]cartrepo.LineInput, error) {
	index := make(map[string]int, len(items))
	lines := make([]cartrepo.LineInput, 0, len(items))
	for i, item := range items {
		id := item.productID()
		if id == "" {
			return nil, domain.Invalid(fmt.Sprintf("items[%d].productId", i), "product id required")
		}
		if item.Quantity < 1 {
			return nil, domain.Invalid(fmt.Sprintf("items[%d].quantity", i), "quantity must be at least 1")
		}
		if at, ok := index[id]; ok {
			lines[at].Quantity += item.Quantity
			continue
		}
		index[id] = len(lines)
		lines = append(lines, cartrepo.LineInput{ProductID: id, Quantity: item.Quantity})
	}
	return lines, nil
}

func (s *Service) product(ctx context.Context, productID string) (*domain.Product, error) {
	id := strings.TrimSpace(productID)
	if id == "" {
		return nil, domain.Invalid("productId", "product id required")
	}
	p, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Invalid("productId", "product not found")
		}
		return nil, err
	}
	return p, nil
}
