package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/natededev/de-commerce/internal/domain"
	"github.com/natededev/de-commerce/internal/logging"
	productsvc "github.com/natededev/de-commerce/internal/service/product"
)

// DemoPassword is shared by the seeded demo accounts.
const DemoPassword = "demo123456"

type ProductImporter interface {
	Import(ctx context.Context, in productsvc.Input) (*domain.Product, error)
}

type UserCreator interface {
	Create(ctx context.Context, u domain.User) (*domain.User, error)
}

type userSeed struct {
	Email string
	Name  string
	Role  domain.UserRole
}

var demoUsers = []userSeed{
	{Email: "admin@gmail.com", Name: "Demo Admin", Role: domain.RoleAdmin},
	{Email: "user@gmail.com", Name: "Demo User", Role: domain.RoleUser},
}

func rating(v float64) *float64 { return &v }

var demoProducts = []productsvc.Input{
	{Name: "Wireless Headphones", Description: "Over-ear headphones with active noise cancelling", Price: decimal.RequireFromString("199.99"), Category: "Electronics", Image: "https://images.unsplash.com/photo-1505740420928-5e560c06d30e", StockCount: 25, Rating: rating(4.5), ReviewCount: 128},
	{Name: "Smart Watch", Description: "Fitness tracking and notifications", Price: decimal.RequireFromString("299.99"), Category: "Electronics", Image: "https://images.unsplash.com/photo-1523275335684-37898b6baf30", StockCount: 15, Rating: rating(4.3), ReviewCount: 89},
	{Name: "Leather Backpack", Description: "Full-grain leather daypack", Price: decimal.RequireFromString("89.50"), Category: "Accessories", Image: "https://images.unsplash.com/photo-1553062407-98eeb64c6a62", StockCount: 8, Rating: rating(4.7), ReviewCount: 42},
	{Name: "Ceramic Mug", Description: "Stoneware mug, 350 ml", Price: decimal.RequireFromString("12.99"), Category: "Home", Image: "https://images.unsplash.com/photo-1514228742587-6b1558fcca3d", StockCount: 100},
	{Name: "Desk Lamp", Description: "Dimmable LED desk lamp", Price: decimal.RequireFromString("45.00"), Category: "Home", Image: "https://images.unsplash.com/photo-1507473885765-e6ed057f782c", StockCount: 1},
	{Name: "Running Shoes", Description: "Lightweight trainers", Price: decimal.RequireFromString("120.00"), Category: "Sports", Image: "https://images.unsplash.com/photo-1542291026-7eec264c27ff", StockCount: 0},
}

// Apply inserts demo products and accounts for manual testing. Products are
// upserted and existing accounts are left alone, so it can be re-run.
func Apply(ctx context.Context, products ProductImporter, users UserCreator, logger *zap.Logger) error {
	logger = logging.OrNop(logger).Named("seed")

	for _, p := range demoProducts {
		saved, err := products.Import(ctx, p)
		if err != nil {
			return fmt.Errorf("upsert product %s: %w", p.Name, err)
		}
		logger.Debug("seeded product", zap.String("id", saved.ID), zap.String("name", saved.Name))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash demo password: %w", err)
	}
	for _, u := range demoUsers {
		_, err := users.Create(ctx, domain.User{Email: u.Email, Name: u.Name, Role: u.Role, PasswordHash: string(hash)})
		switch {
		case errors.Is(err, domain.ErrAlreadyExists):
			logger.Debug("demo user exists", zap.String("email", u.Email))
		case err != nil:
			return fmt.Errorf("create user %s: %w", u.Email, err)
		}
	}

	logger.Info("seed applied", zap.Int("products", len(demoProducts)), zap.Int("users", len(demoUsers)))
	return nil
}
