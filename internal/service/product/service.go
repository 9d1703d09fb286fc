package product

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/natededev/de-commerce/internal/domain"
	productrepo "github.com/natededev/de-commerce/internal/repository/product"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

type Service struct {
	repo productrepo.Repository
}

func New(repo productrepo.Repository) *Service {
	return &Service{repo: repo}
}

// Input carries the writable product fields. InStock is derived from
// StockCount when omitted.
type Input struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
	InStock     *bool           `json:"inStock"`
	StockCount  int             `json:"stockCount"`
	Rating      *float64        `json:"rating"`
	ReviewCount int             `json:"reviewCount"`
}

// Page is one page of a product listing.
type Page struct {
	Items []domain.Product `json:"items"`
	Total int              `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

func (s *Service) List(ctx context.Context, f domain.ProductFilter) (*Page, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	switch {
	case f.Limit < 1:
		f.Limit = defaultLimit
	case f.Limit > maxLimit:
		f.Limit = maxLimit
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return nil, domain.Invalid("minPrice", "minPrice must not exceed maxPrice")
	}
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, in Input) (*domain.Product, error) {
	p, err := in.product()
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) Update(ctx context.Context, id string, in Input) (*domain.Product, error) {
	p, err := in.product()
	if err != nil {
		return nil, err
	}
	p.ID = id
	return s.repo.Update(ctx, p)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Import upserts p keyed by name and category, for bulk loaders.
func (s *Service) Import(ctx context.Context, in Input) (*domain.Product, error) {
	p, err := in.product()
	if err != nil {
		return nil, err
	}
	return s.repo.Upsert(ctx, p)
}

func (in Input) product() (domain.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Product{}, domain.Invalid("name", "name required")
	}
	if in.Price.IsNegative() {
		return domain.Product{}, domain.Invalid("price", "price must not be negative")
	}
	if in.StockCount < 0 {
		return domain.Product{}, domain.Invalid("stockCount", "stock must not be negative")
	}
	if in.Rating != nil && (*in.Rating < 0 || *in.Rating > 5) {
		return domain.Product{}, domain.Invalid("rating", "rating must be between 0 and 5")
	}
	inStock := in.StockCount > 0
	if in.InStock != nil {
		inStock = *in.InStock
	}
	return domain.Product{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price.Round(2),
		Image:       strings.TrimSpace(in.Image),
		Category:    strings.TrimSpace(in.Category),
		InStock:     inStock,
		StockCount:  in.StockCount,
		Rating:      in.Rating,
		ReviewCount: in.ReviewCount,
	}, nil
}
