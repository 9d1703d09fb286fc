package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices travel as JSON numbers, matching the storefront API.
	decimal.MarshalJSONWithoutQuotes = true
}

// Product is a catalog entry. The cart subsystem only reads it to check
// availability and price lines.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
	InStock     bool            `json:"inStock"`
	StockCount  int             `json:"stockCount"`
	Rating      *float64        `json:"rating,omitempty"`
	ReviewCount int             `json:"reviewCount"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Available reports whether quantity units can be admitted into a cart at
// this instant. It is a point-in-time check, not a reservation.
func (p Product) Available(quantity int) bool {
	return p.InStock && p.StockCount >= quantity
}

// CheckStock returns a StockError when quantity exceeds stock-on-hand.
func (p Product) CheckStock(quantity int) error {
	if p.Available(quantity) {
		return nil
	}
	available := p.StockCount
	if !p.InStock {
		available = 0
	}
	return &StockError{
		ProductID:   p.ID,
		ProductName: p.Name,
		Requested:   quantity,
		Available:   available,
	}
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	Page     int
	Limit    int
	Category string
	Search   string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

// Offset returns the row offset for the filter's page.
func (f ProductFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}
