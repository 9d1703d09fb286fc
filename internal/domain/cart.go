package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AnonymousUserID owns carts held without an authenticated identity.
const AnonymousUserID = "anonymous"

// CartStatus is the lifecycle state of a cart.
type CartStatus string

const (
	CartStatusActive    CartStatus = "active"
	CartStatusConverted CartStatus = "converted_to_order"
	CartStatusAbandoned CartStatus = "abandoned"
)

// Cart is a value: transitions return a new Cart and never mutate the receiver.
// Total and ItemCount are derived from Lines by WithLines.
type Cart struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Status    CartStatus      `json:"status"`
	Lines     []CartLine      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"itemCount"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// CartLine is one product-and-quantity pair. Product is a display snapshot.
type CartLine struct {
	ID        string    `json:"id"`
	CartID    string    `json:"cartId"`
	ProductID string    `json:"productId"`
	Quantity  int       `json:"quantity"`
	Product   Product   `json:"product"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EmptyCart returns an active cart with no lines.
func EmptyCart(id, userID string) Cart {
	now := time.Now().UTC()
	return Cart{
		ID:        id,
		UserID:    userID,
		Status:    CartStatusActive,
		Lines:     []CartLine{},
		Total:     decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Totals sums price*quantity and quantities over lines.
func Totals(lines []CartLine) (decimal.Decimal, int) {
	total := decimal.Zero
	count := 0
	for _, l := range lines {
		total = total.Add(l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
		count += l.Quantity
	}
	return total, count
}

// WithLines returns a copy of c holding lines, with totals recomputed.
func (c Cart) WithLines(lines []CartLine) Cart {
	out := c
	out.Lines = cloneLines(lines)
	out.Total, out.ItemCount = Totals(out.Lines)
	out.UpdatedAt = time.Now().UTC()
	if out.Status == "" {
		out.Status = CartStatusActive
	}
	return out
}

// Recalculated returns c with totals recomputed from its current lines.
func (c Cart) Recalculated() Cart {
	out := c
	if out.Lines == nil {
		out.Lines = []CartLine{}
	}
	out.Total, out.ItemCount = Totals(out.Lines)
	return out
}

// Line returns the line for productID.
func (c Cart) Line(productID string) (CartLine, bool) {
	for _, l := range c.Lines {
		if l.ProductID == productID {
			return l, true
		}
	}
	return CartLine{}, false
}

// Contains reports whether the cart has a line for productID.
func (c Cart) Contains(productID string) bool {
	_, ok := c.Line(productID)
	return ok
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// AddLine sums quantity into the existing line for product, or appends a new
// line when the product is absent.
func AddLine(lines []CartLine, product Product, quantity int, cartID string) []CartLine {
	now := time.Now().UTC()
	out := cloneLines(lines)
	for i := range out {
		if out[i].ProductID == product.ID {
			out[i].Quantity += quantity
			out[i].Product = product
			out[i].UpdatedAt = now
			return out
		}
	}
	return append(out, CartLine{
		ID:        uuid.NewString(),
		CartID:    cartID,
		ProductID: product.ID,
		Quantity:  quantity,
		Product:   product,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// RemoveLine drops the line for productID.
func RemoveLine(lines []CartLine, productID string) []CartLine {
	out := make([]CartLine, 0, len(lines))
	for _, l := range lines {
		if l.ProductID != productID {
			out = append(out, l)
		}
	}
	return out
}

// SetLineQuantity replaces the quantity for productID. A quantity <= 0 removes
// the line.
func SetLineQuantity(lines []CartLine, productID string, quantity int) []CartLine {
	if quantity <= 0 {
		return RemoveLine(lines, productID)
	}
	now := time.Now().UTC()
	out := cloneLines(lines)
	for i := range out {
		if out[i].ProductID == productID {
			out[i].Quantity = quantity
			out[i].UpdatedAt = now
		}
	}
	return out
}

func cloneLines(lines []CartLine) []CartLine {
	out := make([]CartLine, len(lines))
	copy(out, lines)
	return out
}
