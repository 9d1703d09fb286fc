package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product(id string, price string, stock int) Product {
	return Product{
		ID:         id,
		Name:       "Product " + id,
		Price:      decimal.RequireFromString(price),
		InStock:    stock > 0,
		StockCount: stock,
	}
}

func TestCartTransitionsScenario(t *testing.T) {
	p1 := product("p1", "10.00", 5)
	p2 := product("p2", "5.00", 1)

	cart := EmptyCart("local", AnonymousUserID)

	cart = cart.WithLines(AddLine(cart.Lines, p1, 2, cart.ID))
	assert.True(t, cart.Total.Equal(decimal.RequireFromString("20.00")))
	assert.Equal(t, 2, cart.ItemCount)

	cart = cart.WithLines(AddLine(cart.Lines, p2, 1, cart.ID))
	assert.True(t, cart.Total.Equal(decimal.RequireFromString("25.00")))
	assert.Equal(t, 3, cart.ItemCount)

	line, ok := cart.Line("p2")
	require.True(t, ok)
	err := p2.CheckStock(line.Quantity + 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutOfStock))
	assert.Contains(t, err.Error(), "Product p2")
	assert.True(t, cart.Total.Equal(decimal.RequireFromString("25.00")))
	assert.Equal(t, 3, cart.ItemCount)

	cart = cart.WithLines(RemoveLine(cart.Lines, "p1"))
	assert.True(t, cart.Total.Equal(decimal.RequireFromString("5.00")))
	assert.Equal(t, 1, cart.ItemCount)
}

func TestAddLineSumsExistingProduct(t *testing.T) {
	p := product("p1", "1.50", 10)
	lines := AddLine(nil, p, 2, "c1")
	lines = AddLine(lines, p, 3, "c1")

	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)
	assert.Equal(t, "c1", lines[0].CartID)
	assert.NotEmpty(t, lines[0].ID)
}

func TestTransitionsDoNotMutateInput(t *testing.T) {
	p := product("p1", "3.00", 10)
	original := AddLine(nil, p, 1, "c1")

	_ = AddLine(original, p, 4, "c1")
	_ = SetLineQuantity(original, "p1", 9)
	_ = RemoveLine(original, "p1")

	require.Len(t, original, 1)
	assert.Equal(t, 1, original[0].Quantity)
}

func TestSetLineQuantityZeroEqualsRemove(t *testing.T) {
	p1 := product("p1", "2.00", 10)
	p2 := product("p2", "4.00", 10)
	lines := AddLine(AddLine(nil, p1, 2, "c"), p2, 1, "c")

	viaUpdate := EmptyCart("c", "u").WithLines(SetLineQuantity(lines, "p1", 0))
	viaRemove := EmptyCart("c", "u").WithLines(RemoveLine(lines, "p1"))

	assert.False(t, viaUpdate.Contains("p1"))
	assert.Equal(t, viaRemove.ItemCount, viaUpdate.ItemCount)
	assert.True(t, viaRemove.Total.Equal(viaUpdate.Total))
	assert.Equal(t, 1, viaUpdate.ItemCount)
}

func TestSetLineQuantityReplaces(t *testing.T) {
	p := product("p1", "2.00", 10)
	lines := SetLineQuantity(AddLine(nil, p, 2, "c"), "p1", 7)
	require.Len(t, lines, 1)
	assert.Equal(t, 7, lines[0].Quantity)
}

func TestTotalsInvariantAfterMixedOperations(t *testing.T) {
	products := []Product{
		product("a", "0.10", 100),
		product("b", "19.99", 100),
		product("c", "3.33", 100),
	}
	cart := EmptyCart("c", "u")
	ops := []func(Cart) Cart{
		func(c Cart) Cart { return c.WithLines(AddLine(c.Lines, products[0], 3, c.ID)) },
		func(c Cart) Cart { return c.WithLines(AddLine(c.Lines, products[1], 2, c.ID)) },
		func(c Cart) Cart { return c.WithLines(SetLineQuantity(c.Lines, "a", 7)) },
		func(c Cart) Cart { return c.WithLines(AddLine(c.Lines, products[2], 1, c.ID)) },
		func(c Cart) Cart { return c.WithLines(RemoveLine(c.Lines, "b")) },
		func(c Cart) Cart { return c.WithLines(AddLine(c.Lines, products[1], 5, c.ID)) },
	}
	for _, op := range ops {
		cart = op(cart)
		want := decimal.Zero
		count := 0
		for _, l := range cart.Lines {
			want = want.Add(l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
			count += l.Quantity
		}
		assert.True(t, want.Equal(cart.Total), "total %s != %s", cart.Total, want)
		assert.Equal(t, count, cart.ItemCount)
	}
	assert.True(t, cart.Total.Equal(decimal.RequireFromString("103.98")))
}

func TestCheckStockNotInStock(t *testing.T) {
	p := Product{ID: "p", Name: "Lamp", Price: decimal.NewFromInt(1), InStock: false, StockCount: 10}
	err := p.CheckStock(1)
	var stockErr *StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 0, stockErr.Available)
	assert.Equal(t, `product "Lamp" is out of stock`, err.Error())
}
