package category

import (
	"context"
	"reflect"
	"testing"

	"github.com/natededev/de-commerce/internal/db/dbtest"
)

func TestPostgres_List(t *testing.T) {
	ctx := context.Background()
	pool := dbtest.Pool(t)
	repo := NewPostgres(pool, nil)

	empty, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no categories, got %v", empty)
	}

	const q = `
INSERT INTO products (name, description, price, image, category, in_stock, stock_count)
VALUES ($1, '', 1.00, '', $2, true, 1)
`
	for _, row := range [][2]string{{"Mug", "Home"}, {"Lamp", "Home"}, {"Watch", "Electronics"}, {"Gift card", ""}} {
		if _, err := pool.Exec(ctx, q, row[0], row[1]); err != nil {
			t.Fatalf("insert product %s: %v", row[0], err)
		}
	}

	got, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if want := []string{"Electronics", "Home"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
