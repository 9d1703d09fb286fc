package importer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/natededev/de-commerce/internal/domain"
	productsvc "github.com/natededev/de-commerce/internal/service/product"
)

type stubProductWriter struct {
	items []productsvc.Input
}

func (s *stubProductWriter) Import(_ context.Context, in productsvc.Input) (*domain.Product, error) {
	s.items = append(s.items, in)
	return &domain.Product{ID: "id", Name: in.Name}, nil
}

func TestCSVImporter_Run(t *testing.T) {
	csvData := `name,description,price,category,image,stock,rating
Ceramic Mug,Stoneware mug,12.99,Home,https://example.com/mug.jpg,40,4.5
,,,,,,
Desk Lamp,"Dimmable, LED",45,Home,,,
`
	repo := &stubProductWriter{}
	imp := NewCSVImporter(strings.NewReader(csvData), repo, nil)

	count, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("import run: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 products imported, got %d", count)
	}
	if len(repo.items) != 2 {
		t.Fatalf("expected 2 products saved, got %d", len(repo.items))
	}

	mug := repo.items[0]
	if mug.Name != "Ceramic Mug" || mug.Category != "Home" || mug.StockCount != 40 || mug.Price.String() != "12.99" {
		t.Fatalf("unexpected product data: %+v", mug)
	}
	if mug.Rating == nil || *mug.Rating != 4.5 {
		t.Fatalf("expected rating 4.5, got %v", mug.Rating)
	}

	lamp := repo.items[1]
	if lamp.Description != "Dimmable, LED" || lamp.StockCount != 0 || lamp.Rating != nil {
		t.Fatalf("unexpected product data: %+v", lamp)
	}
}

func TestCSVImporter_MissingColumn(t *testing.T) {
	imp := NewCSVImporter(strings.NewReader("name,category\nMug,Home\n"), &stubProductWriter{}, nil)
	if _, err := imp.Run(context.Background()); err == nil || !strings.Contains(err.Error(), `"price"`) {
		t.Fatalf("expected missing price column error, got %v", err)
	}
}

func TestCSVImporter_InvalidRowStops(t *testing.T) {
	csvData := "name,price,stock\nMug,3.50,2\nLamp,cheap,1\nRug,9,1\n"
	repo := &stubProductWriter{}
	imp := NewCSVImporter(strings.NewReader(csvData), repo, nil)

	count, err := imp.Run(context.Background())
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "line 3") {
		t.Fatalf("expected line number in error, got %v", err)
	}
	if count != 1 || len(repo.items) != 1 {
		t.Fatalf("expected 1 product imported before failure, got %d", count)
	}
}
