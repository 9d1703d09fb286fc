package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/natededev/de-commerce/internal/domain"
	"github.com/natededev/de-commerce/internal/logging"
	productsvc "github.com/natededev/de-commerce/internal/service/product"
)

type ProductWriter interface {
	Import(ctx context.Context, in productsvc.Input) (*domain.Product, error)
}

// CSVImporter reads storefront product CSV files and upserts each row.
// Required columns: name, price. Optional: description, category, image,
// stock, rating, reviewCount.
type CSVImporter struct {
	reader *csv.Reader
	writer ProductWriter
	logger *zap.Logger
}

func NewCSVImporter(r io.Reader, writer ProductWriter, logger *zap.Logger) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	return &CSVImporter{
		reader: csvr,
		writer: writer,
		logger: logging.OrNop(logger).Named("importer"),
	}
}

// Run parses rows and upserts products keyed by name and category. It stops
// at the first invalid row and returns how many rows were imported before it.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	for _, col := range []string{"name", "price"} {
		if _, ok := index[col]; !ok {
			return 0, fmt.Errorf("missing required column %q", col)
		}
	}

	imported := 0
	for line := 2; ; line++ {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}
		if blank(record) {
			continue
		}

		in, err := parseRow(record, index)
		if err != nil {
			return imported, fmt.Errorf("line %d: %w", line, err)
		}
		p, err := i.writer.Import(ctx, in)
		if err != nil {
			return imported, fmt.Errorf("line %d: upsert product %q: %w", line, in.Name, err)
		}
		i.logger.Debug("imported product", zap.String("id", p.ID), zap.String("name", p.Name))
		imported++
	}

	return imported, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int) (productsvc.Input, error) {
	in := productsvc.Input{
		Name:        pick(record, index, "name"),
		Description: pick(record, index, "description"),
		Category:    pick(record, index, "category"),
		Image:       pick(record, index, "image"),
	}
	if in.Name == "" {
		return in, domain.Invalid("name", "name required")
	}

	price, err := decimal.NewFromString(pick(record, index, "price"))
	if err != nil {
		return in, domain.Invalid("price", "price must be a number")
	}
	in.Price = price

	if s := pick(record, index, "stock"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return in, domain.Invalid("stock", "stock must be an integer")
		}
		in.StockCount = n
	}
	if s := pick(record, index, "rating"); s != "" {
		r, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return in, domain.Invalid("rating", "rating must be a number")
		}
		in.Rating = &r
	}
	if s := pick(record, index, "reviewcount"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return in, domain.Invalid("reviewCount", "reviewCount must be an integer")
		}
		in.ReviewCount = n
	}
	return in, nil
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
