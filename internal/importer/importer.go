package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"coffeecart/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CatalogWriter interface {
	Upsert(ctx context.Context, item domain.CatalogItem) (*domain.CatalogItem, error)
}

// CSVImporter reads catalog CSV exports and inserts or updates products and
// supplies. Columns: id, kind, key, name, description, brand, price, currency,
// stock. Only id, kind, description and brand may be left empty.
type CSVImporter struct {
	reader      *csv.Reader
	repo        CatalogWriter
	defaultKind domain.ItemKind
	currency    string
}

func NewCSVImporter(r io.Reader, repo CatalogWriter, defaultKind domain.ItemKind, currency string) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	return &CSVImporter{
		reader:      csvr,
		repo:        repo,
		defaultKind: defaultKind,
		currency:    currency,
	}
}

// Run upserts every row and returns how many were imported. It stops at the
// first invalid row.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["key"]; !ok {
		return 0, errors.New("missing required column \"key\"")
	}

	imported := 0
	line := 1
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return imported, fmt.Errorf("read row %d: %w", line, err)
		}
		if blank(record) {
			continue
		}

		item, err := i.parseRow(record, index)
		if err != nil {
			return imported, fmt.Errorf("row %d: %w", line, err)
		}
		if _, err := i.repo.Upsert(ctx, item); err != nil {
			return imported, fmt.Errorf("upsert %s %q: %w", item.Ref.Kind, item.Key, err)
		}
		imported++
	}
	return imported, nil
}

func (i *CSVImporter) parseRow(record []string, index map[string]int) (domain.CatalogItem, error) {
	item := domain.CatalogItem{
		Ref:         domain.ItemRef{ID: pick(record, index, "id"), Kind: i.defaultKind},
		Key:         pick(record, index, "key"),
		Name:        pick(record, index, "name"),
		Description: pick(record, index, "description"),
		Brand:       pick(record, index, "brand"),
		Currency:    strings.ToUpper(pick(record, index, "currency")),
	}
	if raw := pick(record, index, "kind"); raw != "" {
		kind, err := domain.ParseItemKind(raw)
		if err != nil {
			return item, err
		}
		item.Ref.Kind = kind
	}
	if item.Ref.Kind != domain.KindProduct && item.Ref.Kind != domain.KindSupply {
		return item, fmt.Errorf("no kind for key %q", item.Key)
	}
	if item.Currency == "" {
		item.Currency = i.currency
	}
	if item.Key == "" || item.Name == "" || item.Currency == "" {
		return item, fmt.Errorf("invalid row (missing required fields) for key %q", item.Key)
	}
	if item.Ref.ID != "" {
		if _, err := uuid.Parse(item.Ref.ID); err != nil {
			return item, fmt.Errorf("invalid id for key %q: %s", item.Key, item.Ref.ID)
		}
	}

	cents, err := parsePrice(pick(record, index, "price"))
	if err != nil {
		return item, fmt.Errorf("price for key %q: %w", item.Key, err)
	}
	item.PriceCents = cents

	raw := pick(record, index, "stock")
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return item, fmt.Errorf("stock for key %q must be a non-negative integer, got %q", item.Key, raw)
	}
	item.Stock = &n
	return item, nil
}

// parsePrice reads a decimal amount such as "15.5" into minor units.
func parsePrice(raw string) (int64, error) {
	if raw == "" {
		return 0, errors.New("is required")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, err
	}
	if d.IsNegative() {
		return 0, errors.New("must not be negative")
	}
	if !d.Equal(d.Round(2)) {
		return 0, fmt.Errorf("%s has more than two decimals", raw)
	}
	return d.Shift(2).IntPart(), nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	return idx
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
