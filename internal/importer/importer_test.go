package importer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"coffeecart/internal/domain"
)

type stubCatalogRepo struct {
	items []domain.CatalogItem
	err   error
}

func (s *stubCatalogRepo) Upsert(_ context.Context, item domain.CatalogItem) (*domain.CatalogItem, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.items = append(s.items, item)
	return &item, nil
}

func TestCSVImporter_Run(t *testing.T) {
	csvData := `id,kind,key,name,description,brand,price,currency,stock
00000000-0000-0000-0000-000000000001,product,espresso-blend,Espresso Blend,Dark roast,Lavazza,15.5,ars,12
,supplies,filters-102,Filters #102,,Melitta,4.50,,40
,,,,,,,,
,,colombia-250,Colombia 250g,,,20,,0`

	repo := &stubCatalogRepo{}
	imp := NewCSVImporter(strings.NewReader(csvData), repo, domain.KindProduct, "ARS")

	count, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("import run: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 items imported, got %d", count)
	}

	first := repo.items[0]
	if first.Ref.ID != "00000000-0000-0000-0000-000000000001" || first.Ref.Kind != domain.KindProduct {
		t.Fatalf("expected id and kind to be preserved, got %+v", first.Ref)
	}
	if first.PriceCents != 1550 || first.Currency != "ARS" || first.Brand != "Lavazza" || first.Stock == nil || *first.Stock != 12 {
		t.Fatalf("unexpected first item %+v", first)
	}

	second := repo.items[1]
	if second.Ref.Kind != domain.KindSupply || second.PriceCents != 450 || second.Currency != "ARS" || second.Stock == nil || *second.Stock != 40 {
		t.Fatalf("unexpected second item %+v", second)
	}

	third := repo.items[2]
	if third.Ref.Kind != domain.KindProduct || third.Stock == nil || *third.Stock != 0 {
		t.Fatalf("expected default kind and zero stock, got %+v", third)
	}
}

func TestCSVImporter_RejectsInvalidRows(t *testing.T) {
	cases := map[string]string{
		"negative stock":  "key,name,price,stock\nk1,Name,1.00,-1",
		"missing stock":   "key,name,price,stock\nk1,Name,1.00,",
		"no stock column": "key,name,price\nk1,Name,1.00",
		"bad price":       "key,name,price,stock\nk1,Name,abc,1",
		"three decimals":  "key,name,price,stock\nk1,Name,1.005,1",
		"bad id":          "id,key,name,price,stock\nnot-a-uuid,k1,Name,1,1",
		"unknown kind":    "kind,key,name,price,stock\ngadget,k1,Name,1,1",
		"missing name":    "key,name,price,stock\nk1,,1,1",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			repo := &stubCatalogRepo{}
			count, err := NewCSVImporter(strings.NewReader(data), repo, domain.KindSupply, "ARS").Run(context.Background())
			if err == nil {
				t.Fatalf("expected error")
			}
			if count != 0 || len(repo.items) != 0 {
				t.Fatalf("expected nothing imported, got %d", count)
			}
		})
	}
}

func TestCSVImporter_PropagatesRepoError(t *testing.T) {
	repo := &stubCatalogRepo{err: errors.New("db down")}
	_, err := NewCSVImporter(strings.NewReader("key,name,price,stock\nk1,Name,1,3"), repo, domain.KindSupply, "ARS").Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "db down") {
		t.Fatalf("expected repo error, got %v", err)
	}
}

func TestParsePrice(t *testing.T) {
	cases := map[string]int64{"0": 0, "1": 100, "1.5": 150, "12.34": 1234}
	for raw, want := range cases {
		got, err := parsePrice(raw)
		if err != nil || got != want {
			t.Fatalf("parsePrice(%q) = %d, %v; want %d", raw, got, err, want)
		}
	}
}
