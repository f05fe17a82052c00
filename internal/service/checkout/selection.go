package checkout

import (
	"fmt"
	"sync"

	"coffeecart/internal/domain"
)

// BrandGroup is one brand's share of the cart.
type BrandGroup struct {
	Brand    string            `json:"brand"`
	Included bool              `json:"included"`
	Lines    []domain.CartLine `json:"lines"`
	Subtotal int64             `json:"subtotal"`
}

// Selection tracks which brand groups go into the next checkout. Choices survive
// quantity edits and are reset to "all included" only when the set of brands changes.
type Selection struct {
	mu       sync.Mutex
	brands   []string
	included map[string]bool
}

func NewSelection() *Selection {
	return &Selection{included: make(map[string]bool)}
}

// Sync recomputes the groups if the distinct brands of lines differ from the last
// sync. It reports whether it did.
func (s *Selection) Sync(lines []domain.CartLine) bool {
	brands := domain.Brands(lines)
	s.mu.Lock()
	defer s.mu.Unlock()
	if sameBrands(s.brands, brands) {
		return false
	}
	s.brands = brands
	s.included = make(map[string]bool, len(brands))
	for _, b := range brands {
		s.included[b] = true
	}
	return true
}

// Toggle includes or excludes a brand group.
func (s *Selection) Toggle(brand string, include bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.included[brand]; !ok {
		return fmt.Errorf("brand group %q: %w", brand, domain.ErrNotFound)
	}
	s.included[brand] = include
	return nil
}

func (s *Selection) Included(brand string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.included[brand]
}

// Groups partitions lines by brand in brand order. Brands not seen by Sync yet count
// as included.
func (s *Selection) Groups(lines []domain.CartLine) []BrandGroup {
	byBrand := domain.GroupByBrand(lines)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]BrandGroup, 0, len(byBrand))
	for _, b := range domain.Brands(lines) {
		inc, known := s.included[b]
		out = append(out, BrandGroup{
			Brand:    b,
			Included: inc || !known,
			Lines:    byBrand[b],
			Subtotal: domain.Total(byBrand[b]),
		})
	}
	return out
}

// SelectedLines returns the lines of included groups, in cart order.
func (s *Selection) SelectedLines(lines []domain.CartLine) []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.CartLine
	for _, l := range lines {
		inc, known := s.included[domain.BrandOf(l)]
		if inc || !known {
			out = append(out, l)
		}
	}
	return out
}

func sameBrands(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
