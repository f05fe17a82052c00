package domain

import "time"

// CatalogItem is a product or a supply item as listed by the catalog.
type CatalogItem struct {
	Ref         ItemRef   `json:"ref"`
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Brand       string    `json:"brand,omitempty"`
	PriceCents  int64     `json:"priceCents"`
	Currency    string    `json:"currency"`
	Stock       *int      `json:"stock"`
	CreatedAt   time.Time `json:"createdAt"`
}

// KnownStock reports the stock when it is a known non-negative count.
func (c CatalogItem) KnownStock() (int, bool) {
	if c.Stock == nil || *c.Stock < 0 {
		return 0, false
	}
	return *c.Stock, true
}
