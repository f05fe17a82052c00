package catalog

import (
	"context"

	"coffeecart/internal/domain"
)

// Repository reads and writes the products and supplies catalogs.
type Repository interface {
	Get(ctx context.Context, ref domain.ItemRef) (*domain.CatalogItem, error)
	List(ctx context.Context, kind domain.ItemKind) ([]domain.CatalogItem, error)
	Upsert(ctx context.Context, item domain.CatalogItem) (*domain.CatalogItem, error)
}
