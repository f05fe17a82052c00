package catalog

import (
	"context"
	"errors"
	"fmt"

	"coffeecart/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) List(ctx context.Context, kind domain.ItemKind) ([]domain.CatalogItem, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`
SELECT id::text, key, name, description, brand, price_cents, currency, stock, created_at
FROM %s
ORDER BY name ASC
`, table)
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		r.logger.Error("catalog list", zap.Stringer("kind", kind), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	result := []domain.CatalogItem{}
	for rows.Next() {
		item := domain.CatalogItem{Ref: domain.ItemRef{Kind: kind}}
		if err := rows.Scan(&item.Ref.ID, &item.Key, &item.Name, &item.Description, &item.Brand, &item.PriceCents, &item.Currency, &item.Stock, &item.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("catalog list rows", zap.Stringer("kind", kind), zap.Error(err))
		return nil, err
	}
	r.logger.Debug("catalog list", zap.Stringer("kind", kind), zap.Int("count", len(result)))
	return result, nil
}

func (r *postgresRepo) Get(ctx context.Context, ref domain.ItemRef) (*domain.CatalogItem, error) {
	table, err := tableFor(ref.Kind)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`
SELECT id::text, key, name, description, brand, price_cents, currency, stock, created_at
FROM %s
WHERE id = $1
`, table)
	item := domain.CatalogItem{Ref: domain.ItemRef{Kind: ref.Kind}}
	err = r.pool.QueryRow(ctx, q, ref.ID).Scan(&item.Ref.ID, &item.Key, &item.Name, &item.Description, &item.Brand, &item.PriceCents, &item.Currency, &item.Stock, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s %s: %w", ref.Kind, ref.ID, domain.ErrNotFound)
		}
		r.logger.Error("catalog get", zap.String("item", ref.Key()), zap.Error(err))
		return nil, err
	}
	return &item, nil
}

// Upsert inserts or updates by key. A supplied id must match the stored one.
func (r *postgresRepo) Upsert(ctx context.Context, item domain.CatalogItem) (*domain.CatalogItem, error) {
	table, err := tableFor(item.Ref.Kind)
	if err != nil {
		return nil, err
	}
	if _, ok := item.KnownStock(); !ok {
		return nil, fmt.Errorf("catalog item %q: %w", item.Key, domain.ErrInvalidStockData)
	}
	q := fmt.Sprintf(`
INSERT INTO %s (id, key, name, description, brand, price_cents, currency, stock)
VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (key) DO UPDATE SET
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    brand = EXCLUDED.brand,
    price_cents = EXCLUDED.price_cents,
    currency = EXCLUDED.currency,
    stock = EXCLUDED.stock
RETURNING id::text, created_at
`, table)
	res := item
	err = r.pool.QueryRow(ctx, q,
		item.Ref.ID,
		item.Key,
		item.Name,
		item.Description,
		item.Brand,
		item.PriceCents,
		item.Currency,
		item.Stock,
	).Scan(&res.Ref.ID, &res.CreatedAt)
	if err != nil {
		r.logger.Error("catalog upsert", zap.String("key", item.Key), zap.Stringer("kind", item.Ref.Kind), zap.Error(err))
		return nil, err
	}
	if item.Ref.ID != "" && res.Ref.ID != item.Ref.ID {
		return nil, fmt.Errorf("catalog repo: id mismatch for key=%s existing_id=%s import_id=%s", item.Key, res.Ref.ID, item.Ref.ID)
	}
	r.logger.Info("catalog upserted", zap.String("key", res.Key), zap.Stringer("kind", res.Ref.Kind), zap.String("id", res.Ref.ID))
	return &res, nil
}

func tableFor(kind domain.ItemKind) (string, error) {
	switch kind {
	case domain.KindProduct, domain.KindSupply:
		return kind.Collection(), nil
	default:
		return "", fmt.Errorf("catalog repo: unknown item kind %d", int(kind))
	}
}
