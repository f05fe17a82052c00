package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coffeecart/internal/domain"
	"coffeecart/internal/repository/catalog"
	"coffeecart/internal/repository/token"
	"coffeecart/internal/repository/user"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	DemoEmail = "demo@coffeecart.local"
	DemoToken = "dev-demo-token"
)

type itemSeed struct {
	Kind        domain.ItemKind
	Key         string
	Name        string
	Description string
	Brand       string
	PriceCents  int64
	Stock       int
}

var catalogSeed = []itemSeed{
	{domain.KindProduct, "espresso-blend-500", "Espresso Blend 500g", "Dark roast for espresso machines", "Lavazza", 1850000, 40},
	{domain.KindProduct, "colombia-supremo-250", "Colombia Supremo 250g", "Medium roast, single origin", "Cabrales", 920000, 25},
	{domain.KindProduct, "decaf-250", "Decaf 250g", "Swiss water process", "Cabrales", 870000, 3},
	{domain.KindProduct, "house-blend-1kg", "House Blend 1kg", "Everyday filter coffee", "", 2400000, 10},
	{domain.KindSupply, "filters-102", "Paper filters #102 (80u)", "", "Melitta", 350000, 100},
	{domain.KindSupply, "v60-dripper", "V60 dripper 02", "Ceramic pour-over dripper", "Hario", 3900000, 5},
	{domain.KindSupply, "milk-pitcher", "Milk pitcher 350ml", "", "", 1450000, 0},
}

// Deps groups the repositories the seed writes through.
type Deps struct {
	Users   user.Repository
	Tokens  token.Repository
	Catalog catalog.Repository
}

// Apply inserts a demo catalog, user, address and bearer token for manual
// testing. It is idempotent.
func Apply(ctx context.Context, pool *pgxpool.Pool, currency string, logger *zap.Logger) error {
	return Run(ctx, Deps{
		Users:   user.NewPostgres(pool),
		Tokens:  token.NewPostgres(pool),
		Catalog: catalog.NewPostgres(pool, logger),
	}, currency, time.Now())
}

func Run(ctx context.Context, deps Deps, currency string, now time.Time) error {
	for _, s := range catalogSeed {
		stock := s.Stock
		if _, err := deps.Catalog.Upsert(ctx, domain.CatalogItem{
			Ref:         domain.ItemRef{Kind: s.Kind},
			Key:         s.Key,
			Name:        s.Name,
			Description: s.Description,
			Brand:       s.Brand,
			PriceCents:  s.PriceCents,
			Currency:    currency,
			Stock:       &stock,
		}); err != nil {
			return fmt.Errorf("upsert %s %s: %w", s.Kind, s.Key, err)
		}
	}

	demo, err := ensureUser(ctx, deps.Users)
	if err != nil {
		return fmt.Errorf("ensure demo user: %w", err)
	}

	addrs, err := deps.Users.Addresses(ctx, demo.ID)
	if err != nil {
		return fmt.Errorf("list demo addresses: %w", err)
	}
	if len(addrs) == 0 {
		if _, err := deps.Users.AddAddress(ctx, demo.ID, domain.Address{
			FirstName:  "Demo",
			LastName:   "Customer",
			Phone:      "+54 11 4000 0000",
			Email:      DemoEmail,
			Street:     "Av. Santa Fe 1234",
			Department: "Buenos Aires",
			City:       "CABA",
		}); err != nil {
			return fmt.Errorf("add demo address: %w", err)
		}
	}

	err = deps.Tokens.Create(ctx, token.Token{
		Token:     DemoToken,
		UserID:    demo.ID,
		ExpiresAt: now.Add(90 * 24 * time.Hour),
	})
	if err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
		return fmt.Errorf("create demo token: %w", err)
	}
	return nil
}

func ensureUser(ctx context.Context, users user.Repository) (*domain.User, error) {
	u, err := users.GetByEmail(ctx, DemoEmail)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return users.Create(ctx, domain.User{
		Email:     DemoEmail,
		FirstName: "Demo",
		LastName:  "Customer",
		Role:      domain.RoleClient,
	})
}
