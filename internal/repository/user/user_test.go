package user

import (
	"context"
	"errors"
	"os"
	"testing"

	"coffeecart/internal/domain"
	"coffeecart/internal/migrate"
	"github.com/jackc/pgx/v5/pgxpool"
)

func TestPostgres_CreateAndAddresses(t *testing.T) {
	ctx := context.Background()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE order_lines, orders, cart_lines, tokens, addresses, users CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}

	repo := NewPostgres(pool)
	u, err := repo.Create(ctx, domain.User{Email: " Ana@Example.com ", FirstName: "Ana"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.Email != "ana@example.com" || u.Role != domain.RoleClient {
		t.Fatalf("unexpected user %+v", u)
	}
	if _, err := repo.Create(ctx, domain.User{Email: "ana@example.com"}); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}

	byEmail, err := repo.GetByEmail(ctx, "ANA@example.com")
	if err != nil || byEmail.ID != u.ID {
		t.Fatalf("GetByEmail got=%+v err=%v", byEmail, err)
	}

	saved, err := repo.AddAddress(ctx, u.ID, domain.Address{
		FirstName: "Ana", LastName: "Diaz", Phone: "1155550000", Email: "ana@example.com",
		Street: "Av. Corrientes 1234", Department: "Buenos Aires", City: "CABA",
	})
	if err != nil {
		t.Fatalf("AddAddress: %v", err)
	}
	list, err := repo.Addresses(ctx, u.ID)
	if err != nil {
		t.Fatalf("Addresses: %v", err)
	}
	if len(list) != 1 || list[0].ID != saved.ID || list[0].City != "CABA" {
		t.Fatalf("unexpected addresses %+v", list)
	}
}
