package user

import (
	"context"

	"coffeecart/internal/domain"
)

// Repository persists users and their saved shipping addresses.
type Repository interface {
	Create(ctx context.Context, u domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Addresses(ctx context.Context, userID string) ([]domain.Address, error)
	AddAddress(ctx context.Context, userID string, a domain.Address) (*domain.Address, error)
}
