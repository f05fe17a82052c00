package cart

import (
	"context"

	"coffeecart/internal/domain"
)

// Repository stores the cart lines of every user. Lines are joined with the
// catalog on read so name, price, stock and brand are always current.
type Repository interface {
	Lines(ctx context.Context, userID string) ([]domain.CartLine, error)
	Add(ctx context.Context, userID string, ref domain.ItemRef, quantity int) error
	SetQuantity(ctx context.Context, userID string, ref domain.ItemRef, quantity int) error
	Remove(ctx context.Context, userID string, ref domain.ItemRef) error
	Clear(ctx context.Context, userID string) error
	RemoveLines(ctx context.Context, userID string, lineIDs []string) (int, error)
}
