package order

import (
	"context"
	"errors"

	"coffeecart/internal/domain"
)

// ErrTotalMismatch means the client computed a total from stale prices.
var ErrTotalMismatch = errors.New("order total does not match current prices")

type LineInput struct {
	Item     domain.ItemRef
	Quantity int
}

type CreateInput struct {
	UserID   string
	Method   domain.PaymentMethod
	Currency string
	Address  domain.Address
	Lines    []LineInput
	// ExpectedTotal is checked against catalog prices when non-zero.
	ExpectedTotal int64
}

// Repository records orders and reserves their stock atomically.
type Repository interface {
	Create(ctx context.Context, in CreateInput) (*domain.Order, error)
	Get(ctx context.Context, userID, id string) (*domain.Order, error)
	MarkPaymentStarted(ctx context.Context, userID, id, paymentRef string) error
}
