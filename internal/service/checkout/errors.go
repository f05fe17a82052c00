package checkout

import (
	"errors"
	"fmt"
)

// ErrNoUnpaidOrder is returned by RetryPayment when there is nothing to retry.
var ErrNoUnpaidOrder = errors.New("no order is waiting for payment")

// PaymentInitiationError means the order exists but online payment could not start.
// The cart is left untouched; the user should retry the payment, not the order.
type PaymentInitiationError struct {
	OrderID string
	Err     error
}

func (e *PaymentInitiationError) Error() string {
	return fmt.Sprintf("order %s was created but payment could not start: %v", e.OrderID, e.Err)
}

func (e *PaymentInitiationError) Unwrap() error { return e.Err }

// CartCleanupError means the purchase went through but the purchased lines are
// still in the cart.
type CartCleanupError struct {
	OrderID string
	Err     error
}

func (e *CartCleanupError) Error() string {
	return fmt.Sprintf("order %s was placed but the cart could not be updated: %v", e.OrderID, e.Err)
}

func (e *CartCleanupError) Unwrap() error { return e.Err }
