package domain

import (
	"strings"
	"time"
)

type PaymentMethod string

const (
	PaymentOnline         PaymentMethod = "online"
	PaymentCashOnDelivery PaymentMethod = "cash-on-delivery"
)

// ParsePaymentMethod accepts the two supported methods, case-insensitively.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(strings.ToLower(strings.TrimSpace(s))) {
	case PaymentOnline:
		return PaymentOnline, nil
	case PaymentCashOnDelivery:
		return PaymentCashOnDelivery, nil
	default:
		return "", ErrInvalidPayment
	}
}

// OrderRequest is what the order-creation call carries.
type OrderRequest struct {
	Lines           []CartLine    `json:"lines"`
	ShippingAddress Address       `json:"shippingAddress"`
	PaymentMethod   PaymentMethod `json:"paymentMethod"`
	TotalAmount     int64         `json:"totalAmount"`
}

// PendingOrder is the purchase in flight. It lives only for one checkout run.
type PendingOrder struct {
	Lines   []CartLine    `json:"lines"`
	Address Address       `json:"address"`
	Method  PaymentMethod `json:"paymentMethod"`
	Total   int64         `json:"total"`
	OrderID string        `json:"orderId,omitempty"`
}

const (
	OrderStatusPending         = "pending"
	OrderStatusAwaitingPayment = "awaiting_payment"
	OrderStatusConfirmed       = "confirmed"
)

// Order is an order as recorded by the storefront.
type Order struct {
	ID            string        `json:"id"`
	UserID        string        `json:"userId"`
	Status        string        `json:"status"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	PaymentRef    string        `json:"paymentRef,omitempty"`
	TotalCents    int64         `json:"totalCents"`
	Currency      string        `json:"currency"`
	Address       Address       `json:"shippingAddress"`
	Lines         []OrderLine   `json:"lines"`
	CreatedAt     time.Time     `json:"createdAt"`
}

type OrderLine struct {
	Item      ItemRef `json:"item"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice int64   `json:"unitPrice"`
}
