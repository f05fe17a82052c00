package remote

import (
	"coffeecart/internal/domain"
	"github.com/shopspring/decimal"
)

// Wire types shared by the client and the storefront server.

type CartItem struct {
	CartItemID     string `json:"cartItemId"`
	ItemID         string `json:"itemId"`
	IsProduct      bool   `json:"isProduct"`
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	UnitPrice      int64  `json:"unitPrice"`
	AvailableStock int    `json:"availableStock"`
	Brand          string `json:"brand"`
}

type CartResponse struct {
	Items []CartItem `json:"items"`
}

type CartMutation struct {
	ItemID    string `json:"itemId" binding:"required"`
	Quantity  int    `json:"quantity,omitempty"`
	IsProduct bool   `json:"isProduct"`
}

type RemoveItemsRequest struct {
	CartItemIDs []string `json:"cartItemIds" binding:"required,min=1"`
}

type OrderItem struct {
	ItemID    string `json:"itemId" binding:"required"`
	IsProduct bool   `json:"isProduct"`
	Name      string `json:"name"`
	Brand     string `json:"brand"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
	UnitPrice int64  `json:"unitPrice" binding:"min=0"`
}

type CreateOrderRequest struct {
	Items           []OrderItem          `json:"items" binding:"required,min=1,dive"`
	ShippingAddress domain.Address       `json:"shippingAddress"`
	PaymentMethod   domain.PaymentMethod `json:"paymentMethod" binding:"required"`
	TotalAmount     int64                `json:"totalAmount"`
}

type CreateOrderResponse struct {
	OrderID string `json:"orderId"`
}

// PaymentItem prices are decimal amounts in the store currency, the way the
// payment provider expects them.
type PaymentItem struct {
	ItemID    string          `json:"itemId" binding:"required"`
	IsProduct bool            `json:"isProduct"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity" binding:"required,min=1"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type CreatePaymentRequest struct {
	OrderID string        `json:"orderId" binding:"required"`
	Items   []PaymentItem `json:"items" binding:"required,min=1,dive"`
}

type CreatePaymentResponse struct {
	RedirectURL string `json:"redirectUrl"`
}

type AddressesResponse struct {
	Addresses []domain.Address `json:"addresses"`
}

// ErrorResponse is the body of every non-2xx storefront response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Available *int   `json:"available,omitempty"`
	Requested int    `json:"requested,omitempty"`
	ItemID    string `json:"itemId,omitempty"`
	IsProduct bool   `json:"isProduct,omitempty"`
}

const CodeInsufficientStock = "insufficient_stock"

// CentsToDecimal converts minor units into a two-decimal amount.
func CentsToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

func lineFromWire(it CartItem) domain.CartLine {
	if it.IsProduct {
		return domain.NewProductLine(it.CartItemID, it.ItemID, it.Name, it.Quantity, it.UnitPrice, it.AvailableStock, it.Brand)
	}
	return domain.NewSupplyLine(it.CartItemID, it.ItemID, it.Name, it.Quantity, it.UnitPrice, it.AvailableStock, it.Brand)
}

// WireLine converts a cart line to its wire form.
func WireLine(l domain.CartLine) CartItem {
	return CartItem{
		CartItemID:     l.ID,
		ItemID:         l.Item.ID,
		IsProduct:      l.Item.IsProduct(),
		Name:           l.Name,
		Quantity:       l.Quantity,
		UnitPrice:      l.UnitPrice,
		AvailableStock: l.AvailableStock,
		Brand:          l.Brand,
	}
}
