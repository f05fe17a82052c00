package storefront

import (
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentLinks builds hosted-checkout URLs for the payment provider. Each link
// carries a fresh preference id that is stored on the order.
type PaymentLinks struct {
	base   *url.URL
	newRef func() string
}

func NewPaymentLinks(checkoutURL string) (*PaymentLinks, error) {
	u, err := url.Parse(checkoutURL)
	if err != nil {
		return nil, fmt.Errorf("parse payment checkout url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("payment checkout url %q must be absolute", checkoutURL)
	}
	return &PaymentLinks{base: u, newRef: uuid.NewString}, nil
}

// Create returns the preference id and the redirect URL for one order.
func (p *PaymentLinks) Create(orderID string, amount decimal.Decimal, currency string) (string, string) {
	ref := p.newRef()
	u := *p.base
	q := u.Query()
	q.Set("pref", ref)
	q.Set("order", orderID)
	q.Set("amount", amount.StringFixed(2))
	if currency != "" {
		q.Set("currency", currency)
	}
	u.RawQuery = q.Encode()
	return ref, u.String()
}
