// Package remote talks to the storefront API that holds the truth about carts,
// catalog stock, orders and payments.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"coffeecart/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const userAgent = "coffeecart-api/1.0"

type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

func New(baseURL string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("storefront URL is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		logger:     logger,
	}, nil
}

func (c *Client) Me(ctx context.Context, token string) (*domain.User, error) {
	var u domain.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", token, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) Addresses(ctx context.Context, token string) ([]domain.Address, error) {
	var resp AddressesResponse
	if err := c.do(ctx, http.MethodGet, "/addresses", token, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Addresses, nil
}

// Item fetches one catalog entry with its current stock.
func (c *Client) Item(ctx context.Context, token string, ref domain.ItemRef) (*domain.CatalogItem, error) {
	var item domain.CatalogItem
	path := "/catalog/" + ref.Kind.Collection() + "/" + url.PathEscape(ref.ID)
	if err := c.do(ctx, http.MethodGet, path, token, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) GetCart(ctx context.Context, token string) ([]domain.CartLine, error) {
	var resp CartResponse
	if err := c.do(ctx, http.MethodGet, "/cart", token, nil, &resp); err != nil {
		return nil, err
	}
	lines := make([]domain.CartLine, 0, len(resp.Items))
	for _, it := range resp.Items {
		lines = append(lines, lineFromWire(it))
	}
	return lines, nil
}

func (c *Client) AddItem(ctx context.Context, token string, item domain.ItemRef, quantity int) error {
	body := CartMutation{ItemID: item.ID, Quantity: quantity, IsProduct: item.IsProduct()}
	return c.do(ctx, http.MethodPost, "/cart", token, body, nil)
}

func (c *Client) SetQuantity(ctx context.Context, token string, item domain.ItemRef, quantity int) error {
	body := CartMutation{ItemID: item.ID, Quantity: quantity, IsProduct: item.IsProduct()}
	return c.do(ctx, http.MethodPut, "/cart", token, body, nil)
}

func (c *Client) RemoveItem(ctx context.Context, token string, item domain.ItemRef) error {
	body := CartMutation{ItemID: item.ID, IsProduct: item.IsProduct()}
	return c.do(ctx, http.MethodDelete, "/cart", token, body, nil)
}

func (c *Client) Clear(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodDelete, "/cart/clear", token, nil, nil)
}

func (c *Client) RemoveLines(ctx context.Context, token string, lineIDs []string) error {
	return c.do(ctx, http.MethodPost, "/cart/remove-items", token, RemoveItemsRequest{CartItemIDs: lineIDs}, nil)
}

func (c *Client) CreateOrder(ctx context.Context, token string, req domain.OrderRequest) (string, error) {
	body := CreateOrderRequest{
		Items:           make([]OrderItem, 0, len(req.Lines)),
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		TotalAmount:     req.TotalAmount,
	}
	for _, l := range req.Lines {
		body.Items = append(body.Items, OrderItem{
			ItemID:    l.Item.ID,
			IsProduct: l.Item.IsProduct(),
			Name:      l.Name,
			Brand:     l.Brand,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	var resp CreateOrderResponse
	if err := c.do(ctx, http.MethodPost, "/orders", token, body, &resp); err != nil {
		return "", err
	}
	if resp.OrderID == "" {
		return "", &Error{Status: http.StatusBadGateway, Message: "order created without an identifier"}
	}
	return resp.OrderID, nil
}

// CreatePayment asks the payment provider for a checkout for orderID and returns
// the URL the user must be sent to.
func (c *Client) CreatePayment(ctx context.Context, token string, lines []domain.CartLine, orderID string) (string, error) {
	body := CreatePaymentRequest{OrderID: orderID, Items: make([]PaymentItem, 0, len(lines))}
	for _, l := range lines {
		body.Items = append(body.Items, PaymentItem{
			ItemID:    l.Item.ID,
			IsProduct: l.Item.IsProduct(),
			Title:     l.Name,
			Quantity:  l.Quantity,
			UnitPrice: CentsToDecimal(l.UnitPrice),
		})
	}
	var resp CreatePaymentResponse
	if err := c.do(ctx, http.MethodPost, "/payment/create-order", token, body, &resp); err != nil {
		return "", err
	}
	if resp.RedirectURL == "" {
		return "", &Error{Status: http.StatusBadGateway, Message: "payment provider returned no redirect"}
	}
	return resp.RedirectURL, nil
}

func (c *Client) Order(ctx context.Context, token, orderID string) (*domain.Order, error) {
	var o domain.Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), token, nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("storefront request failed",
			zap.String("method", method), zap.String("path", path),
			zap.String("request_id", requestID), zap.Error(err))
		return &Error{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Status: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}
	c.logger.Debug("storefront request",
		zap.String("method", method), zap.String("path", path),
		zap.Int("status", resp.StatusCode), zap.Duration("latency", time.Since(start)),
		zap.String("request_id", requestID))

	if resp.StatusCode >= 400 {
		return parseErrorResponse(resp.StatusCode, respBody)
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &Error{Status: resp.StatusCode, Err: fmt.Errorf("parsing response: %w", err)}
	}
	return nil
}

// Ping checks that the storefront answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", "", nil, nil)
}
