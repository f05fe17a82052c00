package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"coffeecart/internal/domain"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	auth   string
	body   map[string]interface{}
}

func newTestClient(t *testing.T, h func(w http.ResponseWriter, r *http.Request)) (*Client, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path, auth: r.Header.Get("Authorization")}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&rec.body)
		}
		require.NotEmpty(t, r.Header.Get("X-Request-ID"))
		calls = append(calls, rec)
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/", time.Second, nil)
	require.NoError(t, err)
	return c, &calls
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewRequiresURL(t *testing.T) {
	_, err := New(" ", 0, nil)
	require.Error(t, err)
}

func TestGetCartMapsVariants(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, CartResponse{Items: []CartItem{
			{CartItemID: "l1", ItemID: "p1", IsProduct: true, Quantity: 2, UnitPrice: 1000, AvailableStock: 5, Brand: "A"},
			{CartItemID: "l2", ItemID: "s1", IsProduct: false, Quantity: 1, UnitPrice: 2000, AvailableStock: 3, Brand: "B"},
		}})
	})

	lines, err := c.GetCart(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, lines, 2)
	require.Equal(t, domain.ProductRef("p1"), lines[0].Item)
	require.Equal(t, domain.SupplyRef("s1"), lines[1].Item)
	require.Equal(t, "l2", lines[1].ID)
	require.Equal(t, "Bearer tok", (*calls)[0].auth)
	require.Equal(t, "/cart", (*calls)[0].path)
}

func TestCartMutationsSendContract(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	ctx := context.Background()

	require.NoError(t, c.AddItem(ctx, "tok", domain.SupplyRef("s1"), 3))
	require.NoError(t, c.SetQuantity(ctx, "tok", domain.ProductRef("p1"), 2))
	require.NoError(t, c.RemoveItem(ctx, "tok", domain.ProductRef("p1")))
	require.NoError(t, c.Clear(ctx, "tok"))
	require.NoError(t, c.RemoveLines(ctx, "tok", []string{"l1", "l2"}))

	got := *calls
	require.Len(t, got, 5)
	require.Equal(t, http.MethodPost, got[0].method)
	require.Equal(t, "s1", got[0].body["itemId"])
	require.Equal(t, false, got[0].body["isProduct"])
	require.Equal(t, float64(3), got[0].body["quantity"])
	require.Equal(t, http.MethodPut, got[1].method)
	require.Equal(t, http.MethodDelete, got[2].method)
	require.Equal(t, "/cart", got[2].path)
	require.Equal(t, "/cart/clear", got[3].path)
	require.Equal(t, "/cart/remove-items", got[4].path)
	require.Equal(t, []interface{}{"l1", "l2"}, got[4].body["cartItemIds"])
}

func TestCreateOrderAndPayment(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/orders":
			writeJSON(w, http.StatusCreated, CreateOrderResponse{OrderID: "o-1"})
		case "/payment/create-order":
			writeJSON(w, http.StatusOK, CreatePaymentResponse{RedirectURL: "https://pay/x"})
		}
	})
	ctx := context.Background()
	lines := []domain.CartLine{domain.NewProductLine("l1", "p1", "Beans", 2, 1050, 9, "A")}

	id, err := c.CreateOrder(ctx, "tok", domain.OrderRequest{
		Lines:         lines,
		PaymentMethod: domain.PaymentOnline,
		TotalAmount:   2100,
	})
	require.NoError(t, err)
	require.Equal(t, "o-1", id)
	require.Equal(t, float64(2100), (*calls)[0].body["totalAmount"])
	require.Equal(t, "online", (*calls)[0].body["paymentMethod"])

	redirect, err := c.CreatePayment(ctx, "tok", lines, id)
	require.NoError(t, err)
	require.Equal(t, "https://pay/x", redirect)
	items := (*calls)[1].body["items"].([]interface{})
	require.Equal(t, "10.5", items[0].(map[string]interface{})["unitPrice"])
	require.Equal(t, "o-1", (*calls)[1].body["orderId"])
}

func TestErrorMapping(t *testing.T) {
	avail := 2
	cases := []struct {
		name   string
		status int
		body   ErrorResponse
		check  func(t *testing.T, err error)
	}{
		{"unauthenticated", http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"}, func(t *testing.T, err error) {
			require.ErrorIs(t, err, domain.ErrUnauthenticated)
		}},
		{"not found", http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "line not found"}, func(t *testing.T, err error) {
			require.ErrorIs(t, err, domain.ErrNotFound)
		}},
		{"insufficient stock", http.StatusConflict, ErrorResponse{Error: CodeInsufficientStock, Available: &avail, Requested: 5, ItemID: "p1", IsProduct: true}, func(t *testing.T, err error) {
			var se *domain.InsufficientStockError
			require.True(t, errors.As(err, &se))
			require.Equal(t, 2, se.Available)
			require.Equal(t, 5, se.Requested)
			require.Equal(t, domain.ProductRef("p1"), se.Item)
		}},
		{"server message", http.StatusBadGateway, ErrorResponse{Error: "upstream", Message: "payment provider down"}, func(t *testing.T, err error) {
			var re *Error
			require.True(t, errors.As(err, &re))
			require.True(t, re.Retryable())
			require.Equal(t, "payment provider down", err.Error())
		}},
		{"generic fallback", http.StatusInternalServerError, ErrorResponse{}, func(t *testing.T, err error) {
			require.Equal(t, genericMessage, err.Error())
		}},
		{"client error not retryable", http.StatusUnprocessableEntity, ErrorResponse{Error: "bad"}, func(t *testing.T, err error) {
			var re *Error
			require.True(t, errors.As(err, &re))
			require.False(t, re.Retryable())
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tc.status, tc.body)
			})
			tc.check(t, c.Clear(context.Background(), "tok"))
		})
	}
}

func TestTransportErrorIsRetryable(t *testing.T) {
	c, err := New("http://127.0.0.1:1", 200*time.Millisecond, nil)
	require.NoError(t, err)
	err = c.Clear(context.Background(), "tok")
	var re *Error
	require.True(t, errors.As(err, &re))
	require.True(t, re.Retryable())
	require.Equal(t, genericMessage, err.Error())
}
