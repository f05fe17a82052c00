package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"coffeecart/internal/domain"
	"github.com/gin-gonic/gin"
)

// stubStorefront is an in-memory storefront for one user token.
type stubStorefront struct {
	mu          sync.Mutex
	users       map[string]domain.User
	catalog     map[domain.ItemRef]domain.CatalogItem
	lines       []domain.CartLine
	addresses   []domain.Address
	orders      map[string]domain.Order
	paymentErr  error
	getCartErr  error
	meCalls     int
	orderCalls  int
	removeCalls int
	seq         int
}

func newStubStorefront() *stubStorefront {
	stock := func(n int) *int { return &n }
	return &stubStorefront{
		users: map[string]domain.User{"tok": {ID: "u1", Role: domain.RoleClient}},
		catalog: map[domain.ItemRef]domain.CatalogItem{
			domain.ProductRef("p1"): {Ref: domain.ProductRef("p1"), Name: "Espresso", Brand: "A", PriceCents: 1000, Stock: stock(5)},
			domain.SupplyRef("s1"):  {Ref: domain.SupplyRef("s1"), Name: "Filters", Brand: "B", PriceCents: 2000, Stock: stock(5)},
			domain.ProductRef("p9"): {Ref: domain.ProductRef("p9"), Name: "Geisha", Brand: "Finca", PriceCents: 4500, Stock: stock(3)},
			domain.ProductRef("px"): {Ref: domain.ProductRef("px"), Name: "Mystery"},
		},
		addresses: []domain.Address{{
			ID: "addr-1", FirstName: "Ana", LastName: "Pérez", Phone: "1155551234", Email: "ana@example.com",
			Street: "Av. Corrientes 1234", Department: "4B", City: "Buenos Aires",
		}},
		orders: make(map[string]domain.Order),
	}
}

func (s *stubStorefront) Me(_ context.Context, token string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meCalls++
	u, ok := s.users[token]
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	return &u, nil
}

func (s *stubStorefront) Item(_ context.Context, _ string, ref domain.ItemRef) (*domain.CatalogItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.catalog[ref]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &item, nil
}

func (s *stubStorefront) Addresses(context.Context, string) ([]domain.Address, error) {
	return s.addresses, nil
}

func (s *stubStorefront) Order(_ context.Context, _ string, id string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &o, nil
}

func (s *stubStorefront) GetCart(context.Context, string) ([]domain.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getCartErr != nil {
		return nil, s.getCartErr
	}
	return domain.CloneLines(s.lines), nil
}

func (s *stubStorefront) AddItem(_ context.Context, _ string, ref domain.ItemRef, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lines {
		if s.lines[i].Item == ref {
			s.lines[i].Quantity += qty
			return nil
		}
	}
	item := s.catalog[ref]
	s.seq++
	s.lines = append(s.lines, domain.CartLine{
		ID:             "line-" + strconv.Itoa(s.seq),
		Item:           ref,
		Name:           item.Name,
		Quantity:       qty,
		UnitPrice:      item.PriceCents,
		AvailableStock: *item.Stock,
		Brand:          item.Brand,
	})
	return nil
}

func (s *stubStorefront) SetQuantity(_ context.Context, _ string, ref domain.ItemRef, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lines {
		if s.lines[i].Item == ref {
			s.lines[i].Quantity = qty
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *stubStorefront) RemoveItem(_ context.Context, _ string, ref domain.ItemRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeCalls++
	for i := range s.lines {
		if s.lines[i].Item == ref {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *stubStorefront) Clear(context.Context, string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	return nil
}

func (s *stubStorefront) RemoveLines(_ context.Context, _ string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	drop := make(map[string]bool)
	for _, id := range ids {
		drop[id] = true
	}
	var kept []domain.CartLine
	for _, l := range s.lines {
		if !drop[l.ID] {
			kept = append(kept, l)
		}
	}
	s.lines = kept
	return nil
}

func (s *stubStorefront) CreateOrder(_ context.Context, _ string, req domain.OrderRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orderCalls++
	s.seq++
	id := "order-" + strconv.Itoa(s.seq)
	s.orders[id] = domain.Order{ID: id, UserID: "u1", Status: domain.OrderStatusPending, PaymentMethod: req.PaymentMethod, TotalCents: req.TotalAmount}
	return id, nil
}

func (s *stubStorefront) CreatePayment(_ context.Context, _ string, _ []domain.CartLine, orderID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paymentErr != nil {
		return "", s.paymentErr
	}
	return "https://pay.example.com/checkout?order=" + orderID, nil
}

func (s *stubStorefront) seedCart(lines ...domain.CartLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = lines
}

type testAPI struct {
	router *gin.Engine
	store  *stubStorefront
	reg    *Registry
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := newStubStorefront()
	reg := NewRegistry(store, nil, nil, 0, nil)
	router, err := buildRouter(nil, Deps{Storefront: store, Sessions: reg})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	return &testAPI{router: router, store: store, reg: reg}
}

func (a *testAPI) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

var errProviderDown = errors.New("provider down")
