package storefront

import (
	"context"
	"fmt"
	"sync"
	"time"

	"coffeecart/internal/domain"
	"coffeecart/internal/repository/order"
	"coffeecart/internal/repository/token"
	"github.com/google/uuid"
)

type memStore struct {
	mu        sync.Mutex
	users     map[string]*domain.User
	addresses map[string][]domain.Address
	tokens    map[string]token.Token
	items     map[string]*domain.CatalogItem
	lines     map[string][]domain.CartLine
	orders    map[string]*domain.Order
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[string]*domain.User{},
		addresses: map[string][]domain.Address{},
		tokens:    map[string]token.Token{},
		items:     map[string]*domain.CatalogItem{},
		lines:     map[string][]domain.CartLine{},
		orders:    map[string]*domain.Order{},
	}
}

func (m *memStore) addUser(email string) *domain.User {
	u := &domain.User{ID: uuid.NewString(), Email: email, Role: domain.RoleClient}
	m.users[u.ID] = u
	return u
}

func (m *memStore) addToken(userID string, expires time.Time) string {
	t := uuid.NewString()
	m.tokens[t] = token.Token{Token: t, UserID: userID, ExpiresAt: expires}
	return t
}

func (m *memStore) addItem(kind domain.ItemKind, name, brand string, price int64, stock int) domain.ItemRef {
	ref := domain.ItemRef{ID: uuid.NewString(), Kind: kind}
	s := stock
	m.items[ref.Key()] = &domain.CatalogItem{Ref: ref, Key: name, Name: name, Brand: brand, PriceCents: price, Currency: "ARS", Stock: &s}
	return ref
}

type memUsers struct{ *memStore }

func (m memUsers) Create(_ context.Context, u domain.User) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = uuid.NewString()
	m.users[u.ID] = &u
	return &u, nil
}

func (m memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (m memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m memUsers) Addresses(_ context.Context, userID string) ([]domain.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Address{}, m.addresses[userID]...), nil
}

func (m memUsers) AddAddress(_ context.Context, userID string, a domain.Address) (*domain.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.NewString()
	m.addresses[userID] = append(m.addresses[userID], a)
	return &a, nil
}

type memTokens struct{ *memStore }

func (m memTokens) Create(_ context.Context, t token.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tokens[t.Token]; ok {
		return domain.ErrAlreadyExists
	}
	m.tokens[t.Token] = t
	return nil
}

func (m memTokens) Get(_ context.Context, t string) (*token.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.tokens[t]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &tok, nil
}

func (m memTokens) Delete(_ context.Context, t string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, t)
	return nil
}

type memCatalog struct{ *memStore }

func (m memCatalog) Get(_ context.Context, ref domain.ItemRef) (*domain.CatalogItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[ref.Key()]
	if !ok {
		return nil, fmt.Errorf("%s: %w", ref.Key(), domain.ErrNotFound)
	}
	cp := *it
	return &cp, nil
}

func (m memCatalog) List(_ context.Context, kind domain.ItemKind) ([]domain.CatalogItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.CatalogItem{}
	for _, it := range m.items {
		if it.Ref.Kind == kind {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (m memCatalog) Upsert(_ context.Context, item domain.CatalogItem) (*domain.CatalogItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item.Ref.ID == "" {
		item.Ref.ID = uuid.NewString()
	}
	m.items[item.Ref.Key()] = &item
	return &item, nil
}

type memCarts struct{ *memStore }

func (m memCarts) Lines(_ context.Context, userID string) ([]domain.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.CartLine{}
	for _, l := range m.lines[userID] {
		it := m.items[l.Item.Key()]
		l.Name, l.UnitPrice, l.Brand, l.AvailableStock = it.Name, it.PriceCents, it.Brand, *it.Stock
		out = append(out, l)
	}
	return out, nil
}

func (m memCarts) Add(_ context.Context, userID string, ref domain.ItemRef, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[ref.Key()]
	if !ok {
		return domain.ErrNotFound
	}
	lines := m.lines[userID]
	for i := range lines {
		if lines[i].Item == ref {
			if lines[i].Quantity+qty > *it.Stock {
				return &domain.InsufficientStockError{Item: ref, Requested: lines[i].Quantity + qty, Available: *it.Stock}
			}
			lines[i].Quantity += qty
			return nil
		}
	}
	if qty > *it.Stock {
		return &domain.InsufficientStockError{Item: ref, Requested: qty, Available: *it.Stock}
	}
	m.lines[userID] = append(lines, domain.CartLine{ID: uuid.NewString(), Item: ref, Quantity: qty})
	return nil
}

func (m memCarts) SetQuantity(_ context.Context, userID string, ref domain.ItemRef, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines := m.lines[userID]
	for i := range lines {
		if lines[i].Item == ref {
			lines[i].Quantity = qty
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m memCarts) Remove(_ context.Context, userID string, ref domain.ItemRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines := m.lines[userID]
	for i := range lines {
		if lines[i].Item == ref {
			m.lines[userID] = append(lines[:i:i], lines[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m memCarts) Clear(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lines, userID)
	return nil
}

func (m memCarts) RemoveLines(_ context.Context, userID string, ids []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	drop := map[string]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	kept := m.lines[userID][:0:0]
	removed := 0
	for _, l := range m.lines[userID] {
		if drop[l.ID] {
			removed++
			continue
		}
		kept = append(kept, l)
	}
	m.lines[userID] = kept
	return removed, nil
}

type memOrders struct{ *memStore }

func (m memOrders) Create(_ context.Context, in order.CreateInput) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := &domain.Order{
		ID:            uuid.NewString(),
		UserID:        in.UserID,
		PaymentMethod: in.Method,
		Currency:      in.Currency,
		Address:       in.Address,
		Status:        domain.OrderStatusPending,
	}
	if in.Method == domain.PaymentCashOnDelivery {
		o.Status = domain.OrderStatusConfirmed
	}
	for _, l := range in.Lines {
		it, ok := m.items[l.Item.Key()]
		if !ok {
			return nil, domain.ErrNotFound
		}
		if *it.Stock < l.Quantity {
			return nil, &domain.InsufficientStockError{Item: l.Item, Requested: l.Quantity, Available: *it.Stock}
		}
		o.Lines = append(o.Lines, domain.OrderLine{Item: l.Item, Name: it.Name, Quantity: l.Quantity, UnitPrice: it.PriceCents})
		o.TotalCents += it.PriceCents * int64(l.Quantity)
	}
	if in.ExpectedTotal != 0 && in.ExpectedTotal != o.TotalCents {
		return nil, order.ErrTotalMismatch
	}
	for _, l := range o.Lines {
		*m.items[l.Item.Key()].Stock -= l.Quantity
	}
	m.orders[o.ID] = o
	return o, nil
}

func (m memOrders) Get(_ context.Context, userID, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.UserID != userID {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m memOrders) MarkPaymentStarted(_ context.Context, userID, id, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.UserID != userID {
		return domain.ErrNotFound
	}
	o.Status = domain.OrderStatusAwaitingPayment
	o.PaymentRef = ref
	return nil
}
