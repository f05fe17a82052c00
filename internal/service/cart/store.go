// Package cart keeps the signed-in user's cart in sync with the storefront.
//
// Every mutation is validated locally against the stock snapshot, sent to the
// storefront, and followed by a full reload. The store never patches its lines
// optimistically, so what callers read is always the last state the storefront
// confirmed.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"coffeecart/internal/domain"
	"coffeecart/internal/lineguard"
	"coffeecart/internal/session"
	"go.uber.org/zap"
)

type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Remote is the storefront cart contract. Calls carry the session token explicitly.
type Remote interface {
	GetCart(ctx context.Context, token string) ([]domain.CartLine, error)
	AddItem(ctx context.Context, token string, item domain.ItemRef, quantity int) error
	SetQuantity(ctx context.Context, token string, item domain.ItemRef, quantity int) error
	RemoveItem(ctx context.Context, token string, item domain.ItemRef) error
	Clear(ctx context.Context, token string) error
	RemoveLines(ctx context.Context, token string, lineIDs []string) error
}

type Store struct {
	session *session.Session
	remote  Remote
	guard   lineguard.Guard
	logger  *zap.Logger

	mu        sync.RWMutex
	state     State
	lines     []domain.CartLine
	loadSeq   uint64
	appliedAt uint64
	listeners []func([]domain.CartLine)
}

func New(sess *session.Session, remote Remote, guard lineguard.Guard, logger *zap.Logger) *Store {
	if guard == nil {
		guard = lineguard.NewMemory()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{session: sess, remote: remote, guard: guard, logger: logger}
	sess.OnTeardown(s.reset)
	return s
}

// OnChange registers fn to receive the lines after every successful load.
func (s *Store) OnChange(fn func([]domain.CartLine)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Lines returns a copy of the current lines.
func (s *Store) Lines() []domain.CartLine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CloneLines(s.lines)
}

func (s *Store) Total() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.Total(s.lines)
}

func (s *Store) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.ItemCount(s.lines)
}

// Snapshot returns the cart of the current user.
func (s *Store) Snapshot() domain.Cart {
	u, _ := s.session.User()
	return domain.Cart{UserID: u.ID, Lines: s.Lines()}
}

// Load replaces the lines with the storefront's view. Without a signed-in user the
// cart is emptied and nothing is fetched. On failure the previous lines and state
// are kept.
func (s *Store) Load(ctx context.Context) error {
	user, ok := s.session.User()
	if !ok {
		s.apply(nil, s.nextSeq())
		return nil
	}
	token := s.session.Token()

	seq := s.nextSeq()
	prev := s.enterLoading()
	lines, err := s.remote.GetCart(ctx, token)
	if err != nil {
		s.leaveLoading(prev)
		s.logger.Warn("cart load failed", zap.String("user_id", user.ID), zap.Error(err))
		return fmt.Errorf("load cart: %w", err)
	}
	if cur, ok := s.session.User(); !ok || cur.ID != user.ID {
		// The session changed hands while the request was in flight.
		s.leaveLoading(prev)
		return domain.ErrUnauthenticated
	}
	s.apply(lines, seq)
	return nil
}

// Add puts quantity units of item into the cart. item.Stock must be known.
func (s *Store) Add(ctx context.Context, item domain.CatalogItem, quantity int) error {
	user, err := s.requireUser()
	if err != nil {
		return err
	}
	if quantity < 1 {
		return domain.ErrInvalidQuantity
	}
	stock, ok := item.KnownStock()
	if !ok {
		return domain.ErrInvalidStockData
	}
	if quantity > stock {
		return &domain.InsufficientStockError{Item: item.Ref, Requested: quantity, Available: stock}
	}

	return s.mutate(ctx, lineguard.LineKey(user.ID, item.Ref), func(token string) error {
		s.logger.Info("adding item",
			zap.String("user_id", user.ID), zap.String("item_id", item.Ref.Key()), zap.Int("quantity", quantity))
		return s.remote.AddItem(ctx, token, item.Ref, quantity)
	})
}

// UpdateQuantity sets the quantity of an existing line. Zero is rejected: use Remove.
func (s *Store) UpdateQuantity(ctx context.Context, ref domain.ItemRef, quantity int) error {
	user, err := s.requireUser()
	if err != nil {
		return err
	}
	if quantity < 1 {
		return domain.ErrInvalidQuantity
	}
	line, ok := s.find(ref)
	if !ok {
		return fmt.Errorf("cart line %s: %w", ref.Key(), domain.ErrNotFound)
	}
	if quantity > line.AvailableStock {
		return &domain.InsufficientStockError{Item: ref, Requested: quantity, Available: line.AvailableStock}
	}

	return s.mutate(ctx, lineguard.LineKey(user.ID, ref), func(token string) error {
		s.logger.Info("updating quantity",
			zap.String("user_id", user.ID), zap.String("item_id", ref.Key()), zap.Int("quantity", quantity))
		return s.remote.SetQuantity(ctx, token, ref, quantity)
	})
}

// Remove deletes the line holding ref. Removing a line that is already gone succeeds.
func (s *Store) Remove(ctx context.Context, ref domain.ItemRef) error {
	user, err := s.requireUser()
	if err != nil {
		return err
	}
	return s.mutate(ctx, lineguard.LineKey(user.ID, ref), func(token string) error {
		s.logger.Info("removing item", zap.String("user_id", user.ID), zap.String("item_id", ref.Key()))
		err := s.remote.RemoveItem(ctx, token, ref)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	})
}

// RemovePurchased deletes exactly the given lines in one request. Lines without a
// cart line id (buy-now lines) are ignored.
func (s *Store) RemovePurchased(ctx context.Context, purchased []domain.CartLine) error {
	user, err := s.requireUser()
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(purchased))
	seen := make(map[string]struct{}, len(purchased))
	for _, l := range purchased {
		if l.ID == "" {
			continue
		}
		if _, dup := seen[l.ID]; dup {
			continue
		}
		seen[l.ID] = struct{}{}
		ids = append(ids, l.ID)
	}
	if len(ids) == 0 {
		return nil
	}

	return s.mutate(ctx, lineguard.CartKey(user.ID), func(token string) error {
		s.logger.Info("removing purchased lines", zap.String("user_id", user.ID), zap.Strings("line_ids", ids))
		return s.remote.RemoveLines(ctx, token, ids)
	})
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) error {
	user, err := s.requireUser()
	if err != nil {
		return err
	}
	return s.mutate(ctx, lineguard.CartKey(user.ID), func(token string) error {
		s.logger.Info("clearing cart", zap.String("user_id", user.ID))
		return s.remote.Clear(ctx, token)
	})
}

// ReloadError is returned when the storefront applied a change but the cart could
// not be re-read afterwards. Repeating the change would apply it twice; reload
// instead.
type ReloadError struct {
	Err error
}

func (e *ReloadError) Error() string {
	return "cart change applied but reload failed: " + e.Err.Error()
}

func (e *ReloadError) Unwrap() error { return e.Err }

func (e *ReloadError) Is(target error) bool { return target == domain.ErrCartStale }

// mutate claims key, runs call and reloads. A failed call leaves the lines as they
// were and skips the reload.
func (s *Store) mutate(ctx context.Context, key string, call func(token string) error) error {
	release, err := s.guard.Acquire(ctx, key)
	if err != nil {
		return err
	}
	defer release()

	prev := s.enterLoading()
	if err := call(s.session.Token()); err != nil {
		s.leaveLoading(prev)
		return err
	}
	s.leaveLoading(prev)
	if err := s.Load(ctx); err != nil {
		return &ReloadError{Err: err}
	}
	return nil
}

func (s *Store) requireUser() (domain.User, error) {
	u, ok := s.session.User()
	if !ok {
		return domain.User{}, domain.ErrUnauthenticated
	}
	return u, nil
}

func (s *Store) find(ref domain.ItemRef) (domain.CartLine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.Cart{Lines: s.lines}.Find(ref)
}

func (s *Store) nextSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadSeq++
	return s.loadSeq
}

func (s *Store) enterLoading() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.state
	if prev == StateLoading {
		// Another call is already loading; it restores Ready when it finishes.
		prev = StateReady
	}
	s.state = StateLoading
	return prev
}

func (s *Store) leaveLoading(prev State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateLoading {
		s.state = prev
	}
}

// apply installs lines unless a newer load already landed.
func (s *Store) apply(lines []domain.CartLine, seq uint64) {
	s.mu.Lock()
	if seq < s.appliedAt {
		if s.state == StateLoading {
			s.state = StateReady
		}
		s.mu.Unlock()
		return
	}
	s.appliedAt = seq
	s.lines = domain.CloneLines(lines)
	s.state = StateReady
	listeners := make([]func([]domain.CartLine), len(s.listeners))
	copy(listeners, s.listeners)
	snapshot := domain.CloneLines(s.lines)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}

func (s *Store) reset() {
	s.mu.Lock()
	s.loadSeq++
	s.appliedAt = s.loadSeq
	s.lines = nil
	s.state = StateUninitialized
	listeners := make([]func([]domain.CartLine), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(nil)
	}
}
