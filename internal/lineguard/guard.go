// Package lineguard serializes mutations of a single cart line. A second
// mutation of a line that is already being changed is rejected, not queued.
package lineguard

import (
	"context"
	"sync"

	"coffeecart/internal/domain"
)

// Guard hands out exclusive, non-blocking claims on keys.
type Guard interface {
	// Acquire claims key or fails with domain.ErrConflictInProgress.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Memory is a process-local Guard.
type Memory struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{held: make(map[string]struct{})}
}

func (m *Memory) Acquire(_ context.Context, key string) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.held[key]; busy {
		return nil, domain.ErrConflictInProgress
	}
	m.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.held, key)
			m.mu.Unlock()
		})
	}, nil
}

// LineKey scopes an item to a user.
func LineKey(userID string, ref domain.ItemRef) string {
	return "cart-line:" + userID + ":" + ref.Key()
}

// CartKey scopes whole-cart operations to a user.
func CartKey(userID string) string {
	return "cart-all:" + userID
}
