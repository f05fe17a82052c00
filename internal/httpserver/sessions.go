package httpserver

import (
	"context"
	"sync"
	"time"

	"coffeecart/internal/domain"
	"coffeecart/internal/events"
	"coffeecart/internal/lineguard"
	"coffeecart/internal/service/cart"
	"coffeecart/internal/service/checkout"
	"coffeecart/internal/session"
	"go.uber.org/zap"
)

// Storefront is everything the API consumes from the storefront.
type Storefront interface {
	cart.Remote
	checkout.Remote
	checkout.AddressBook
	Me(ctx context.Context, token string) (*domain.User, error)
	Item(ctx context.Context, token string, ref domain.ItemRef) (*domain.CatalogItem, error)
	Order(ctx context.Context, token, orderID string) (*domain.Order, error)
}

// clientSession bundles the per-user components. They share one Session.
type clientSession struct {
	token     string
	session   *session.Session
	cart      *cart.Store
	selection *checkout.Selection
	checkout  *checkout.Coordinator

	mu       sync.Mutex
	lastSeen time.Time
}

func (cs *clientSession) touch(now time.Time) {
	cs.mu.Lock()
	cs.lastSeen = now
	cs.mu.Unlock()
}

func (cs *clientSession) idleSince() time.Time {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.lastSeen
}

func (cs *clientSession) user() domain.User {
	u, _ := cs.session.User()
	return u
}

// Registry keeps one clientSession per bearer token and tears idle ones down.
type Registry struct {
	remote    Storefront
	guard     lineguard.Guard
	publisher events.Publisher
	idle      time.Duration
	logger    *zap.Logger
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*clientSession
}

func NewRegistry(remote Storefront, guard lineguard.Guard, publisher events.Publisher, idle time.Duration, logger *zap.Logger) *Registry {
	if guard == nil {
		guard = lineguard.NewMemory()
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	return &Registry{
		remote:    remote,
		guard:     guard,
		publisher: publisher,
		idle:      idle,
		logger:    logger,
		now:       time.Now,
		sessions:  make(map[string]*clientSession),
	}
}

// Get returns the session for token, starting one (identity lookup and first cart
// load) on first sight.
func (r *Registry) Get(ctx context.Context, token string) (*clientSession, error) {
	r.mu.Lock()
	cs, ok := r.sessions[token]
	r.mu.Unlock()
	if ok {
		cs.touch(r.now())
		return cs, nil
	}

	user, err := r.remote.Me(ctx, token)
	if err != nil {
		return nil, err
	}
	cs = r.start(*user, token)
	if err := cs.cart.Load(ctx); err != nil {
		cs.session.Teardown()
		return nil, err
	}

	r.mu.Lock()
	if existing, ok := r.sessions[token]; ok {
		r.mu.Unlock()
		cs.session.Teardown()
		existing.touch(r.now())
		return existing, nil
	}
	r.sessions[token] = cs
	r.mu.Unlock()
	r.logger.Info("session started", zap.String("user_id", user.ID))
	return cs, nil
}

func (r *Registry) start(user domain.User, token string) *clientSession {
	sess := session.New()
	sess.Init(user, token)
	store := cart.New(sess, r.remote, r.guard, r.logger)
	sel := checkout.NewSelection()
	store.OnChange(func(lines []domain.CartLine) { sel.Sync(lines) })
	coord := checkout.New(sess, r.remote, r.remote, store, r.publisher, r.logger)
	return &clientSession{
		token:     token,
		session:   sess,
		cart:      store,
		selection: sel,
		checkout:  coord,
		lastSeen:  r.now(),
	}
}

// End tears down the session for token, if any.
func (r *Registry) End(token string) bool {
	r.mu.Lock()
	cs, ok := r.sessions[token]
	delete(r.sessions, token)
	r.mu.Unlock()
	if ok {
		r.logger.Info("session ended", zap.String("user_id", cs.user().ID))
		cs.session.Teardown()
	}
	return ok
}

// Sweep ends sessions idle for longer than the idle timeout.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idle)
	var stale []*clientSession
	r.mu.Lock()
	for token, cs := range r.sessions {
		if cs.idleSince().Before(cutoff) {
			stale = append(stale, cs)
			delete(r.sessions, token)
		}
	}
	r.mu.Unlock()
	for _, cs := range stale {
		cs.session.Teardown()
	}
	return len(stale)
}

// Run sweeps periodically until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	interval := r.idle / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Info("idle sessions evicted", zap.Int("count", n))
			}
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
