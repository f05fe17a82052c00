package session

import (
	"sync"

	"coffeecart/internal/domain"
)

// Session holds the authenticated user a cart and a checkout run are scoped to.
// Components receive it by reference and read the user on every call.
type Session struct {
	mu         sync.RWMutex
	user       *domain.User
	token      string
	onTeardown []func()
}

func New() *Session {
	return &Session{}
}

// Init binds the session to a user. Re-initialising with another user tears the
// previous one down first.
func (s *Session) Init(user domain.User, token string) {
	s.mu.Lock()
	switched := s.user != nil && s.user.ID != user.ID
	s.mu.Unlock()
	if switched {
		s.Teardown()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := user
	s.user = &u
	s.token = token
}

// Teardown forgets the user and runs the registered hooks.
func (s *Session) Teardown() {
	s.mu.Lock()
	s.user = nil
	s.token = ""
	hooks := make([]func(), len(s.onTeardown))
	copy(hooks, s.onTeardown)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

// OnTeardown registers fn to run on every Teardown.
func (s *Session) OnTeardown(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTeardown = append(s.onTeardown, fn)
}

func (s *Session) User() (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return domain.User{}, false
	}
	return *s.user, true
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Authenticated reports whether a user is bound.
func (s *Session) Authenticated() bool {
	_, ok := s.User()
	return ok
}
