package session

import (
	"context"
	"sync"

	"github.com/Danohx/modasarita-auth/internal/errors"
)

// Persisted record names. Every backend stores exactly these three records.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
)

// TokenStore persists the current session across process restarts.
// Save must be atomic from the caller's perspective: Load never observes a
// partially written session. Load returns errors.ErrNoSession when nothing
// (or only part of a session) is stored. Expiry is not enforced here.
type TokenStore interface {
	Save(ctx context.Context, s Session) error
	Load(ctx context.Context) (Session, error)
	Clear(ctx context.Context) error
}

// InMemoryTokenStore is a thread-safe, process-lifetime TokenStore.
type InMemoryTokenStore struct {
	mu      sync.RWMutex
	session *Session
}

var _ TokenStore = (*InMemoryTokenStore)(nil)

// NewInMemoryTokenStore creates an empty in-memory token store
func NewInMemoryTokenStore() *InMemoryTokenStore {
	return &InMemoryTokenStore{}
}

func (s *InMemoryTokenStore) Save(_ context.Context, sess Session) error {
	if sess.AccessToken == "" {
		return errors.Wrapf(errors.ErrPartialSession, "save")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy so later caller mutations are not observable
	stored := sess
	s.session = &stored
	return nil
}

func (s *InMemoryTokenStore) Load(_ context.Context) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session == nil {
		return Session{}, errors.ErrNoSession
	}
	return *s.session, nil
}

func (s *InMemoryTokenStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = nil
	return nil
}
