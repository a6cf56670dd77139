package session

import (
	"context"
	"sync"

	"github.com/Danohx/modasarita-auth/internal/errors"
	"github.com/Danohx/modasarita-auth/internal/metrics"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Revoker is the part of the remote service the manager needs to end sessions.
type Revoker interface {
	Logout(ctx context.Context, refreshToken string) error
	RevokeAll(ctx context.Context, accessToken string) error
}

// Manager owns the in-process authenticated context. It is the only writer of
// the TokenStore and the source of truth for IsAuthenticated.
type Manager struct {
	store   TokenStore
	revoker Revoker
	logger  zerolog.Logger
	metrics *metrics.Metrics

	mu        sync.RWMutex
	current   *Session
	observers []func(authenticated bool)
}

type ManagerOption func(*Manager)

func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithMetrics(mt *metrics.Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// NewManager creates a logged-out manager. Call Init to rehydrate from the store.
func NewManager(store TokenStore, revoker Revoker, options ...ManagerOption) *Manager {
	m := &Manager{
		store:   store,
		revoker: revoker,
		logger:  log.Logger,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Init reads the store once. A stored session marks the manager authenticated
// without contacting the server. Any load failure leaves it logged out; only
// failures other than "no session" are returned.
func (m *Manager) Init(ctx context.Context) error {
	s, err := m.store.Load(ctx)
	if err != nil {
		if errors.Is(err, errors.ErrNoSession) {
			return nil
		}
		m.logger.Err(err).Msg("failed to load stored session")
		return errors.Wrapf(err, "init session")
	}

	m.set(&s)
	m.logger.Debug().Int64("userID", s.User.ID).Msg("session restored")
	return nil
}

// Login persists s and then marks the manager authenticated. If persisting
// fails nothing changes and the error is returned.
func (m *Manager) Login(ctx context.Context, s Session) error {
	if err := m.store.Save(ctx, s); err != nil {
		m.logger.Err(err).Msg("failed to persist session")
		return errors.Wrapf(err, "login")
	}

	m.set(&s)
	m.logger.Info().Int64("userID", s.User.ID).Msg("logged in")
	return nil
}

// Logout ends this device's session. The server is notified on a best-effort
// basis; local state and the store are cleared regardless of its answer.
func (m *Manager) Logout(ctx context.Context) {
	refreshToken := ""
	if s, ok := m.Session(); ok {
		refreshToken = s.RefreshToken
	}

	result := "skipped"
	if refreshToken != "" {
		result = "ok"
		if err := m.revoker.Logout(ctx, refreshToken); err != nil {
			result = "failed"
			m.logger.Warn().Err(err).Msg("server logout failed, clearing local session anyway")
		}
	}
	m.metrics.Logout("device", result)

	m.clear(ctx)
	m.logger.Info().Msg("logged out")
}

// LogoutAllDevices revokes every session of the user. Local state is cleared
// only after the server confirms; on failure the session is kept and the
// error returned.
func (m *Manager) LogoutAllDevices(ctx context.Context) error {
	s, ok := m.Session()
	if !ok {
		return errors.ErrNotAuthenticated
	}

	if err := m.revoker.RevokeAll(ctx, s.AccessToken); err != nil {
		m.metrics.Logout("all", "failed")
		m.logger.Err(err).Msg("revoke-all failed, session kept")
		return errors.Wrapf(err, "logout all devices")
	}
	m.metrics.Logout("all", "ok")

	m.clear(ctx)
	m.logger.Info().Msg("all sessions revoked")
	return nil
}

// clear drops the local session. The store is cleared even when ctx was
// cancelled while the server was being told.
func (m *Manager) clear(ctx context.Context) {
	if err := m.store.Clear(context.WithoutCancel(ctx)); err != nil {
		m.logger.Err(err).Msg("failed to clear stored session")
	}
	m.set(nil)
}

func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current != nil
}

// User returns the profile captured at login.
func (m *Manager) User() (User, bool) {
	s, ok := m.Session()
	return s.User, ok
}

func (m *Manager) Session() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return Session{}, false
	}
	return *m.current, true
}

// OnChange registers fn to be called after every change of the authenticated flag.
func (m *Manager) OnChange(fn func(authenticated bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

func (m *Manager) set(s *Session) {
	m.mu.Lock()
	was := m.current != nil
	m.current = s
	now := m.current != nil
	observers := append([]func(bool){}, m.observers...)
	m.mu.Unlock()

	if was == now {
		return
	}
	for _, fn := range observers {
		fn(now)
	}
}
