package repofake

import (
	"context"
	"sync"

	"github.com/Danohx/modasarita-auth/internal/errors"
	"github.com/Danohx/modasarita-auth/session"
)

var _ session.TokenStore = (*FakeTokenStore)(nil)

// FakeTokenStore is an in-memory TokenStore whose operations can be made to fail.
type FakeTokenStore struct {
	lock    sync.RWMutex
	session *session.Session

	SaveErr  error
	LoadErr  error
	ClearErr error

	Saves  int
	Clears int
}

func NewFakeTokenStore() *FakeTokenStore {
	return &FakeTokenStore{}
}

// NewFakeTokenStoreWith returns a store already holding s.
func NewFakeTokenStoreWith(s session.Session) *FakeTokenStore {
	return &FakeTokenStore{session: &s}
}

func (f *FakeTokenStore) Save(_ context.Context, s session.Session) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.Saves++
	if f.SaveErr != nil {
		return f.SaveErr
	}
	f.session = &s
	return nil
}

func (f *FakeTokenStore) Load(_ context.Context) (session.Session, error) {
	f.lock.RLock()
	defer f.lock.RUnlock()

	if f.LoadErr != nil {
		return session.Session{}, f.LoadErr
	}
	if f.session == nil {
		return session.Session{}, errors.ErrNoSession
	}
	return *f.session, nil
}

func (f *FakeTokenStore) Clear(_ context.Context) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.Clears++
	if f.ClearErr != nil {
		return f.ClearErr
	}
	f.session = nil
	return nil
}

// Stored returns the persisted session, if any.
func (f *FakeTokenStore) Stored() (session.Session, bool) {
	f.lock.RLock()
	defer f.lock.RUnlock()

	if f.session == nil {
		return session.Session{}, false
	}
	return *f.session, true
}

// FakeRevoker records revocation calls and returns the configured errors.
type FakeRevoker struct {
	lock sync.Mutex

	LogoutErr    error
	RevokeAllErr error

	// OnCall, if set, runs at the start of every call. Tests use it to cancel
	// the caller's context while the server is being told.
	OnCall func()

	LoggedOut  []string // refresh tokens passed to Logout
	RevokedAll []string // access tokens passed to RevokeAll
}

var _ session.Revoker = (*FakeRevoker)(nil)

func (r *FakeRevoker) Logout(_ context.Context, refreshToken string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.called()
	r.LoggedOut = append(r.LoggedOut, refreshToken)
	return r.LogoutErr
}

func (r *FakeRevoker) RevokeAll(_ context.Context, accessToken string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.called()
	r.RevokedAll = append(r.RevokedAll, accessToken)
	return r.RevokeAllErr
}

func (r *FakeRevoker) called() {
	if r.OnCall != nil {
		r.OnCall()
	}
}
