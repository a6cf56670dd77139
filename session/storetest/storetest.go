// Package storetest holds the behaviour every session.TokenStore backend must share.
package storetest

import (
	"context"
	"testing"

	"github.com/Danohx/modasarita-auth/internal/errors"
	"github.com/Danohx/modasarita-auth/session"
	"github.com/Danohx/modasarita-auth/session/repofake"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// Sample is the session used by Run.
var Sample = session.Session{
	AccessToken:  "A1",
	RefreshToken: "R1",
	User:         session.User{ID: 7, DisplayName: "Ana", Email: "a@b.com"},
}

// Run exercises the TokenStore contract against stores built by newStore.
// Each subtest gets a fresh store.
func Run(t *testing.T, newStore func(t *testing.T) session.TokenStore) {
	ctx := context.Background()

	t.Run("empty store reports no session", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Load(ctx)
		require.ErrorIs(t, err, errors.ErrNoSession)
	})

	t.Run("save then load round trips", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, Sample))

		got, err := s.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, Sample, got)
	})

	t.Run("save replaces previous session", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, Sample))

		next := session.Session{AccessToken: "A2", RefreshToken: "R2", User: session.User{ID: 8, DisplayName: "Luis"}}
		require.NoError(t, s.Save(ctx, next))

		got, err := s.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, next, got)
	})

	t.Run("clear removes everything", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, Sample))
		require.NoError(t, s.Clear(ctx))

		_, err := s.Load(ctx)
		require.ErrorIs(t, err, errors.ErrNoSession)
	})

	t.Run("clear on empty store is a no-op", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Clear(ctx))
	})

	t.Run("session without access token is refused", func(t *testing.T) {
		s := newStore(t)
		err := s.Save(ctx, session.Session{RefreshToken: "R1", User: Sample.User})
		require.ErrorIs(t, err, errors.ErrPartialSession)

		_, err = s.Load(ctx)
		require.ErrorIs(t, err, errors.ErrNoSession)
	})
}

// RunLogout checks that a Manager over stores built by newStore leaves them
// empty after logging out, even when the caller's context is cancelled while
// the server is being told.
func RunLogout(t *testing.T, newStore func(t *testing.T) session.TokenStore) {
	logoutAfterCancel := func(t *testing.T, logout func(ctx context.Context, m *session.Manager), revoker *repofake.FakeRevoker) {
		store := newStore(t)
		require.NoError(t, store.Save(context.Background(), Sample))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		revoker.OnCall = cancel

		m := session.NewManager(store, revoker, session.WithLogger(zerolog.Nop()))
		require.NoError(t, m.Init(ctx))
		require.True(t, m.IsAuthenticated())

		logout(ctx, m)
		require.False(t, m.IsAuthenticated())

		_, err := store.Load(context.Background())
		require.ErrorIs(t, err, errors.ErrNoSession)
	}

	t.Run("logout with cancelled context clears the store", func(t *testing.T) {
		revoker := &repofake.FakeRevoker{LogoutErr: context.Canceled}
		logoutAfterCancel(t, func(ctx context.Context, m *session.Manager) {
			m.Logout(ctx)
		}, revoker)
		require.Equal(t, []string{"R1"}, revoker.LoggedOut)
	})

	t.Run("logout all with cancelled context clears the store", func(t *testing.T) {
		revoker := &repofake.FakeRevoker{}
		logoutAfterCancel(t, func(ctx context.Context, m *session.Manager) {
			require.NoError(t, m.LogoutAllDevices(ctx))
		}, revoker)
		require.Equal(t, []string{"A1"}, revoker.RevokedAll)
	})
}
