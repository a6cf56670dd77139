package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/Danohx/modasarita-auth/internal/errors"
	"github.com/Danohx/modasarita-auth/internal/metrics"
	"github.com/Danohx/modasarita-auth/session"
	"github.com/Danohx/modasarita-auth/session/repofake"
	"github.com/golang-jwt/jwt/v5"
	pkgerrors "github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var testSession = session.Session{
	AccessToken:  "A1",
	RefreshToken: "R1",
	User:         session.User{ID: 1, DisplayName: "Ana", Email: "a@b.com"},
}

type managerFixture struct {
	store   *repofake.FakeTokenStore
	revoker *repofake.FakeRevoker
	metrics *metrics.Metrics
	manager *session.Manager
	changes []bool
}

func newManagerFixture(t *testing.T, store *repofake.FakeTokenStore) *managerFixture {
	t.Helper()
	f := &managerFixture{
		store:   store,
		revoker: &repofake.FakeRevoker{},
		metrics: metrics.New(prometheus.NewRegistry()),
	}
	f.manager = session.NewManager(f.store, f.revoker,
		session.WithLogger(zerolog.Nop()),
		session.WithMetrics(f.metrics),
	)
	f.manager.OnChange(func(authenticated bool) {
		f.changes = append(f.changes, authenticated)
	})
	return f
}

func TestManagerInit(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store stays logged out", func(t *testing.T) {
		f := newManagerFixture(t, repofake.NewFakeTokenStore())
		require.NoError(t, f.manager.Init(ctx))
		require.False(t, f.manager.IsAuthenticated())
		require.Empty(t, f.changes)
	})

	t.Run("stored session restores without contacting the server", func(t *testing.T) {
		f := newManagerFixture(t, repofake.NewFakeTokenStoreWith(testSession))
		require.NoError(t, f.manager.Init(ctx))
		require.True(t, f.manager.IsAuthenticated())

		user, ok := f.manager.User()
		require.True(t, ok)
		require.Equal(t, testSession.User, user)
		require.Empty(t, f.revoker.LoggedOut)
		require.Empty(t, f.revoker.RevokedAll)
		require.Equal(t, []bool{true}, f.changes)
	})

	t.Run("unreadable store stays logged out", func(t *testing.T) {
		store := repofake.NewFakeTokenStoreWith(testSession)
		store.LoadErr = pkgerrors.New("disk on fire")
		f := newManagerFixture(t, store)

		require.Error(t, f.manager.Init(ctx))
		require.False(t, f.manager.IsAuthenticated())
	})
}

func TestManagerLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("persists then authenticates", func(t *testing.T) {
		f := newManagerFixture(t, repofake.NewFakeTokenStore())
		require.NoError(t, f.manager.Login(ctx, testSession))
		require.True(t, f.manager.IsAuthenticated())

		stored, ok := f.store.Stored()
		require.True(t, ok)
		require.Equal(t, testSession, stored)
		require.Equal(t, []bool{true}, f.changes)

		// A new manager over the same store sees the same session
		other := session.NewManager(f.store, f.revoker, session.WithLogger(zerolog.Nop()))
		require.NoError(t, other.Init(ctx))
		got, ok := other.Session()
		require.True(t, ok)
		require.Equal(t, testSession, got)
	})

	t.Run("store failure leaves manager logged out", func(t *testing.T) {
		store := repofake.NewFakeTokenStore()
		store.SaveErr = pkgerrors.New("quota exceeded")
		f := newManagerFixture(t, store)

		err := f.manager.Login(ctx, testSession)
		require.Error(t, err)
		require.Contains(t, err.Error(), "quota exceeded")
		require.False(t, f.manager.IsAuthenticated())
		require.Empty(t, f.changes)
	})
}

func TestManagerLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("notifies server and clears", func(t *testing.T) {
		f := newManagerFixture(t, repofake.NewFakeTokenStore())
		require.NoError(t, f.manager.Login(ctx, testSession))

		f.manager.Logout(ctx)
		require.False(t, f.manager.IsAuthenticated())
		require.Equal(t, []string{"R1"}, f.revoker.LoggedOut)
		_, ok := f.store.Stored()
		require.False(t, ok)
		require.Equal(t, []bool{true, false}, f.changes)
		require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LogoutsTotal.WithLabelValues("device", "ok")))
	})

	t.Run("server failure still clears locally", func(t *testing.T) {
		f := newManagerFixture(t, repofake.NewFakeTokenStore())
		f.revoker.LogoutErr = pkgerrors.New("503")
		require.NoError(t, f.manager.Login(ctx, testSession))

		f.manager.Logout(ctx)
		require.False(t, f.manager.IsAuthenticated())
		_, ok := f.store.Stored()
		require.False(t, ok)
		require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LogoutsTotal.WithLabelValues("device", "failed")))
	})

	t.Run("no refresh token skips the server", func(t *testing.T) {
		f := newManagerFixture(t, repofake.NewFakeTokenStore())
		require.NoError(t, f.manager.Login(ctx, session.Session{AccessToken: "A1", User: testSession.User}))

		f.manager.Logout(ctx)
		require.Empty(t, f.revoker.LoggedOut)
		require.False(t, f.manager.IsAuthenticated())
	})

	t.Run("logged out manager still clears the store", func(t *testing.T) {
		f := newManagerFixture(t, repofake.NewFakeTokenStore())
		f.manager.Logout(ctx)
		require.Equal(t, 1, f.store.Clears)
		require.Empty(t, f.changes)
	})
}

func TestManagerLogoutAllDevices(t *testing.T) {
	ctx := context.Background()

	t.Run("success clears everything", func(t *testing.T) {
		f := newManagerFixture(t, repofake.NewFakeTokenStore())
		require.NoError(t, f.manager.Login(ctx, testSession))

		require.NoError(t, f.manager.LogoutAllDevices(ctx))
		require.Equal(t, []string{"A1"}, f.revoker.RevokedAll)
		require.False(t, f.manager.IsAuthenticated())
		_, ok := f.store.Stored()
		require.False(t, ok)
	})

	t.Run("failure keeps the session", func(t *testing.T) {
		f := newManagerFixture(t, repofake.NewFakeTokenStore())
		f.revoker.RevokeAllErr = pkgerrors.New("unauthorized")
		require.NoError(t, f.manager.Login(ctx, testSession))

		require.Error(t, f.manager.LogoutAllDevices(ctx))
		require.True(t, f.manager.IsAuthenticated())
		stored, ok := f.store.Stored()
		require.True(t, ok)
		require.Equal(t, testSession, stored)
		require.Zero(t, f.store.Clears)
		require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LogoutsTotal.WithLabelValues("all", "failed")))
	})

	t.Run("requires a session", func(t *testing.T) {
		f := newManagerFixture(t, repofake.NewFakeTokenStore())
		require.ErrorIs(t, f.manager.LogoutAllDevices(ctx), errors.ErrNotAuthenticated)
		require.Empty(t, f.revoker.RevokedAll)
	})
}

func TestAccessTokenExpiry(t *testing.T) {
	ctx := context.Background()
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1",
		"exp": exp.Unix(),
	}).SignedString([]byte("not-our-secret"))
	require.NoError(t, err)

	f := newManagerFixture(t, repofake.NewFakeTokenStore())
	_, err = f.manager.AccessTokenExpiry()
	require.ErrorIs(t, err, errors.ErrNotAuthenticated)

	require.NoError(t, f.manager.Login(ctx, session.Session{AccessToken: signed, RefreshToken: "R1"}))
	got, err := f.manager.AccessTokenExpiry()
	require.NoError(t, err)
	require.True(t, exp.Equal(got))

	_, err = session.TokenExpiry("opaque-token")
	require.Error(t, err)
}
