package sqlitestore_test

import (
	"context"
	"path/filepath"
	"testing"

	autherrors "github.com/Danohx/modasarita-auth/internal/errors"
	"github.com/Danohx/modasarita-auth/session"
	"github.com/Danohx/modasarita-auth/session/sqlitestore"
	"github.com/Danohx/modasarita-auth/session/storetest"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, path string) *sqlitestore.Store {
	t.Helper()
	s, err := sqlitestore.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) session.TokenStore {
		return openStore(t, filepath.Join(t.TempDir(), "auth.db"))
	})
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "auth.db")

	first, err := sqlitestore.Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Save(ctx, storetest.Sample))
	require.NoError(t, first.Close())

	second := openStore(t, path)
	got, err := second.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, storetest.Sample, got)

	require.NoError(t, second.Clear(ctx))
	_, err = second.Load(ctx)
	require.ErrorIs(t, err, autherrors.ErrNoSession)
}

func TestSQLiteStoreLogout(t *testing.T) {
	storetest.RunLogout(t, func(t *testing.T) session.TokenStore {
		return openStore(t, filepath.Join(t.TempDir(), "auth.db"))
	})
}
