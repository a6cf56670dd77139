package session_test

import (
	"testing"

	"github.com/Danohx/modasarita-auth/session"
	"github.com/Danohx/modasarita-auth/session/storetest"
)

func TestInMemoryTokenStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) session.TokenStore {
		return session.NewInMemoryTokenStore()
	})
	storetest.RunLogout(t, func(t *testing.T) session.TokenStore {
		return session.NewInMemoryTokenStore()
	})
}
