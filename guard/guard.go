// Package guard gates protected views on the live authentication state.
package guard

import (
	"net/http"

	"github.com/Danohx/modasarita-auth/internal/routes"
)

// Authenticator reports the current authentication state.
type Authenticator interface {
	IsAuthenticated() bool
}

// Guard consults its Authenticator on every call; nothing is cached.
type Guard struct {
	auth     Authenticator
	loginURL string
}

func New(auth Authenticator) *Guard {
	return &Guard{auth: auth, loginURL: routes.RouteLogin}
}

// Allow reports whether a protected view may be shown.
func (g *Guard) Allow() bool {
	return g.auth.IsAuthenticated()
}

// Check returns where to send the user instead of path, or "" if path may be shown.
func (g *Guard) Check(path string) string {
	if routes.IsProtected(path) && !g.Allow() {
		return g.loginURL
	}
	return ""
}

// Require redirects unauthenticated requests to the login view.
func (g *Guard) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.Allow() {
			http.Redirect(w, r, g.loginURL, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Protect applies Require only to the protected routes.
func (g *Guard) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if target := g.Check(r.URL.Path); target != "" {
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Chain applies middleware so the first one listed runs first.
func Chain(h http.Handler, mw ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}
