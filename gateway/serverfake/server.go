// Package serverfake is an in-process stand-in for the remote authentication
// service, used by tests and local development.
package serverfake

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/Danohx/modasarita-auth/internal/routes"
	"golang.org/x/crypto/bcrypt"
)

const contentTypeJSON = "application/json"

// Account is a user known to the fake service.
type Account struct {
	ID       int64
	Nombre   string
	Correo   string
	Password string // plain text on input, hashed on AddAccount

	// FixedOTP, when set, is the only accepted second-factor code.
	// Otherwise codes are checked against TOTPSecret. Either enables 2FA.
	FixedOTP   string
	TOTPSecret string

	passwordHash  []byte
	pendingSecret string
}

func (a *Account) setPassword(password string) {
	a.passwordHash, _ = bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	a.Password = ""
}

func (a *Account) checkPassword(password string) bool {
	return bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)) == nil
}

func (a *Account) twoFactorEnabled() bool {
	return a.FixedOTP != "" || a.TOTPSecret != ""
}

type Server struct {
	*httptest.Server

	// Now is used for TOTP validation.
	Now func() time.Time

	// Hook, if set, runs before each request is handled. Tests use it to hold requests.
	Hook func(endpoint string)

	mu           sync.Mutex
	accounts     map[string]*Account // correo -> account
	nextID       int64
	counters     map[string]int // token prefix -> last issued number
	tempTokens   map[string]string
	magicTokens  map[string]string
	resetTokens  map[string]string
	accessTokens map[string]string
	refreshToken map[string]string
	rateLimited  map[string]bool
	failures     map[string]int // endpoint -> forced status
	calls        map[string]int
	lastRequest  map[string]*http.Request
}

// New starts a fake service holding accounts.
func New(accounts ...Account) *Server {
	s := &Server{
		Now:          time.Now,
		accounts:     make(map[string]*Account),
		counters:     make(map[string]int),
		tempTokens:   make(map[string]string),
		magicTokens:  make(map[string]string),
		resetTokens:  make(map[string]string),
		accessTokens: make(map[string]string),
		refreshToken: make(map[string]string),
		rateLimited:  make(map[string]bool),
		failures:     make(map[string]int),
		calls:        make(map[string]int),
		lastRequest:  make(map[string]*http.Request),
	}
	for _, a := range accounts {
		s.AddAccount(a)
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	handle := func(endpoint string, h http.HandlerFunc) {
		mux.HandleFunc("POST "+endpoint, s.track(endpoint, h))
	}

	handle(routes.EndpointLogin, s.loginHandler)
	handle(routes.EndpointRegister, s.registerHandler)
	handle(routes.EndpointMagicLink, s.magicLinkHandler)
	handle(routes.EndpointMagicVerify, s.magicVerifyHandler)
	handle(routes.EndpointTwoFactor, s.twoFactorHandler)
	handle(routes.EndpointForgotPassword, s.forgotPasswordHandler)
	handle(routes.EndpointResetPassword, s.resetPasswordHandler)
	handle(routes.EndpointLogout, s.logoutHandler)
	handle(routes.EndpointRevokeAll, s.revokeAllHandler)
	handle(routes.EndpointTwoFactorSetup, s.twoFactorSetupHandler)
	handle(routes.EndpointTwoFactorEnable, s.twoFactorEnableHandler)
	return mux
}

// track counts calls and applies forced failures before the handler runs.
func (s *Server) track(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Hook != nil {
			s.Hook(endpoint)
		}

		s.mu.Lock()
		s.calls[endpoint]++
		s.lastRequest[endpoint] = r.Clone(r.Context())
		limited := s.rateLimited[endpoint]
		forced := s.failures[endpoint]
		s.mu.Unlock()

		if limited {
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"mensaje": "Demasiadas solicitudes desde esta IP."})
			return
		}
		if forced != 0 {
			writeJSON(w, forced, map[string]string{"mensaje": http.StatusText(forced)})
			return
		}
		next(w, r)
	}
}

// AddAccount registers a user. A zero ID is assigned automatically.
func (s *Server) AddAccount(a Account) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	if a.ID == 0 {
		a.ID = s.nextID
	}
	a.setPassword(a.Password)
	s.accounts[strings.ToLower(a.Correo)] = &a
}

// Account returns a copy of the stored account. Password is always empty.
func (s *Server) Account(correo string) (Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[strings.ToLower(correo)]
	if !ok {
		return Account{}, false
	}
	return *a, true
}

// SetRateLimited makes endpoint answer 429 until cleared.
func (s *Server) SetRateLimited(endpoint string, limited bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateLimited[endpoint] = limited
}

// FailWith makes endpoint answer status until cleared with 0.
func (s *Server) FailWith(endpoint string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[endpoint] = status
}

// Calls returns how many requests endpoint has received.
func (s *Server) Calls(endpoint string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[endpoint]
}

// TotalCalls returns the number of requests received on any endpoint.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

// LastRequest returns the most recent request received on endpoint (body already consumed).
func (s *Server) LastRequest(endpoint string) *http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRequest[endpoint]
}

// MagicToken returns the last magic-link token emailed to correo.
func (s *Server) MagicToken(correo string) (string, bool) {
	return s.tokenFor(s.magicTokens, correo)
}

// ResetToken returns the last reset token emailed to correo.
func (s *Server) ResetToken(correo string) (string, bool) {
	return s.tokenFor(s.resetTokens, correo)
}

// ActiveSessions returns the refresh tokens currently valid for correo.
func (s *Server) ActiveSessions(correo string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for tok, owner := range s.refreshToken {
		if owner == strings.ToLower(correo) {
			out = append(out, tok)
		}
	}
	return out
}

func (s *Server) tokenFor(tokens map[string]string, correo string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	found, last := "", 0
	for tok, owner := range tokens {
		if owner != strings.ToLower(correo) {
			continue
		}
		var n int
		_, _ = fmt.Sscanf(tok[1:], "%d", &n)
		if n > last {
			found, last = tok, n
		}
	}
	return found, found != ""
}

// issue returns the next token with prefix, e.g. A1, A2. Callers hold s.mu.
func (s *Server) issue(prefix string) string {
	s.counters[prefix]++
	return fmt.Sprintf("%s%d", prefix, s.counters[prefix])
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeMensaje(w http.ResponseWriter, status int, mensaje string) {
	writeJSON(w, status, map[string]string{"mensaje": mensaje})
}

func decode(r *http.Request, into any) bool {
	return json.NewDecoder(r.Body).Decode(into) == nil
}
