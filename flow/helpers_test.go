package flow_test

import (
	"context"
	"sync"
	"testing"

	"github.com/Danohx/modasarita-auth/gateway"
	"github.com/Danohx/modasarita-auth/gateway/serverfake"
	"github.com/Danohx/modasarita-auth/session"
	"github.com/Danohx/modasarita-auth/session/repofake"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "a@b.com"
	testPassword = "Secreta.123"
)

// recordingNavigator remembers every navigation.
type recordingNavigator struct {
	mu    sync.Mutex
	paths []string
	repl  []bool
}

func (n *recordingNavigator) Navigate(path string, replace bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
	n.repl = append(n.repl, replace)
}

func (n *recordingNavigator) last() (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.paths) == 0 {
		return "", false
	}
	return n.paths[len(n.paths)-1], n.repl[len(n.repl)-1]
}

// stubGateway answers with the configured functions and counts calls.
type stubGateway struct {
	mu    sync.Mutex
	calls int

	login       func(ctx context.Context, correo, contrasena string) (gateway.LoginResult, error)
	magicLink   func(ctx context.Context, correo string) error
	verifyMagic func(ctx context.Context, token string) (gateway.LoginResult, error)
	verify2FA   func(ctx context.Context, tempToken, code string) (gateway.LoginResult, error)
	forgot      func(ctx context.Context, correo string) error
}

func (g *stubGateway) count() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
}

func (g *stubGateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *stubGateway) Login(ctx context.Context, correo, contrasena string) (gateway.LoginResult, error) {
	g.count()
	return g.login(ctx, correo, contrasena)
}

func (g *stubGateway) RequestMagicLink(ctx context.Context, correo string) error {
	g.count()
	return g.magicLink(ctx, correo)
}

func (g *stubGateway) VerifyMagicLink(ctx context.Context, token string) (gateway.LoginResult, error) {
	g.count()
	return g.verifyMagic(ctx, token)
}

func (g *stubGateway) VerifyTwoFactor(ctx context.Context, tempToken, code string) (gateway.LoginResult, error) {
	g.count()
	return g.verify2FA(ctx, tempToken, code)
}

func (g *stubGateway) ForgotPassword(ctx context.Context, correo string) error {
	g.count()
	return g.forgot(ctx, correo)
}

// blockingLogin returns a login func that signals started and waits for release
// or cancellation before answering with result.
func blockingLogin(started chan<- struct{}, release <-chan struct{}, result gateway.LoginResult) func(context.Context, string, string) (gateway.LoginResult, error) {
	return func(ctx context.Context, _, _ string) (gateway.LoginResult, error) {
		started <- struct{}{}
		select {
		case <-release:
			return result, nil
		case <-ctx.Done():
			<-release
			return gateway.LoginResult{}, &gateway.Error{Kind: gateway.KindTransport, Err: ctx.Err()}
		}
	}
}

// stack is the full client wired against a fake remote service.
type stack struct {
	srv     *serverfake.Server
	client  *gateway.Client
	store   *repofake.FakeTokenStore
	manager *session.Manager
	nav     *recordingNavigator
}

func newStack(t *testing.T, accounts ...serverfake.Account) *stack {
	t.Helper()
	srv := serverfake.New(accounts...)
	t.Cleanup(srv.Close)

	client := gateway.New(srv.URL, gateway.WithLogger(zerolog.Nop()))
	store := repofake.NewFakeTokenStore()
	manager := session.NewManager(store, client, session.WithLogger(zerolog.Nop()))
	require.NoError(t, manager.Init(context.Background()))

	return &stack{srv: srv, client: client, store: store, manager: manager, nav: &recordingNavigator{}}
}
