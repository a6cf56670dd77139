package flow

import (
	"context"
	"sync"

	"github.com/Danohx/modasarita-auth/gateway"
	"github.com/Danohx/modasarita-auth/internal/errors"
	"github.com/Danohx/modasarita-auth/internal/metrics"
	"github.com/Danohx/modasarita-auth/internal/routes"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RedeemGateway is the part of the remote service a magic-link landing needs.
type RedeemGateway interface {
	VerifyMagicLink(ctx context.Context, token string) (gateway.LoginResult, error)
	VerifyTwoFactor(ctx context.Context, tempToken, otpCode string) (gateway.LoginResult, error)
}

// Redeemer handles arrival through a magic link. Each token is sent to the
// server at most once; asking again returns the recorded state. Leaving for
// the login form cancels whatever is in flight and its answer is discarded.
type Redeemer struct {
	gw       RedeemGateway
	sessions Sessions
	nav      Navigator
	logger   zerolog.Logger
	metrics  *metrics.Metrics

	mu         sync.Mutex
	token      string
	state      State
	inFlight   bool
	generation uint64
	cancel     context.CancelFunc
	attempts   map[string]State
}

type RedeemerOption func(*Redeemer)

func WithRedeemerLogger(logger zerolog.Logger) RedeemerOption {
	return func(r *Redeemer) {
		r.logger = logger
	}
}

func WithRedeemerMetrics(m *metrics.Metrics) RedeemerOption {
	return func(r *Redeemer) {
		r.metrics = m
	}
}

func NewRedeemer(gw RedeemGateway, sessions Sessions, nav Navigator, options ...RedeemerOption) *Redeemer {
	r := &Redeemer{
		gw:       gw,
		sessions: sessions,
		nav:      nav,
		logger:   log.Logger,
		attempts: make(map[string]State),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// State returns the state of the most recent redemption, nil before the first.
func (r *Redeemer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Redeem verifies token with the server. On success the session is stored and
// the view is sent home, replacing the landing route in history.
func (r *Redeemer) Redeem(ctx context.Context, token string) (State, error) {
	r.mu.Lock()
	if prev, ok := r.attempts[token]; ok {
		r.mu.Unlock()
		return prev, errors.ErrAlreadyRedeemed
	}
	if r.inFlight {
		r.mu.Unlock()
		return r.state, errors.ErrRequestInFlight
	}

	if token == "" {
		failed := RedeemFailed{Message: MsgMissingMagicToken}
		r.record(token, failed)
		r.mu.Unlock()
		return failed, errors.ErrMissingToken
	}
	r.token = token
	reqCtx, gen, cancel := r.begin(ctx)
	defer cancel()
	r.mu.Unlock()

	result, err := r.gw.VerifyMagicLink(reqCtx, token)
	if r.stale(gen) {
		return r.discard("redeem")
	}

	var next State
	switch {
	case err != nil:
		next = RedeemFailed{Message: gateway.UserMessage(err, MsgRedeemFailed)}
	case result.Requires2FA:
		next = TwoFactorPending{TempToken: result.TempToken}
	default:
		if err = r.sessions.Login(ctx, result.Session); err != nil {
			next = RedeemFailed{Message: gateway.UnexpectedMessage}
		} else {
			next = Authenticated{}
		}
	}

	if !r.end(token, gen, next) {
		return r.discard("redeem")
	}
	r.finish("redeem", next, err)
	return next, err
}

// SubmitOTP completes a redemption that required a second factor. A wrong code
// keeps the temp token for another try.
func (r *Redeemer) SubmitOTP(ctx context.Context, code string) (State, error) {
	r.mu.Lock()
	pending, ok := r.state.(TwoFactorPending)
	if !ok {
		r.mu.Unlock()
		return r.state, errors.Wrapf(errors.ErrIllegalTransition, "submit_otp on %v", kindOf(r.state))
	}
	if r.inFlight {
		r.mu.Unlock()
		return r.state, errors.ErrRequestInFlight
	}
	if msg := checkOTP(code); msg != "" {
		next := TwoFactorPending{TempToken: pending.TempToken, Error: msg}
		r.record(r.token, next)
		r.mu.Unlock()
		return next, errors.Wrapf(errors.ErrValidation, "%s", msg)
	}
	token := r.token
	reqCtx, gen, cancel := r.begin(ctx)
	defer cancel()
	r.mu.Unlock()

	result, err := r.gw.VerifyTwoFactor(reqCtx, pending.TempToken, code)
	if r.stale(gen) {
		return r.discard("submit_otp")
	}

	in, sess := loginInput("", result, err, MsgTwoFactorFailed)
	in.Action = ActionSubmitOTP
	if sess != nil {
		if err = r.sessions.Login(ctx, *sess); err != nil {
			in = Input{Action: ActionSubmitOTP, Outcome: OutcomeFailed, Message: gateway.UnexpectedMessage}
		}
	}

	next, terr := Transition(pending, in)
	if terr != nil {
		next, err = pending, terr
	}

	if !r.end(token, gen, next) {
		return r.discard("submit_otp")
	}
	r.finish("submit_otp", next, err)
	return next, err
}

// BackToLogin leaves the redemption for the login form. A request in flight is
// cancelled and a pending second factor, temp token included, is dropped.
func (r *Redeemer) BackToLogin() {
	r.mu.Lock()
	r.generation++
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	_, pending := r.state.(TwoFactorPending)
	if (pending || r.inFlight) && r.token != "" {
		r.record(r.token, Initial())
	}
	r.inFlight = false
	r.mu.Unlock()

	r.nav.Navigate(routes.RouteLogin, false)
}

// begin marks a request in flight and returns its context and generation.
// Callers hold r.mu.
func (r *Redeemer) begin(ctx context.Context) (context.Context, uint64, context.CancelFunc) {
	r.inFlight = true
	r.generation++
	reqCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	return reqCtx, r.generation, cancel
}

// end records next for token unless the user left while it was being decided.
// A stored session always wins: the server-side session exists.
func (r *Redeemer) end(token string, gen uint64, next State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := gen == r.generation
	authenticated := next.Kind() == KindAuthenticated
	if !current && !authenticated {
		return false
	}
	if current {
		r.inFlight = false
		r.cancel = nil
	}
	if authenticated {
		r.generation++
	}
	r.record(token, next)
	return true
}

func (r *Redeemer) stale(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return gen != r.generation
}

func (r *Redeemer) discard(step string) (State, error) {
	r.logger.Debug().Str("step", step).Msg("discarding response for a redemption the user left")
	return r.State(), errors.Wrapf(errors.ErrStaleResponse, "%s", step)
}

// record stores s as the state for token. Callers hold r.mu.
func (r *Redeemer) record(token string, s State) {
	r.attempts[token] = s
	r.token = token
	r.state = s
}

func (r *Redeemer) finish(step string, next State, err error) {
	r.metrics.FlowOutcome("magic_verify", next.Kind().String())

	evt := r.logger.Info()
	if err != nil {
		evt = r.logger.Warn().Err(err)
	}
	evt.Str("step", step).Stringer("state", next.Kind()).Msg("magic link redemption")

	if next.Kind() == KindAuthenticated {
		r.nav.Navigate(routes.RouteHome, true)
	}
}

func kindOf(s State) string {
	if s == nil {
		return "none"
	}
	return s.Kind().String()
}
