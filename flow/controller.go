package flow

import (
	"context"
	"sync"

	"github.com/Danohx/modasarita-auth/gateway"
	"github.com/Danohx/modasarita-auth/internal/errors"
	"github.com/Danohx/modasarita-auth/internal/metrics"
	"github.com/Danohx/modasarita-auth/internal/routes"
	"github.com/Danohx/modasarita-auth/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LoginGateway is the part of the remote service the login flow talks to.
type LoginGateway interface {
	Login(ctx context.Context, correo, contrasena string) (gateway.LoginResult, error)
	RequestMagicLink(ctx context.Context, correo string) error
	VerifyTwoFactor(ctx context.Context, tempToken, otpCode string) (gateway.LoginResult, error)
	ForgotPassword(ctx context.Context, correo string) error
}

// Controller owns one login flow. All state changes happen under its lock;
// requests run outside it. At most one request is in flight. Navigating away
// cancels it, and its answer is then discarded.
type Controller struct {
	gw       LoginGateway
	sessions Sessions
	nav      Navigator
	logger   zerolog.Logger
	metrics  *metrics.Metrics

	mu         sync.Mutex
	state      State
	inFlight   bool
	generation uint64
	cancel     context.CancelFunc
	observers  []func(State)
}

type ControllerOption func(*Controller)

func WithLogger(logger zerolog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) ControllerOption {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithNavigator sends the view home once the flow reaches Authenticated.
func WithNavigator(nav Navigator) ControllerOption {
	return func(c *Controller) {
		c.nav = nav
	}
}

// WithObserver registers fn to be called with every new state.
func WithObserver(fn func(State)) ControllerOption {
	return func(c *Controller) {
		c.observers = append(c.observers, fn)
	}
}

func NewController(gw LoginGateway, sessions Sessions, options ...ControllerOption) *Controller {
	c := &Controller{
		gw:       gw,
		sessions: sessions,
		logger:   log.Logger,
		state:    Initial(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Busy reports whether a request is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

func (c *Controller) SubmitPassword(ctx context.Context, email, password string) (State, error) {
	invalid := firstProblem(checkEmail(email), checkPassword(password))
	return c.submit(ctx, ActionSubmitPassword, email, invalid, func(ctx context.Context, _ State) (Input, *session.Session, error) {
		result, err := c.gw.Login(ctx, email, password)
		in, sess := loginInput(email, result, err, MsgLoginFailed)
		return in, sess, err
	})
}

func (c *Controller) SubmitMagicLink(ctx context.Context, email string) (State, error) {
	return c.submit(ctx, ActionSubmitMagicLink, email, checkEmail(email), func(ctx context.Context, _ State) (Input, *session.Session, error) {
		err := c.gw.RequestMagicLink(ctx, email)
		return ackInput(email, err, MsgMagicLinkFailed), nil, err
	})
}

func (c *Controller) SubmitOTP(ctx context.Context, code string) (State, error) {
	return c.submit(ctx, ActionSubmitOTP, "", checkOTP(code), func(ctx context.Context, from State) (Input, *session.Session, error) {
		pending := from.(TwoFactorPending)
		result, err := c.gw.VerifyTwoFactor(ctx, pending.TempToken, code)
		in, sess := loginInput("", result, err, MsgTwoFactorFailed)
		return in, sess, err
	})
}

// SubmitForgotPassword requests a reset email. The outcome never depends on
// whether the account exists.
func (c *Controller) SubmitForgotPassword(ctx context.Context, email string) (State, error) {
	return c.submit(ctx, ActionSubmitForgotPassword, email, checkEmail(email), func(ctx context.Context, _ State) (Input, *session.Session, error) {
		err := c.gw.ForgotPassword(ctx, email)
		return ackInput(email, err, MsgForgotPasswordFailed), nil, err
	})
}

func (c *Controller) UseMagicLink() (State, error) {
	return c.navigate(ActionUseMagicLink)
}

func (c *Controller) UsePassword() (State, error) {
	return c.navigate(ActionUsePassword)
}

func (c *Controller) ForgotPassword() (State, error) {
	return c.navigate(ActionForgotPassword)
}

func (c *Controller) TryAnotherEmail() (State, error) {
	return c.navigate(ActionTryAnotherEmail)
}

// Back returns to the password form. Leaving TwoFactorPending drops the temp token.
func (c *Controller) Back() (State, error) {
	return c.navigate(ActionBack)
}

func (c *Controller) navigate(action Action) (State, error) {
	c.mu.Lock()
	next, err := Transition(c.state, Input{Action: action})
	if err != nil {
		c.mu.Unlock()
		return next, err
	}

	// Whatever was in flight belongs to the state we are leaving
	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.inFlight = false
	from := c.state
	c.state = next
	observers := c.observers
	c.mu.Unlock()

	c.logger.Debug().Stringer("from", from.Kind()).Stringer("to", next.Kind()).Stringer("action", action).Msg("flow navigation")
	notify(observers, next)
	return next, nil
}

type request func(ctx context.Context, from State) (Input, *session.Session, error)

func (c *Controller) submit(ctx context.Context, action Action, email, invalid string, call request) (State, error) {
	c.mu.Lock()
	from := c.state

	// Every submit is legal with a failed outcome exactly when it is legal at all
	if _, err := Transition(from, Input{Action: action, Outcome: OutcomeFailed}); err != nil {
		c.mu.Unlock()
		return from, err
	}
	if c.inFlight {
		c.mu.Unlock()
		return from, errors.ErrRequestInFlight
	}

	if invalid != "" {
		next, _ := Transition(from, Input{Action: action, Outcome: OutcomeRejected, Email: email, Message: invalid})
		c.state = next
		observers := c.observers
		c.mu.Unlock()

		c.metrics.FlowOutcome(from.Kind().String(), "invalid")
		notify(observers, next)
		return next, errors.Wrapf(errors.ErrValidation, "%s", invalid)
	}

	c.inFlight = true
	c.generation++
	gen := c.generation
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.cancel = cancel
	c.mu.Unlock()

	in, sess, callErr := call(reqCtx, from)
	in.Action = action

	if c.stale(gen) {
		c.logger.Debug().Stringer("action", action).Msg("discarding response for a state the user left")
		return c.State(), errors.Wrapf(errors.ErrStaleResponse, "%s", action)
	}

	if sess != nil {
		if err := c.sessions.Login(ctx, *sess); err != nil {
			in, sess, callErr = Input{Action: action, Outcome: OutcomeFailed, Email: email, Message: gateway.UnexpectedMessage}, nil, err
		}
	}

	c.mu.Lock()
	var next State
	switch {
	case sess != nil:
		// A session now exists, whatever the user did while it was being stored
		next = Authenticated{}
		c.generation++
	case gen != c.generation:
		c.mu.Unlock()
		return c.State(), errors.Wrapf(errors.ErrStaleResponse, "%s", action)
	default:
		var err error
		if next, err = Transition(from, in); err != nil {
			next = from
			callErr = err
		}
	}
	if gen == c.generation || sess != nil {
		c.inFlight = false
		c.cancel = nil
	}
	c.state = next
	observers := c.observers
	c.mu.Unlock()

	c.metrics.FlowOutcome(from.Kind().String(), in.Outcome.String())
	evt := c.logger.Info()
	if in.Outcome == OutcomeFailed {
		evt = c.logger.Warn().Err(callErr)
	}
	evt.Stringer("from", from.Kind()).Stringer("to", next.Kind()).Stringer("outcome", in.Outcome).Msg("flow transition")

	notify(observers, next)
	if next.Kind() == KindAuthenticated && c.nav != nil {
		c.nav.Navigate(routes.RouteHome, false)
	}
	return next, callErr
}

func (c *Controller) stale(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen != c.generation
}

func notify(observers []func(State), s State) {
	for _, fn := range observers {
		fn(s)
	}
}
