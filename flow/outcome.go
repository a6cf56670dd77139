package flow

import (
	"context"

	"github.com/Danohx/modasarita-auth/gateway"
	"github.com/Danohx/modasarita-auth/session"
)

// Per-flow rejection messages used when the server sends none.
const (
	MsgLoginFailed          = "Error al iniciar sesión."
	MsgMagicLinkFailed      = "Error al enviar el enlace."
	MsgTwoFactorFailed      = "Error al verificar 2FA."
	MsgForgotPasswordFailed = "Error al solicitar recuperación."
	MsgRedeemFailed         = "Enlace inválido o expirado."
	MsgMissingMagicToken    = "Token no proporcionado."
)

// Navigator moves the view layer to another route.
type Navigator interface {
	Navigate(path string, replace bool)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string, replace bool)

func (f NavigatorFunc) Navigate(path string, replace bool) {
	f(path, replace)
}

// Sessions receives the session once a credential proof succeeds.
type Sessions interface {
	Login(ctx context.Context, s session.Session) error
}

func outcomeOf(err error) Outcome {
	switch gateway.KindOf(err) {
	case gateway.KindRejected:
		return OutcomeRejected
	case gateway.KindRateLimited:
		return OutcomeRateLimited
	default:
		return OutcomeFailed
	}
}

// ackInput maps the answer of an endpoint that only acknowledges.
func ackInput(email string, err error, fallback string) Input {
	if err != nil {
		return Input{Outcome: outcomeOf(err), Email: email, Message: gateway.UserMessage(err, fallback)}
	}
	return Input{Outcome: OutcomeSuccess, Email: email}
}

// loginInput maps the answer of a credential proof. The session is returned
// separately; it must be handed to Sessions before the flow may exit.
func loginInput(email string, result gateway.LoginResult, err error, fallback string) (Input, *session.Session) {
	switch {
	case err != nil:
		return Input{Outcome: outcomeOf(err), Email: email, Message: gateway.UserMessage(err, fallback)}, nil
	case result.Requires2FA:
		return Input{Outcome: OutcomeRequires2FA, Email: email, TempToken: result.TempToken}, nil
	default:
		s := result.Session
		return Input{Outcome: OutcomeSuccess, Email: email}, &s
	}
}
