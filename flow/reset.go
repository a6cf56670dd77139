package flow

import (
	"context"

	"github.com/Danohx/modasarita-auth/gateway"
	"github.com/Danohx/modasarita-auth/internal/errors"
	"github.com/Danohx/modasarita-auth/internal/routes"
)

const (
	MsgPasswordUpdated = "¡Contraseña actualizada! Redirigiendo..."
	MsgResetFailed     = "Error al restablecer contraseña."
)

type ResetGateway interface {
	ResetPassword(ctx context.Context, token, nuevaContrasena string) error
}

// resetForm fields are declared in the order they are checked.
type resetForm struct {
	Token    string `validate:"required"`
	Confirm  string `validate:"eqfield=Password"`
	Password string `validate:"strongpassword"`
}

var resetMessages = map[string]string{
	"Token":    MsgMissingResetToken,
	"Confirm":  MsgPasswordMismatch,
	"Password": MsgWeakPassword,
}

// PasswordReset sets a new password using the token from a recovery email.
type PasswordReset struct {
	formBase
	gw ResetGateway
}

func NewPasswordReset(gw ResetGateway, nav Navigator, options ...FormOption) *PasswordReset {
	return &PasswordReset{formBase: newFormBase(nav, options), gw: gw}
}

// Submit checks the form locally and then sends it. On success the view is
// sent to the login route.
func (p *PasswordReset) Submit(ctx context.Context, token, newPassword, confirm string) (Result, error) {
	if msg := firstInvalid(resetForm{Token: token, Confirm: confirm, Password: newPassword}, resetMessages); msg != "" {
		if token == "" {
			return Result{Message: msg}, errors.ErrMissingToken
		}
		return Result{Message: msg}, errors.Wrapf(errors.ErrValidation, "%s", msg)
	}

	if err := p.begin(); err != nil {
		return Result{}, err
	}
	defer p.end()

	if err := p.gw.ResetPassword(ctx, token, newPassword); err != nil {
		p.logger.Warn().Err(err).Msg("password reset failed")
		return Result{Message: gateway.UserMessage(err, MsgResetFailed)}, err
	}

	p.logger.Info().Msg("password reset")
	p.nav.Navigate(routes.RouteLogin, false)
	return Result{Message: MsgPasswordUpdated, OK: true}, nil
}
