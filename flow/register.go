package flow

import (
	"context"

	"github.com/Danohx/modasarita-auth/gateway"
	"github.com/Danohx/modasarita-auth/internal/errors"
	"github.com/Danohx/modasarita-auth/internal/routes"
)

const (
	MsgRegisterFailed  = "Error al registrar la cuenta."
	redirectingToLogin = " Redirigiendo al login..."
)

type RegisterGateway interface {
	Register(ctx context.Context, req gateway.RegisterRequest) (string, error)
}

// RegistrationForm is the account creation form as typed by the user.
type RegistrationForm struct {
	Nombre              string
	ApellidoPaterno     string
	ApellidoMaterno     string
	Telefono            string
	Edad                string
	Correo              string `validate:"required,email"`
	Contrasena          string `validate:"required"`
	ConfirmarContrasena string `validate:"eqfield=Contrasena"`
}

var registrationMessages = map[string]string{
	"Correo":              MsgInvalidEmail,
	"Contrasena":          MsgEmptyPassword,
	"ConfirmarContrasena": MsgPasswordMismatch,
}

type Registration struct {
	formBase
	gw RegisterGateway
}

func NewRegistration(gw RegisterGateway, nav Navigator, options ...FormOption) *Registration {
	return &Registration{formBase: newFormBase(nav, options), gw: gw}
}

// Submit creates the account. The confirmation field is checked locally and never sent.
func (r *Registration) Submit(ctx context.Context, form RegistrationForm) (Result, error) {
	if msg := firstInvalid(form, registrationMessages); msg != "" {
		return Result{Message: msg}, errors.Wrapf(errors.ErrValidation, "%s", msg)
	}

	if err := r.begin(); err != nil {
		return Result{}, err
	}
	defer r.end()

	mensaje, err := r.gw.Register(ctx, gateway.RegisterRequest{
		Nombre:          form.Nombre,
		ApellidoPaterno: form.ApellidoPaterno,
		ApellidoMaterno: form.ApellidoMaterno,
		Telefono:        form.Telefono,
		Edad:            form.Edad,
		Correo:          form.Correo,
		Contrasena:      form.Contrasena,
	})
	if err != nil {
		r.logger.Warn().Err(err).Msg("registration failed")
		return Result{Message: gateway.UserMessage(err, MsgRegisterFailed)}, err
	}

	r.logger.Info().Msg("account registered")
	r.nav.Navigate(routes.RouteLogin, false)
	return Result{Message: mensaje + redirectingToLogin, OK: true}, nil
}
