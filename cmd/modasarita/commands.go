package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Danohx/modasarita-auth/flow"
	"github.com/Danohx/modasarita-auth/gateway"
	autherrors "github.com/Danohx/modasarita-auth/internal/errors"
	"github.com/Danohx/modasarita-auth/internal/routes"
	"github.com/Danohx/modasarita-auth/security"
)

const (
	msgNoSession      = "No hay una sesión activa."
	msgLoggedOut      = "Sesión cerrada."
	msgRevokedAll     = "Has cerrado sesión en todos los dispositivos correctamente."
	msgRevokeAllError = "Hubo un error al intentar cerrar las sesiones remotas."
	qrCodeSize        = 256
)

type command struct {
	name    string
	usage   string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

func commands() []command {
	return []command{
		{"login", "login [-email correo]", "sign in with email and password", loginCmd},
		{"magic-link", "magic-link [-email correo]", "request a sign-in link by email", magicLinkCmd},
		{"magic-verify", "magic-verify <token>", "redeem a sign-in link", magicVerifyCmd},
		{"forgot-password", "forgot-password [-email correo]", "request password reset instructions", forgotPasswordCmd},
		{"reset-password", "reset-password <token>", "choose a new password", resetPasswordCmd},
		{"register", "register", "create an account", registerCmd},
		{"logout", "logout", "sign out of this device", logoutCmd},
		{"logout-all", "logout-all", "sign out of every device", logoutAllCmd},
		{"status", "status", "show the current session", statusCmd},
		{"profile", "profile", "show the signed-in profile", profileCmd},
		{"2fa-setup", "2fa-setup [qr.png]", "start TOTP enrollment", twoFactorSetupCmd},
		{"2fa-enable", "2fa-enable <code>", "finish TOTP enrollment", twoFactorEnableCmd},
	}
}

func lookup(name string) (command, bool) {
	for _, cmd := range commands() {
		if cmd.name == name {
			return cmd, true
		}
	}
	return command{}, false
}

// emailFlag parses an optional -email flag and prompts when it is missing.
func emailFlag(a *app, name string, args []string) (string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if *email != "" {
		return *email, nil
	}
	return a.term.readLine("Correo")
}

func loginCmd(ctx context.Context, a *app, args []string) error {
	email, err := emailFlag(a, "login", args)
	if err != nil {
		return err
	}
	password, err := a.term.readSecret("Contraseña")
	if err != nil {
		return err
	}

	c := a.controller()
	st, err := c.SubmitPassword(ctx, email, password)
	return a.completeSignIn(ctx, st, err, c.SubmitOTP)
}

func magicLinkCmd(ctx context.Context, a *app, args []string) error {
	email, err := emailFlag(a, "magic-link", args)
	if err != nil {
		return err
	}

	c := a.controller()
	if _, err := c.UseMagicLink(); err != nil {
		return err
	}
	st, err := c.SubmitMagicLink(ctx, email)
	if sent, ok := st.(flow.MagicLinkSent); ok {
		a.term.state(st)
		a.term.success(fmt.Sprintf("Te hemos enviado un enlace mágico a %s.", sent.Email))
		return nil
	}
	return a.report(st, err)
}

func magicVerifyCmd(ctx context.Context, a *app, args []string) error {
	token := ""
	if len(args) > 0 {
		token = args[0]
	}

	r := a.redeemer()
	st, err := r.Redeem(ctx, token)
	if err := a.completeSignIn(ctx, st, err, r.SubmitOTP); err != nil {
		r.BackToLogin()
		return err
	}
	return nil
}

func forgotPasswordCmd(ctx context.Context, a *app, args []string) error {
	email, err := emailFlag(a, "forgot-password", args)
	if err != nil {
		return err
	}

	c := a.controller()
	if _, err := c.ForgotPassword(); err != nil {
		return err
	}
	st, err := c.SubmitForgotPassword(ctx, email)
	if sent, ok := st.(flow.ForgotPasswordSent); ok {
		a.term.state(st)
		a.term.success(fmt.Sprintf("Si el correo %s existe, recibirás instrucciones para restablecer tu contraseña.", sent.Email))
		return nil
	}
	return a.report(st, err)
}

func resetPasswordCmd(ctx context.Context, a *app, args []string) error {
	token := ""
	if len(args) > 0 {
		token = args[0]
	}
	password, err := a.term.readSecret("Nueva contraseña")
	if err != nil {
		return err
	}
	confirm, err := a.term.readSecret("Confirmar contraseña")
	if err != nil {
		return err
	}

	res, err := flow.NewPasswordReset(a.client, a.nav).Submit(ctx, token, password, confirm)
	return a.result(res, err)
}

func registerCmd(ctx context.Context, a *app, _ []string) error {
	var form flow.RegistrationForm
	prompts := []struct {
		label  string
		target *string
		secret bool
	}{
		{"Nombre", &form.Nombre, false},
		{"Apellido paterno", &form.ApellidoPaterno, false},
		{"Apellido materno", &form.ApellidoMaterno, false},
		{"Teléfono", &form.Telefono, false},
		{"Edad", &form.Edad, false},
		{"Correo", &form.Correo, false},
		{"Contraseña", &form.Contrasena, true},
		{"Confirmar contraseña", &form.ConfirmarContrasena, true},
	}
	for _, p := range prompts {
		read := a.term.readLine
		if p.secret {
			read = a.term.readSecret
		}
		v, err := read(p.label)
		if err != nil {
			return err
		}
		*p.target = v
	}

	res, err := flow.NewRegistration(a.client, a.nav).Submit(ctx, form)
	return a.result(res, err)
}

func logoutCmd(ctx context.Context, a *app, _ []string) error {
	if !a.sessions.IsAuthenticated() {
		a.term.info(msgNoSession)
		return nil
	}
	a.sessions.Logout(ctx)
	a.term.success(msgLoggedOut)
	a.nav.Navigate(routes.RouteLogin, false)
	return nil
}

func logoutAllCmd(ctx context.Context, a *app, _ []string) error {
	err := a.sessions.LogoutAllDevices(ctx)
	switch {
	case errors.Is(err, autherrors.ErrNotAuthenticated):
		a.term.info(msgNoSession)
		return errFailed
	case err != nil:
		a.term.failure(msgRevokeAllError)
		return errFailed
	}
	a.term.success(msgRevokedAll)
	a.nav.Navigate(routes.RouteLogin, false)
	return nil
}

func statusCmd(_ context.Context, a *app, _ []string) error {
	user, ok := a.sessions.User()
	if !ok {
		a.term.info(msgNoSession)
		return nil
	}

	a.term.success("Sesión activa")
	a.term.field("Usuario", user.DisplayName)
	a.term.field("Correo", user.Email)
	expiry, err := a.sessions.AccessTokenExpiry()
	switch {
	case err != nil:
		a.term.field("Expira", "desconocido")
	case time.Now().After(expiry):
		a.term.field("Expira", "expirado ("+expiry.Local().Format(time.RFC1123)+")")
	default:
		a.term.field("Expira", expiry.Local().Format(time.RFC1123))
	}
	return nil
}

func profileCmd(_ context.Context, a *app, _ []string) error {
	if !a.allowed(routes.RouteProfile) {
		return errFailed
	}
	user, _ := a.sessions.User()
	a.term.field("ID", fmt.Sprint(user.ID))
	a.term.field("Nombre", user.DisplayName)
	a.term.field("Correo", user.Email)
	return nil
}

func twoFactorSetupCmd(ctx context.Context, a *app, args []string) error {
	if !a.allowed(routes.RouteConfiguration) {
		return errFailed
	}

	e := a.enrollment()
	prov, err := e.Setup(ctx)
	if err != nil {
		a.term.failure(gateway.UserMessage(err, security.MsgSetupFailed))
		return errFailed
	}
	a.term.field("Emisor", prov.Issuer)
	a.term.field("Cuenta", prov.AccountName)
	a.term.field("Secreto", prov.Secret)
	a.term.field("URL", prov.URL)

	if len(args) > 0 {
		f, err := os.Create(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		if err := e.QRCode(f, qrCodeSize); err != nil {
			return err
		}
		a.term.info("Código QR guardado en " + args[0])
	}
	return nil
}

func twoFactorEnableCmd(ctx context.Context, a *app, args []string) error {
	if !a.allowed(routes.RouteConfiguration) {
		return errFailed
	}
	code := ""
	if len(args) > 0 {
		code = args[0]
	}

	msg, err := a.enrollment().Enable(ctx, code)
	switch {
	case errors.Is(err, autherrors.ErrValidation):
		a.term.failure(flow.MsgInvalidOTP)
		return errFailed
	case err != nil:
		a.term.failure(gateway.UserMessage(err, security.MsgEnableFailed))
		return errFailed
	}
	a.term.success(msg)
	return nil
}

// allowed runs the route guard for path and follows its redirect when refused.
func (a *app) allowed(path string) bool {
	if target := a.guard.Check(path); target != "" {
		a.term.info(msgNoSession)
		a.nav.Navigate(target, true)
		return false
	}
	return true
}

// completeSignIn prompts for second-factor codes until the flow authenticates
// or the user enters an empty code.
func (a *app) completeSignIn(ctx context.Context, st flow.State, err error, submitOTP func(context.Context, string) (flow.State, error)) error {
	for {
		switch s := st.(type) {
		case flow.Authenticated:
			a.term.state(s)
			user, _ := a.sessions.User()
			a.term.success("Bienvenido, " + user.DisplayName)
			return nil

		case flow.TwoFactorPending:
			if s.Error != "" {
				a.term.failure(s.Error)
			} else {
				a.term.state(s)
			}
			code, rerr := a.term.readLine("Código 2FA (vacío para cancelar)")
			if rerr != nil {
				return rerr
			}
			if code == "" {
				return errFailed
			}
			st, err = submitOTP(ctx, code)

		default:
			return a.report(st, err)
		}
	}
}

// report renders a flow state that did not reach its goal.
func (a *app) report(st flow.State, err error) error {
	if st != nil {
		if msg := flow.ErrorOf(st); msg != "" {
			a.term.failure(msg)
			return errFailed
		}
	}
	if err != nil {
		return err
	}
	return errFailed
}

func (a *app) result(res flow.Result, err error) error {
	if res.OK {
		a.term.success(res.Message)
		return nil
	}
	if res.Message != "" {
		a.term.failure(res.Message)
		return errFailed
	}
	if err != nil {
		return err
	}
	return errFailed
}
