package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Danohx/modasarita-auth/gateway/serverfake"
	"github.com/Danohx/modasarita-auth/internal/config"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "ana@modasarita.mx"
	testPassword = "Sarita#2024"
)

type cliFixture struct {
	srv       *serverfake.Server
	storePath string
}

func newCLIFixture(t *testing.T, accounts ...serverfake.Account) *cliFixture {
	t.Helper()
	srv := serverfake.New(accounts...)
	t.Cleanup(srv.Close)
	return &cliFixture{srv: srv, storePath: filepath.Join(t.TempDir(), "session.json")}
}

// exec runs one command in a fresh process-like app, answering prompts from input.
func (f *cliFixture) exec(t *testing.T, input string, name string, args ...string) (string, error) {
	t.Helper()
	c, err := config.FromEnvironment(map[string]string{
		"API_URL":      f.srv.URL,
		"ENV":          config.EnvProd,
		"STORE_DRIVER": config.StoreFile,
		"STORE_PATH":   f.storePath,
	})
	require.NoError(t, err)

	var out bytes.Buffer
	ctx := context.Background()
	a, err := newApp(ctx, c, nil, newTerminal(strings.NewReader(input), &out))
	require.NoError(t, err)
	defer a.close()

	cmd, ok := lookup(name)
	require.True(t, ok, name)
	err = cmd.run(ctx, a, args)
	return out.String(), err
}

func TestLoginCommand(t *testing.T) {
	f := newCLIFixture(t, serverfake.Account{ID: 3, Nombre: "Ana", Correo: testEmail, Password: testPassword, FixedOTP: "123456"})

	t.Run("wrong password", func(t *testing.T) {
		out, err := f.exec(t, testEmail+"\nnope\n", "login")
		require.ErrorIs(t, err, errFailed)
		require.Contains(t, out, "Credenciales inválidas.")
	})

	t.Run("password then second factor", func(t *testing.T) {
		out, err := f.exec(t, testPassword+"\n999999\n123456\n", "login", "-email", testEmail)
		require.NoError(t, err)
		require.Contains(t, out, "[two_factor_pending]")
		require.Contains(t, out, "Código 2FA incorrecto.")
		require.Contains(t, out, "Bienvenido, Ana")
		require.Contains(t, out, "-> /")
	})

	t.Run("session survives the process", func(t *testing.T) {
		out, err := f.exec(t, "", "status")
		require.NoError(t, err)
		require.Contains(t, out, "Sesión activa")
		require.Contains(t, out, testEmail)
	})

	t.Run("cancelled second factor", func(t *testing.T) {
		g := newCLIFixture(t, serverfake.Account{ID: 4, Nombre: "Luz", Correo: "luz@modasarita.mx", Password: testPassword, FixedOTP: "123456"})
		_, err := g.exec(t, testPassword+"\n\n", "login", "-email", "luz@modasarita.mx")
		require.ErrorIs(t, err, errFailed)

		out, err := g.exec(t, "", "status")
		require.NoError(t, err)
		require.Contains(t, out, msgNoSession)
	})
}

func TestMagicLinkCommands(t *testing.T) {
	f := newCLIFixture(t, serverfake.Account{ID: 5, Nombre: "Eva", Correo: testEmail, Password: testPassword})

	out, err := f.exec(t, "", "magic-link", "-email", testEmail)
	require.NoError(t, err)
	require.Contains(t, out, "Te hemos enviado un enlace mágico a "+testEmail)

	token, ok := f.srv.MagicToken(testEmail)
	require.True(t, ok)

	t.Run("redeem", func(t *testing.T) {
		out, err := f.exec(t, "", "magic-verify", token)
		require.NoError(t, err)
		require.Contains(t, out, "Bienvenido, Eva")
	})

	t.Run("link is single use", func(t *testing.T) {
		out, err := f.exec(t, "", "magic-verify", token)
		require.ErrorIs(t, err, errFailed)
		require.Contains(t, out, "El enlace es inválido o ya fue utilizado.")
		require.Contains(t, out, "-> /login")
	})

	t.Run("missing token", func(t *testing.T) {
		out, err := f.exec(t, "", "magic-verify")
		require.ErrorIs(t, err, errFailed)
		require.Contains(t, out, "Token no proporcionado.")
	})
}

func TestPasswordRecoveryCommands(t *testing.T) {
	f := newCLIFixture(t, serverfake.Account{ID: 6, Nombre: "Sol", Correo: testEmail, Password: testPassword})

	out, err := f.exec(t, testEmail+"\n", "forgot-password")
	require.NoError(t, err)
	require.Contains(t, out, "recibirás instrucciones")

	token, ok := f.srv.ResetToken(testEmail)
	require.True(t, ok)

	t.Run("mismatch", func(t *testing.T) {
		out, err := f.exec(t, "Nueva#2025\nOtra#2025\n", "reset-password", token)
		require.ErrorIs(t, err, errFailed)
		require.Contains(t, out, "Las contraseñas no coinciden.")
	})

	t.Run("reset then login", func(t *testing.T) {
		out, err := f.exec(t, "Nueva#2025\nNueva#2025\n", "reset-password", token)
		require.NoError(t, err)
		require.Contains(t, out, "-> /login")

		out, err = f.exec(t, "Nueva#2025\n", "login", "-email", testEmail)
		require.NoError(t, err)
		require.Contains(t, out, "Bienvenido, Sol")
	})
}

func TestRegisterCommand(t *testing.T) {
	f := newCLIFixture(t)
	input := strings.Join([]string{"Rosa", "Pérez", "López", "5512345678", "30", testEmail, testPassword, testPassword}, "\n") + "\n"

	out, err := f.exec(t, input, "register")
	require.NoError(t, err)
	require.Contains(t, out, "Usuario registrado exitosamente.")

	_, ok := f.srv.Account(testEmail)
	require.True(t, ok)

	out, err = f.exec(t, input, "register")
	require.ErrorIs(t, err, errFailed)
	require.Contains(t, out, "El correo ya está registrado.")
}

func TestGuardedCommands(t *testing.T) {
	f := newCLIFixture(t, serverfake.Account{ID: 8, Nombre: "Ana", Correo: testEmail, Password: testPassword})

	t.Run("refused without a session", func(t *testing.T) {
		for _, name := range []string{"profile", "2fa-setup", "2fa-enable"} {
			out, err := f.exec(t, "", name)
			require.ErrorIs(t, err, errFailed, name)
			require.Contains(t, out, "-> /login", name)
		}
	})

	_, err := f.exec(t, testPassword+"\n", "login", "-email", testEmail)
	require.NoError(t, err)

	t.Run("profile", func(t *testing.T) {
		out, err := f.exec(t, "", "profile")
		require.NoError(t, err)
		require.Contains(t, out, "Ana")
		require.Contains(t, out, testEmail)
	})

	t.Run("2fa setup writes a QR code", func(t *testing.T) {
		qr := filepath.Join(t.TempDir(), "qr.png")
		out, err := f.exec(t, "", "2fa-setup", qr)
		require.NoError(t, err)
		require.Contains(t, out, "otpauth://totp/")

		info, err := os.Stat(qr)
		require.NoError(t, err)
		require.NotZero(t, info.Size())
	})

	t.Run("2fa enable rejects a malformed code locally", func(t *testing.T) {
		calls := f.srv.TotalCalls()
		out, err := f.exec(t, "", "2fa-enable", "12ab")
		require.ErrorIs(t, err, errFailed)
		require.Contains(t, out, "El código debe tener 6 dígitos.")
		require.Equal(t, calls, f.srv.TotalCalls())
	})
}

func TestLogoutCommands(t *testing.T) {
	f := newCLIFixture(t, serverfake.Account{ID: 9, Nombre: "Ana", Correo: testEmail, Password: testPassword})

	t.Run("logout-all needs a session", func(t *testing.T) {
		out, err := f.exec(t, "", "logout-all")
		require.ErrorIs(t, err, errFailed)
		require.Contains(t, out, msgNoSession)
	})

	t.Run("logout-all", func(t *testing.T) {
		_, err := f.exec(t, testPassword+"\n", "login", "-email", testEmail)
		require.NoError(t, err)
		_, err = f.exec(t, testPassword+"\n", "login", "-email", testEmail)
		require.NoError(t, err)
		require.Len(t, f.srv.ActiveSessions(testEmail), 2)

		out, err := f.exec(t, "", "logout-all")
		require.NoError(t, err)
		require.Contains(t, out, msgRevokedAll)
		require.Empty(t, f.srv.ActiveSessions(testEmail))
	})

	t.Run("logout", func(t *testing.T) {
		_, err := f.exec(t, testPassword+"\n", "login", "-email", testEmail)
		require.NoError(t, err)

		out, err := f.exec(t, "", "logout")
		require.NoError(t, err)
		require.Contains(t, out, msgLoggedOut)

		out, err = f.exec(t, "", "status")
		require.NoError(t, err)
		require.Contains(t, out, msgNoSession)
	})
}

func TestLookup(t *testing.T) {
	for _, cmd := range commands() {
		got, ok := lookup(cmd.name)
		require.True(t, ok)
		require.Equal(t, cmd.usage, got.usage)
	}
	_, ok := lookup("whoami")
	require.False(t, ok)
}
