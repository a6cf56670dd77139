package flow_test

import (
	"context"
	"testing"

	"github.com/Danohx/modasarita-auth/flow"
	"github.com/Danohx/modasarita-auth/gateway/serverfake"
	"github.com/Danohx/modasarita-auth/internal/errors"
	"github.com/Danohx/modasarita-auth/internal/routes"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestStrongPassword(t *testing.T) {
	cases := map[string]bool{
		"Secreta.123": true,
		"Ab1_defg":    true,
		"Ab1_def":     false, // too short
		"secreta.123": false, // no uppercase
		"SECRETA.123": false, // no lowercase
		"Secreta.abc": false, // no digit
		"Secreta1234": false, // no symbol
		"Secreta 123": false, // space is not allowed
		"Secretá.123": false, // non-ASCII letter
		"":            false,
	}
	for pw, want := range cases {
		require.Equal(t, want, flow.StrongPassword(pw), pw)
	}
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()

	t.Run("local checks come first and in order", func(t *testing.T) {
		s := newStack(t)
		reset := flow.NewPasswordReset(s.client, s.nav, flow.WithFormLogger(zerolog.Nop()))

		res, err := reset.Submit(ctx, "", "weak", "other")
		require.ErrorIs(t, err, errors.ErrMissingToken)
		require.Equal(t, flow.MsgMissingResetToken, res.Message)

		res, err = reset.Submit(ctx, "P1", "weak", "other")
		require.ErrorIs(t, err, errors.ErrValidation)
		require.Equal(t, flow.MsgPasswordMismatch, res.Message)

		res, err = reset.Submit(ctx, "P1", "weak", "weak")
		require.ErrorIs(t, err, errors.ErrValidation)
		require.Equal(t, flow.MsgWeakPassword, res.Message)
		require.False(t, res.OK)

		require.Zero(t, s.srv.TotalCalls())
	})

	t.Run("server rejection", func(t *testing.T) {
		s := newStack(t)
		reset := flow.NewPasswordReset(s.client, s.nav, flow.WithFormLogger(zerolog.Nop()))

		res, err := reset.Submit(ctx, "P99", "Nueva.1234", "Nueva.1234")
		require.Error(t, err)
		require.Equal(t, "Token inválido o expirado.", res.Message)
		path, _ := s.nav.last()
		require.Empty(t, path)
	})

	t.Run("success sends the user to login", func(t *testing.T) {
		s := newStack(t, serverfake.Account{Correo: testEmail, Password: testPassword})
		require.NoError(t, s.client.ForgotPassword(ctx, testEmail))
		token, ok := s.srv.ResetToken(testEmail)
		require.True(t, ok)

		reset := flow.NewPasswordReset(s.client, s.nav, flow.WithFormLogger(zerolog.Nop()))
		res, err := reset.Submit(ctx, token, "Nueva.1234", "Nueva.1234")
		require.NoError(t, err)
		require.Equal(t, flow.Result{Message: flow.MsgPasswordUpdated, OK: true}, res)

		path, _ := s.nav.last()
		require.Equal(t, routes.RouteLogin, path)

		_, err = s.client.Login(ctx, testEmail, "Nueva.1234")
		require.NoError(t, err)
	})
}
