package security_test

import (
	"bytes"
	"context"
	"image/png"
	"testing"
	"time"

	"github.com/Danohx/modasarita-auth/gateway"
	"github.com/Danohx/modasarita-auth/gateway/serverfake"
	"github.com/Danohx/modasarita-auth/internal/errors"
	"github.com/Danohx/modasarita-auth/internal/routes"
	"github.com/Danohx/modasarita-auth/security"
	"github.com/Danohx/modasarita-auth/session"
	"github.com/Danohx/modasarita-auth/session/repofake"
	"github.com/pquerna/otp/totp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "a@b.com"
	testPassword = "Secreta.123"
)

type fixture struct {
	srv        *serverfake.Server
	client     *gateway.Client
	manager    *session.Manager
	enrollment *security.Enrollment
	now        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{now: time.Now()}
	f.srv = serverfake.New(serverfake.Account{Correo: testEmail, Password: testPassword})
	f.srv.Now = func() time.Time { return f.now }
	t.Cleanup(f.srv.Close)

	f.client = gateway.New(f.srv.URL, gateway.WithLogger(zerolog.Nop()))
	f.manager = session.NewManager(repofake.NewFakeTokenStore(), f.client, session.WithLogger(zerolog.Nop()))
	f.enrollment = security.NewEnrollment(f.client, f.manager, security.WithLogger(zerolog.Nop()))
	return f
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	result, err := f.client.Login(context.Background(), testEmail, testPassword)
	require.NoError(t, err)
	require.NoError(t, f.manager.Login(context.Background(), result.Session))
}

func TestEnrollmentRequiresSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.enrollment.Setup(context.Background())
	require.ErrorIs(t, err, errors.ErrNotAuthenticated)

	_, err = f.enrollment.Enable(context.Background(), "123456")
	require.ErrorIs(t, err, errors.ErrNotAuthenticated)
	require.Zero(t, f.srv.TotalCalls())
}

func TestEnrollment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.login(t)

	require.ErrorIs(t, f.enrollment.QRCode(&bytes.Buffer{}, 200), errors.ErrIllegalTransition)

	prov, err := f.enrollment.Setup(ctx)
	require.NoError(t, err)
	require.Equal(t, "Moda Sarita", prov.Issuer)
	require.Equal(t, testEmail, prov.AccountName)
	require.NotEmpty(t, prov.Secret)
	require.True(t, f.enrollment.Pending())

	t.Run("qr code is a png of the requested size", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, f.enrollment.QRCode(&buf, 200))
		img, err := png.Decode(&buf)
		require.NoError(t, err)
		require.Equal(t, 200, img.Bounds().Dx())
		require.Equal(t, 200, img.Bounds().Dy())
	})

	t.Run("malformed code is refused locally", func(t *testing.T) {
		calls := f.srv.Calls(routes.EndpointTwoFactorEnable)
		_, err := f.enrollment.Enable(ctx, "12ab56")
		require.ErrorIs(t, err, errors.ErrValidation)
		require.Equal(t, calls, f.srv.Calls(routes.EndpointTwoFactorEnable))
	})

	t.Run("wrong code", func(t *testing.T) {
		_, err := f.enrollment.Enable(ctx, "000000")
		require.Error(t, err)
		require.Equal(t, "Código inválido.", gateway.UserMessage(err, security.MsgEnableFailed))
		require.True(t, f.enrollment.Pending())
	})

	t.Run("right code", func(t *testing.T) {
		code, err := totp.GenerateCode(prov.Secret, f.now)
		require.NoError(t, err)

		msg, err := f.enrollment.Enable(ctx, code)
		require.NoError(t, err)
		require.Equal(t, "2FA activado correctamente.", msg)
		require.False(t, f.enrollment.Pending())

		account, _ := f.srv.Account(testEmail)
		require.Equal(t, prov.Secret, account.TOTPSecret)
	})
}

func TestEnrollmentRejectsBadProvisioningURL(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	_, err := security.NewEnrollment(badSetup{}, f.manager, security.WithLogger(zerolog.Nop())).Setup(context.Background())
	require.ErrorIs(t, err, errors.ErrInvalidOTPAuthURL)
}

type badSetup struct{}

func (badSetup) SetupTwoFactor(context.Context, string) (string, error) {
	return "https://example.com/not-otpauth", nil
}

func (badSetup) EnableTwoFactor(context.Context, string, string) (string, error) {
	return "", nil
}
