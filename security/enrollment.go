// Package security manages account security settings of the signed-in user.
package security

import (
	"context"
	"image/png"
	"io"
	"sync"

	"github.com/Danohx/modasarita-auth/internal/errors"
	"github.com/Danohx/modasarita-auth/session"
	"github.com/go-playground/validator/v10"
	"github.com/pquerna/otp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	MsgSetupFailed  = "Error al iniciar la configuración 2FA."
	MsgEnableFailed = "Código OTP inválido."
)

type Gateway interface {
	SetupTwoFactor(ctx context.Context, accessToken string) (string, error)
	EnableTwoFactor(ctx context.Context, accessToken, code string) (string, error)
}

// SessionSource exposes the current session, if any.
type SessionSource interface {
	Session() (session.Session, bool)
}

// Provisioning is what an authenticator app needs to add the account.
type Provisioning struct {
	Issuer      string
	AccountName string
	Secret      string
	URL         string
}

// Enrollment turns on TOTP second factor for the signed-in user: Setup obtains
// a secret, the user adds it to an authenticator app, Enable confirms with a first code.
type Enrollment struct {
	gw       Gateway
	sessions SessionSource
	logger   zerolog.Logger
	validate *validator.Validate

	mu  sync.Mutex
	key *otp.Key
}

type Option func(*Enrollment)

func WithLogger(logger zerolog.Logger) Option {
	return func(e *Enrollment) {
		e.logger = logger
	}
}

func NewEnrollment(gw Gateway, sessions SessionSource, options ...Option) *Enrollment {
	e := &Enrollment{
		gw:       gw,
		sessions: sessions,
		logger:   log.Logger,
		validate: validator.New(),
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

func (e *Enrollment) accessToken() (string, error) {
	s, ok := e.sessions.Session()
	if !ok {
		return "", errors.ErrNotAuthenticated
	}
	return s.AccessToken, nil
}

// Setup asks the service for a new secret. A previous pending secret is replaced.
func (e *Enrollment) Setup(ctx context.Context) (Provisioning, error) {
	token, err := e.accessToken()
	if err != nil {
		return Provisioning{}, err
	}

	url, err := e.gw.SetupTwoFactor(ctx, token)
	if err != nil {
		e.logger.Warn().Err(err).Msg("2fa setup failed")
		return Provisioning{}, err
	}

	key, err := otp.NewKeyFromURL(url)
	if err != nil || key.Type() != "totp" || key.Secret() == "" {
		e.logger.Warn().Err(err).Msg("2fa setup returned an unusable otpauth url")
		return Provisioning{}, errors.Wrapf(errors.ErrInvalidOTPAuthURL, "setup")
	}

	e.mu.Lock()
	e.key = key
	e.mu.Unlock()

	return Provisioning{
		Issuer:      key.Issuer(),
		AccountName: key.AccountName(),
		Secret:      key.Secret(),
		URL:         key.URL(),
	}, nil
}

// QRCode writes the pending provisioning URL as a size x size PNG.
func (e *Enrollment) QRCode(w io.Writer, size int) error {
	e.mu.Lock()
	key := e.key
	e.mu.Unlock()

	if key == nil {
		return errors.Wrapf(errors.ErrIllegalTransition, "qr code before setup")
	}

	img, err := key.Image(size, size)
	if err != nil {
		return errors.Wrapf(err, "render qr code")
	}
	return png.Encode(w, img)
}

// Enable confirms enrollment with the first code from the authenticator app
// and returns the service's confirmation.
func (e *Enrollment) Enable(ctx context.Context, code string) (string, error) {
	token, err := e.accessToken()
	if err != nil {
		return "", err
	}

	if e.validate.Var(code, "required,len=6,number") != nil {
		return "", errors.Wrapf(errors.ErrValidation, "otp code")
	}

	msg, err := e.gw.EnableTwoFactor(ctx, token, code)
	if err != nil {
		e.logger.Warn().Err(err).Msg("2fa enable failed")
		return "", err
	}

	e.mu.Lock()
	e.key = nil
	e.mu.Unlock()

	e.logger.Info().Msg("2fa enabled")
	return msg, nil
}

// Pending reports whether Setup has run and Enable has not yet succeeded.
func (e *Enrollment) Pending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.key != nil
}
