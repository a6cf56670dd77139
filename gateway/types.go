package gateway

import (
	"github.com/Danohx/modasarita-auth/internal/utils"
	"github.com/Danohx/modasarita-auth/session"
)

// loginResponse is the shape shared by /auth/login, /auth/magic-verify and /auth/2fa-verify.
// Either the token pair or requires2FA+tempToken is present.
type loginResponse struct {
	// AccessToken is the short-lived bearer credential.
	AccessToken *string `json:"accessToken,omitempty"`

	// RefreshToken identifies this device's session for /auth/logout.
	RefreshToken *string `json:"refreshToken,omitempty"`

	// User is the profile snapshot. Older servers omit it.
	User *session.User `json:"user,omitempty"`

	// Requires2FA asks the client to complete a second factor with TempToken.
	Requires2FA bool    `json:"requires2FA,omitempty"`
	TempToken   *string `json:"tempToken,omitempty"`
}

// LoginResult is the outcome of a credential proof: either a session or a
// pending second factor.
type LoginResult struct {
	Requires2FA bool
	TempToken   string
	Session     session.Session
}

func (r loginResponse) result() (LoginResult, bool) {
	if r.Requires2FA {
		if utils.Value(r.TempToken) == "" {
			return LoginResult{}, false
		}
		return LoginResult{Requires2FA: true, TempToken: *r.TempToken}, true
	}

	if utils.Value(r.AccessToken) == "" {
		return LoginResult{}, false
	}
	return LoginResult{Session: session.Session{
		AccessToken:  *r.AccessToken,
		RefreshToken: utils.Value(r.RefreshToken),
		User:         utils.ValueOr(r.User, session.DefaultUser),
	}}, true
}

type credentialsRequest struct {
	Correo     string `json:"correo"`
	Contrasena string `json:"contrasena"`
}

type emailRequest struct {
	Correo string `json:"correo"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type twoFactorRequest struct {
	TempToken string `json:"tempToken"`
	OTPCode   string `json:"otpCode"`
}

type resetPasswordRequest struct {
	Token           string `json:"token"`
	NuevaContrasena string `json:"nuevaContrasena"`
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RegisterRequest is the account creation form.
type RegisterRequest struct {
	Nombre          string `json:"nombre"`
	ApellidoPaterno string `json:"apellidoPaterno"`
	ApellidoMaterno string `json:"apellidoMaterno"`
	Telefono        string `json:"telefono"`
	Edad            string `json:"edad"`
	Correo          string `json:"correo"`
	Contrasena      string `json:"contrasena"`
}

// messageResponse reads either spelling used by the service.
type messageResponse struct {
	Mensaje string `json:"mensaje,omitempty"`
	Message string `json:"message,omitempty"`
}

func (m messageResponse) text() string {
	if m.Mensaje != "" {
		return m.Mensaje
	}
	return m.Message
}

type twoFactorSetupResponse struct {
	OTPAuthURL string `json:"otpauth_url"`
}
