package gateway

import (
	"context"

	"github.com/Danohx/modasarita-auth/internal/routes"
	"github.com/pkg/errors"
)

// Login proves a password. The result is either a session or a pending second factor.
func (c *Client) Login(ctx context.Context, correo, contrasena string) (LoginResult, error) {
	return c.login(ctx, routes.EndpointLogin, credentialsRequest{Correo: correo, Contrasena: contrasena})
}

// VerifyMagicLink redeems a magic-link token.
func (c *Client) VerifyMagicLink(ctx context.Context, token string) (LoginResult, error) {
	return c.login(ctx, routes.EndpointMagicVerify, tokenRequest{Token: token})
}

// VerifyTwoFactor completes a pending second factor.
func (c *Client) VerifyTwoFactor(ctx context.Context, tempToken, otpCode string) (LoginResult, error) {
	return c.login(ctx, routes.EndpointTwoFactor, twoFactorRequest{TempToken: tempToken, OTPCode: otpCode})
}

func (c *Client) login(ctx context.Context, endpoint string, body any) (LoginResult, error) {
	var resp loginResponse
	if err := c.post(ctx, endpoint, "", body, &resp); err != nil {
		return LoginResult{}, err
	}

	result, ok := resp.result()
	if !ok {
		return LoginResult{}, &Error{Kind: KindTransport, Endpoint: endpoint, Status: 200,
			Err: errors.New("response carries neither tokens nor a second-factor challenge")}
	}
	return result, nil
}

// RequestMagicLink asks the service to email a one-time login link.
func (c *Client) RequestMagicLink(ctx context.Context, correo string) error {
	return c.post(ctx, routes.EndpointMagicLink, "", emailRequest{Correo: correo}, nil)
}

// ForgotPassword asks for a reset email. The service answers the same way
// whether or not the account exists.
func (c *Client) ForgotPassword(ctx context.Context, correo string) error {
	return c.post(ctx, routes.EndpointForgotPassword, "", emailRequest{Correo: correo}, nil)
}

func (c *Client) ResetPassword(ctx context.Context, token, nuevaContrasena string) error {
	return c.post(ctx, routes.EndpointResetPassword, "", resetPasswordRequest{Token: token, NuevaContrasena: nuevaContrasena}, nil)
}

// Register creates an account and returns the service's confirmation message.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (string, error) {
	var resp messageResponse
	if err := c.post(ctx, routes.EndpointRegister, "", req, &resp); err != nil {
		return "", err
	}
	return resp.text(), nil
}

// Logout revokes the session identified by refreshToken.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	return c.post(ctx, routes.EndpointLogout, "", refreshTokenRequest{RefreshToken: refreshToken}, nil)
}

// RevokeAll revokes every session of the user owning accessToken.
func (c *Client) RevokeAll(ctx context.Context, accessToken string) error {
	return c.post(ctx, routes.EndpointRevokeAll, accessToken, nil, nil)
}

// SetupTwoFactor starts TOTP enrollment and returns the otpauth:// provisioning URL.
func (c *Client) SetupTwoFactor(ctx context.Context, accessToken string) (string, error) {
	var resp twoFactorSetupResponse
	if err := c.post(ctx, routes.EndpointTwoFactorSetup, accessToken, nil, &resp); err != nil {
		return "", err
	}
	if resp.OTPAuthURL == "" {
		return "", &Error{Kind: KindTransport, Endpoint: routes.EndpointTwoFactorSetup, Status: 200,
			Err: errors.New("response has no otpauth_url")}
	}
	return resp.OTPAuthURL, nil
}

// EnableTwoFactor confirms enrollment with a first code and returns the service's message.
func (c *Client) EnableTwoFactor(ctx context.Context, accessToken, code string) (string, error) {
	var resp messageResponse
	if err := c.post(ctx, routes.EndpointTwoFactorEnable, accessToken, tokenRequest{Token: code}, &resp); err != nil {
		return "", err
	}
	return resp.text(), nil
}
