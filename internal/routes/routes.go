package routes

import "strings"

// Storefront view paths
// All navigation targets are defined here to ensure consistency and prevent typos
const (
	// Public views
	RouteHome          = "/"
	RouteLogin         = "/login"
	RouteRegister      = "/registro"
	RouteMagicVerify   = "/magic-verify/{token}"
	RouteResetPassword = "/reset-password"
	RouteCatalog       = "/catalogo"
	RouteOffers        = "/ofertas"
	RouteContact       = "/contacto"

	// Protected views
	RouteProfile       = "/perfil"
	RouteConfiguration = "/configuracion"
)

// Remote auth service endpoints
const (
	EndpointLogin           = "/auth/login"
	EndpointRegister        = "/auth/register"
	EndpointMagicLink       = "/auth/magic-link"
	EndpointMagicVerify     = "/auth/magic-verify"
	EndpointTwoFactor       = "/auth/2fa-verify"
	EndpointForgotPassword  = "/auth/forgot-password"
	EndpointResetPassword   = "/auth/reset-password"
	EndpointLogout          = "/auth/logout"
	EndpointRevokeAll       = "/auth/revoke-all"
	EndpointTwoFactorSetup  = "/security/2fa/setup"
	EndpointTwoFactorEnable = "/security/2fa/enable"
)

var protected = []string{RouteProfile, RouteConfiguration}

// IsProtected reports whether path (or a sub-path of it) requires an authenticated session.
func IsProtected(path string) bool {
	for _, p := range protected {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
