// Package flow drives a user through the mutually exclusive ways of proving
// who they are: password, magic link, TOTP second factor and password recovery.
package flow

// Kind names a flow state.
type Kind int

const (
	KindPassword Kind = iota
	KindMagicLinkForm
	KindMagicLinkSent
	KindTwoFactorPending
	KindForgotPasswordForm
	KindForgotPasswordSent
	KindAuthenticated
	KindRedeemFailed
)

func (k Kind) String() string {
	switch k {
	case KindPassword:
		return "password"
	case KindMagicLinkForm:
		return "magic_link_form"
	case KindMagicLinkSent:
		return "magic_link_sent"
	case KindTwoFactorPending:
		return "two_factor_pending"
	case KindForgotPasswordForm:
		return "forgot_password_form"
	case KindForgotPasswordSent:
		return "forgot_password_sent"
	case KindAuthenticated:
		return "authenticated"
	case KindRedeemFailed:
		return "redeem_failed"
	default:
		return "unknown"
	}
}

// State is exactly one of the variants below. Only the active variant's data exists.
type State interface {
	Kind() Kind
	state()
}

// Password is the entry form: email and password.
type Password struct {
	Email string
	Error string
}

// MagicLinkForm asks for the email a one-time link is sent to.
type MagicLinkForm struct {
	Email string
	Error string
}

// MagicLinkSent confirms the link was dispatched.
type MagicLinkSent struct {
	Email string
}

// TwoFactorPending holds the short-lived credential proving the first factor.
// It lives only in memory and is dropped when the flow leaves this state.
type TwoFactorPending struct {
	TempToken string
	Error     string
}

// ForgotPasswordForm asks for the email a reset link is sent to.
type ForgotPasswordForm struct {
	Email string
	Error string
}

// ForgotPasswordSent confirms the request was accepted. It says nothing about
// whether the account exists.
type ForgotPasswordSent struct {
	Email string
}

// Authenticated is the exit of the flow: a session has been established.
type Authenticated struct{}

// RedeemFailed is the terminal state of a magic-link redemption that did not succeed.
type RedeemFailed struct {
	Message string
}

func (Password) Kind() Kind { return KindPassword }
func (MagicLinkForm) Kind() Kind { return KindMagicLinkForm }
func (MagicLinkSent) Kind() Kind { return KindMagicLinkSent }
func (TwoFactorPending) Kind() Kind { return KindTwoFactorPending }
func (ForgotPasswordForm) Kind() Kind { return KindForgotPasswordForm }
func (ForgotPasswordSent) Kind() Kind { return KindForgotPasswordSent }
func (Authenticated) Kind() Kind { return KindAuthenticated }
func (RedeemFailed) Kind() Kind { return KindRedeemFailed }

func (Password) state() {}
func (MagicLinkForm) state() {}
func (MagicLinkSent) state() {}
func (TwoFactorPending) state() {}
func (ForgotPasswordForm) state() {}
func (ForgotPasswordSent) state() {}
func (Authenticated) state() {}
func (RedeemFailed) state() {}

// Initial is the state every login flow starts in.
func Initial() State {
	return Password{}
}

// ErrorOf returns the user-facing error attached to s, if any.
func ErrorOf(s State) string {
	switch v := s.(type) {
	case Password:
		return v.Error
	case MagicLinkForm:
		return v.Error
	case TwoFactorPending:
		return v.Error
	case ForgotPasswordForm:
		return v.Error
	case RedeemFailed:
		return v.Message
	default:
		return ""
	}
}

// withError returns s carrying msg. States without an error slot are returned unchanged.
func withError(s State, msg string) State {
	switch v := s.(type) {
	case Password:
		v.Error = msg
		return v
	case MagicLinkForm:
		v.Error = msg
		return v
	case TwoFactorPending:
		v.Error = msg
		return v
	case ForgotPasswordForm:
		v.Error = msg
		return v
	default:
		return s
	}
}
