package flow

import (
	"github.com/Danohx/modasarita-auth/internal/errors"
)

// Action is something the user does.
type Action int

const (
	ActionSubmitPassword Action = iota
	ActionUseMagicLink
	ActionUsePassword
	ActionForgotPassword
	ActionSubmitMagicLink
	ActionSubmitOTP
	ActionSubmitForgotPassword
	ActionTryAnotherEmail
	ActionBack
)

func (a Action) String() string {
	switch a {
	case ActionSubmitPassword:
		return "submit_password"
	case ActionUseMagicLink:
		return "use_magic_link"
	case ActionUsePassword:
		return "use_password"
	case ActionForgotPassword:
		return "forgot_password"
	case ActionSubmitMagicLink:
		return "submit_magic_link"
	case ActionSubmitOTP:
		return "submit_otp"
	case ActionSubmitForgotPassword:
		return "submit_forgot_password"
	case ActionTryAnotherEmail:
		return "try_another_email"
	case ActionBack:
		return "back"
	default:
		return "unknown"
	}
}

// Outcome is how the remote service answered a submit. Navigation actions use OutcomeNone.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeSuccess
	OutcomeRequires2FA
	OutcomeRejected
	OutcomeRateLimited
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeSuccess:
		return "success"
	case OutcomeRequires2FA:
		return "requires_2fa"
	case OutcomeRejected:
		return "rejected"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// failed reports whether o leaves the user on the same form with a message.
func (o Outcome) failed() bool {
	return o == OutcomeRejected || o == OutcomeRateLimited || o == OutcomeFailed
}

// Input is one step fed to Transition.
type Input struct {
	Action  Action
	Outcome Outcome

	Email     string // email submitted with the action
	TempToken string // set with OutcomeRequires2FA
	Message   string // user-facing message for failed outcomes
}

// Transition is the complete login flow table. Any pair it does not list is
// refused with errors.ErrIllegalTransition and the caller keeps from.
func Transition(from State, in Input) (State, error) {
	illegal := func() (State, error) {
		return from, errors.Wrapf(errors.ErrIllegalTransition, "%s on %s (%s)", in.Action, from.Kind(), in.Outcome)
	}

	switch s := from.(type) {
	case Password:
		switch {
		case in.Action == ActionSubmitPassword && in.Outcome == OutcomeRequires2FA:
			return TwoFactorPending{TempToken: in.TempToken}, nil
		case in.Action == ActionSubmitPassword && in.Outcome == OutcomeSuccess:
			return Authenticated{}, nil
		case in.Action == ActionSubmitPassword && in.Outcome.failed():
			return Password{Email: in.Email, Error: in.Message}, nil
		case in.Action == ActionUseMagicLink && in.Outcome == OutcomeNone:
			return MagicLinkForm{Email: s.Email}, nil
		case in.Action == ActionForgotPassword && in.Outcome == OutcomeNone:
			return ForgotPasswordForm{Email: s.Email}, nil
		}

	case MagicLinkForm:
		switch {
		case in.Action == ActionSubmitMagicLink && in.Outcome == OutcomeSuccess:
			return MagicLinkSent{Email: in.Email}, nil
		case in.Action == ActionSubmitMagicLink && in.Outcome.failed():
			return MagicLinkForm{Email: in.Email, Error: in.Message}, nil
		case (in.Action == ActionUsePassword || in.Action == ActionBack) && in.Outcome == OutcomeNone:
			return Password{Email: s.Email}, nil
		}

	case MagicLinkSent:
		if in.Action == ActionBack && in.Outcome == OutcomeNone {
			return Password{Email: s.Email}, nil
		}

	case TwoFactorPending:
		switch {
		case in.Action == ActionSubmitOTP && in.Outcome == OutcomeSuccess:
			return Authenticated{}, nil
		case in.Action == ActionSubmitOTP && in.Outcome.failed():
			// The temp token survives a wrong code so the user can retry
			return TwoFactorPending{TempToken: s.TempToken, Error: in.Message}, nil
		case in.Action == ActionBack && in.Outcome == OutcomeNone:
			return Password{}, nil
		}

	case ForgotPasswordForm:
		switch {
		case in.Action == ActionSubmitForgotPassword && in.Outcome == OutcomeSuccess:
			return ForgotPasswordSent{Email: in.Email}, nil
		case in.Action == ActionSubmitForgotPassword && in.Outcome.failed():
			return ForgotPasswordForm{Email: in.Email, Error: in.Message}, nil
		case in.Action == ActionBack && in.Outcome == OutcomeNone:
			return Password{Email: s.Email}, nil
		}

	case ForgotPasswordSent:
		switch {
		case in.Action == ActionTryAnotherEmail && in.Outcome == OutcomeNone:
			return ForgotPasswordForm{}, nil
		case in.Action == ActionBack && in.Outcome == OutcomeNone:
			return Password{Email: s.Email}, nil
		}
	}

	return illegal()
}
