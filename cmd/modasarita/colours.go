package main

import "github.com/Danohx/modasarita-auth/flow"

const (
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
	Gray    = "\033[90m" // Bright black, often appears as gray

	GreenInverse = "\033[7;32m"

	ResetColor = "\033[0m"
)

var stateColors = map[flow.Kind]string{
	flow.KindPassword:           Blue,
	flow.KindMagicLinkForm:      Blue,
	flow.KindMagicLinkSent:      Cyan,
	flow.KindTwoFactorPending:   Magenta,
	flow.KindForgotPasswordForm: Blue,
	flow.KindForgotPasswordSent: Cyan,
	flow.KindAuthenticated:      GreenInverse,
	flow.KindRedeemFailed:       Red,
}
