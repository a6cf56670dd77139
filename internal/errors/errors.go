package errors

import (
	"errors"
	"fmt"
)

// Common error types for the storefront auth client
var (
	// Session errors
	ErrNoSession        = errors.New("no stored session")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrPartialSession   = errors.New("partial session")

	// Flow errors
	ErrIllegalTransition = errors.New("illegal flow transition")
	ErrRequestInFlight   = errors.New("request already in flight")
	ErrStaleResponse     = errors.New("stale response discarded")
	ErrValidation        = errors.New("validation failed")

	// Token errors
	ErrMissingToken      = errors.New("token not provided")
	ErrAlreadyRedeemed   = errors.New("token already redeemed")
	ErrInvalidOTPAuthURL = errors.New("invalid otpauth url")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
