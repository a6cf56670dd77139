package gateway

import (
	"fmt"

	"github.com/Danohx/modasarita-auth/internal/errors"
)

// User-facing messages that do not depend on the endpoint.
const (
	RateLimitedMessage = "Demasiados intentos. Intenta más tarde."
	UnexpectedMessage  = "Ocurrió un error inesperado."
)

type Kind int

const (
	// KindTransport covers network failures and responses that could not be understood.
	KindTransport Kind = iota
	// KindRejected is a non-2xx answer other than 429.
	KindRejected
	// KindRateLimited is a 429 answer.
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindRejected:
		return "rejected"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "transport"
	}
}

// Error is the normalized outcome of a failed call to the remote service.
type Error struct {
	Kind     Kind
	Endpoint string
	Status   int    // HTTP status, 0 for transport failures
	Message  string // mensaje/message from the response body, if any
	Err      error  // underlying cause for transport failures
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Endpoint, e.Kind, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s %s (%d): %s", e.Endpoint, e.Kind, e.Status, e.Message)
	default:
		return fmt.Sprintf("%s %s (%d)", e.Endpoint, e.Kind, e.Status)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a gateway error. Anything that is not a *Error is a transport failure.
func KindOf(err error) Kind {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind
	}
	return KindTransport
}

// UserMessage turns err into the single string shown to the user.
// Rate limiting always yields RateLimitedMessage; a rejection yields the
// server's message or fallback; anything else yields UnexpectedMessage.
func UserMessage(err error, fallback string) string {
	var gerr *Error
	if !errors.As(err, &gerr) {
		return UnexpectedMessage
	}

	switch gerr.Kind {
	case KindRateLimited:
		return RateLimitedMessage
	case KindRejected:
		if gerr.Message != "" {
			return gerr.Message
		}
		return fallback
	default:
		return UnexpectedMessage
	}
}
