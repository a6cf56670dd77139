package flow

import (
	"sync"

	"github.com/Danohx/modasarita-auth/internal/errors"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Result is what a one-shot form shows after a submit.
type Result struct {
	Message string
	OK      bool
}

// formBase is the single-request guard shared by the one-shot forms.
type formBase struct {
	nav    Navigator
	logger zerolog.Logger

	mu       sync.Mutex
	inFlight bool
}

type FormOption func(*formBase)

func WithFormLogger(logger zerolog.Logger) FormOption {
	return func(f *formBase) {
		f.logger = logger
	}
}

func newFormBase(nav Navigator, options []FormOption) formBase {
	f := formBase{nav: nav, logger: log.Logger}
	for _, opt := range options {
		opt(&f)
	}
	return f
}

func (f *formBase) begin() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight {
		return errors.ErrRequestInFlight
	}
	f.inFlight = true
	return nil
}

func (f *formBase) end() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight = false
}

// firstInvalid returns the message for the first field of form that fails
// validation, or "" when the form is valid.
func firstInvalid(form any, messages map[string]string) string {
	err := validate.Struct(form)
	if err == nil {
		return ""
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	if msg, ok := messages[verrs[0].Field()]; ok {
		return msg
	}
	return verrs[0].Error()
}
