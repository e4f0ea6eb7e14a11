package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("not allowed")
	ErrMeetupFull        = errors.New("meetup is full")
	ErrAlreadyMember     = errors.New("already a member")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotOnboarded      = errors.New("profile incomplete")
)

// ValidationError is a rejected input. Its message is safe to show to users.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsTransient reports errors outside the validation, authorization and
// not-found classes: network or storage failures a user may retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case IsValidation(err),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrForbidden),
		errors.Is(err, ErrMeetupFull),
		errors.Is(err, ErrAlreadyMember),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrNotOnboarded):
		return false
	}
	return true
}
