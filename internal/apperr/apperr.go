// Package apperr defines the error taxonomy shared by every user flow: each failure is
// scoped to the action that triggered it and is shown to the user as exactly one message.
package apperr

import (
	"errors"
	"net/http"

	"github.com/rotisserie/eris"
)

var (
	// ErrNotReady means a required client (store, geocoder, map) is not initialised.
	ErrNotReady = eris.New("environment not ready")
	// ErrMalformedInput means an uploaded file could not be turned into geometry.
	ErrMalformedInput = eris.New("malformed input")
	// ErrExternal means a store or lookup call failed.
	ErrExternal = eris.New("external call failed")
	// ErrValidation means a required field was missing or empty.
	ErrValidation = eris.New("validation failed")
	// ErrNotFound means the referenced site or session does not exist.
	ErrNotFound = eris.New("not found")
	// ErrNotConfirmed means a destructive action was requested without confirmation.
	ErrNotConfirmed = eris.New("confirmation required")
)

// Error carries a user-facing message alongside the classified cause.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap exposes both the kind sentinel and the underlying cause to errors.Is.
func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

// New builds a classified error with a user-facing message.
func New(kind error, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Wrap classifies cause under kind with a user-facing message.
func Wrap(kind error, cause error, message string) error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Message returns the single message to surface to the user for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return "요청을 처리하지 못했습니다."
}

// Status maps err onto an HTTP status code.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation), errors.Is(err, ErrMalformedInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNotConfirmed):
		return http.StatusPreconditionRequired
	case errors.Is(err, ErrNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrExternal):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
