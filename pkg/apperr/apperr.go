package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a failure into the small fixed set the API surfaces.
type Kind int

const (
	Validation Kind = iota
	Authentication
	Authorization
	NotFound
	Upstream
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Status maps a kind to the HTTP status the boundary commits to.
// Authorization failures respond 401, matching the original surface.
func Status(kind Kind) int {
	switch kind {
	case Validation:
		return http.StatusBadRequest
	case Authentication, Authorization:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Resolve extracts the kind and client-safe message from err. Anything that
// is not an *Error collapses to Upstream with a fixed message so raw store
// errors never leak to the client.
func Resolve(err error) (Kind, string) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind, appErr.Message
	}
	return Upstream, "internal server error"
}
