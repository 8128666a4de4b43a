// Package apperr defines the error taxonomy shared by the complaint core and its HTTP shell.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error by how the caller must react to it.
type Kind string

const (
	// KindAccessDenied: the store rejected the read or write for the caller's scope. Shown to the user.
	KindAccessDenied Kind = "access_denied"
	// KindNotReady: the caller's scope cannot be built yet. The caller should wait, not report.
	KindNotReady Kind = "not_ready"
	// KindValidation: a rule rejected the action before any write. Shown to the user.
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	// KindTransientIO: store or network failure.
	KindTransientIO Kind = "transient_io"
	KindInternal    Kind = "internal"
)

// Error is the typed error carried across package boundaries.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
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

// Is matches any *Error of the same kind, so errors.Is(err, apperr.ErrAccessDenied) works
// for every access error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind around a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Common errors
var (
	ErrAccessDenied = New(KindAccessDenied, "access denied")
	ErrNotReady     = New(KindNotReady, "scope not ready")
	ErrValidation   = New(KindValidation, "validation failed")
	ErrNotFound     = New(KindNotFound, "complaint not found")
	ErrTransientIO  = New(KindTransientIO, "store unavailable")
)

func AccessDenied(msg string) *Error {
	return New(KindAccessDenied, msg)
}

func Validation(msg string) *Error {
	return New(KindValidation, msg)
}

func NotFound(msg string) *Error {
	return New(KindNotFound, msg)
}

// KindOf reports the kind of err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps an error to the status code the API responds with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindAccessDenied:
		return http.StatusForbidden
	case KindNotReady:
		return http.StatusConflict
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	case KindTransientIO:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the user-facing message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
