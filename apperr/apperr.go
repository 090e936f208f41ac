// Package apperr defines the error taxonomy shared by all engines.
// Engines return these typed errors; only the controllers translate
// them into HTTP responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindForbidden
	KindInvalidInput
	KindInvalidState
	KindConflict
	KindMismatch
	KindUnauthorized
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindInvalidInput:
		return "invalid_input"
	case KindInvalidState:
		return "invalid_state"
	case KindConflict:
		return "conflict"
	case KindMismatch:
		return "mismatch"
	case KindUnauthorized:
		return "unauthorized"
	case KindUpstream:
		return "upstream"
	default:
		return "internal"
	}
}

// HTTPStatus maps a kind to the status code used at the request boundary.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindInvalidInput, KindInvalidState:
		return http.StatusBadRequest
	case KindConflict, KindMismatch:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a kind, a human-readable message and optional payload
// data (e.g. the diff set behind a mismatch).
type Error struct {
	Kind    Kind
	Message string
	Data    interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func NotFound(format string, args ...interface{}) *Error {
	return New(KindNotFound, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return New(KindForbidden, format, args...)
}

func InvalidInput(format string, args ...interface{}) *Error {
	return New(KindInvalidInput, format, args...)
}

func InvalidState(format string, args ...interface{}) *Error {
	return New(KindInvalidState, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return New(KindConflict, format, args...)
}

func Mismatch(data interface{}, format string, args ...interface{}) *Error {
	e := New(KindMismatch, format, args...)
	e.Data = data
	return e
}

func Unauthorized(format string, args ...interface{}) *Error {
	return New(KindUnauthorized, format, args...)
}

func Upstream(err error, format string, args ...interface{}) *Error {
	return Wrap(KindUpstream, err, format, args...)
}

// KindOf extracts the kind from any error in the chain; plain errors
// report KindUnknown and surface as 500s.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// DataOf returns the payload attached to the error, if any.
func DataOf(err error) interface{} {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Data
	}
	return nil
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
