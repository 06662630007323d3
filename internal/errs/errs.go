// Package errs classifies failures of the order subsystem so that every layer can
// branch on the kind of a failure with errors.Is and the HTTP layer can pick a
// status code without matching on message text.
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Failure kinds. Every error produced by the services wraps exactly one of these.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrConflict          = errors.New("conflict")
	ErrNoVendorAvailable = errors.New("no vendor available")
	ErrStoreFailure      = errors.New("store failure")
)

// Error is a classified failure. Msg is safe to show to API clients.
type Error struct {
	Kind  error
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Msg + ": " + e.Cause.Error()
	}
	return e.Msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

// New creates a classified error with a formatted message.
func New(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies cause under kind.
func Wrap(kind error, cause error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// InvalidInput reports a malformed or missing request field.
func InvalidInput(format string, args ...any) error {
	return New(ErrInvalidInput, format, args...)
}

// NotFound reports a missing entity, e.g. NotFound("order", id).
func NotFound(entity, id string) error {
	return New(ErrNotFound, "%s with ID %s not found", entity, id)
}

// Forbidden reports an ownership or role mismatch.
func Forbidden(format string, args ...any) error {
	return New(ErrForbidden, format, args...)
}

// Store wraps a persistence error. Errors that are already classified pass through
// with op prepended so that a NotFound from a repository stays a NotFound.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	if Classified(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return Wrap(ErrStoreFailure, err, "%s", op)
}

// Classified reports whether err already carries one of the failure kinds.
func Classified(err error) bool {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}

var kinds = []error{
	ErrInvalidInput, ErrNotFound, ErrForbidden, ErrUnauthorized,
	ErrConflict, ErrNoVendorAvailable, ErrStoreFailure,
}

// HTTPStatus maps a failure to the status class returned by the API.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrNoVendorAvailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing part of err. Store failures and unclassified
// errors are reduced to a generic text so driver details do not leak.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && !errors.Is(e.Kind, ErrStoreFailure) {
		return e.Msg
	}
	return "internal server error"
}

// PartialFailureError is returned when a multi-step mutation stopped midway.
// Completed holds the IDs of entities that were persisted before the failure and
// were not rolled back.
type PartialFailureError struct {
	Completed []string
	Err       error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("partially applied (%d completed: %s): %v",
		len(e.Completed), strings.Join(e.Completed, ", "), e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }
