// Package apperrors provides a small discriminated error type shared
// across every component, so a single place (Code) maps application
// failures onto HTTP status codes and background-path log severity.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Type identifies a class of application failure.
type Type string

// Error kinds from spec.md §7.
const (
	ErrInvalidRequest Type = "invalid_request"
	ErrUnauthorized   Type = "unauthorized"
	ErrForbidden      Type = "forbidden"
	ErrNotFound       Type = "not_found"
	ErrConflict       Type = "conflict"
	ErrRemoteFailure  Type = "remote_failure"
	ErrIntegrity      Type = "integrity_error"
	ErrTransient      Type = "transient"
)

// Error is the application-wide typed error.
type Error struct {
	Type    Type
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.Cause }

// NewError builds an *Error of the given type.
func NewError(t Type, message string, cause error) *Error {
	return &Error{Type: t, Message: message, Cause: cause}
}

// NewInvalidRequestError constructs an ErrInvalidRequest.
func NewInvalidRequestError(message string, cause error) *Error {
	return NewError(ErrInvalidRequest, message, cause)
}

// NewUnauthorizedError constructs an ErrUnauthorized.
func NewUnauthorizedError(message string, cause error) *Error {
	return NewError(ErrUnauthorized, message, cause)
}

// NewForbiddenError constructs an ErrForbidden.
func NewForbiddenError(message string, cause error) *Error {
	return NewError(ErrForbidden, message, cause)
}

// NewNotFoundError constructs an ErrNotFound.
func NewNotFoundError(message string, cause error) *Error {
	return NewError(ErrNotFound, message, cause)
}

// NewConflictError constructs an ErrConflict.
func NewConflictError(message string, cause error) *Error {
	return NewError(ErrConflict, message, cause)
}

// NewRemoteFailureError constructs an ErrRemoteFailure.
func NewRemoteFailureError(message string, cause error) *Error {
	return NewError(ErrRemoteFailure, message, cause)
}

// NewIntegrityError constructs an ErrIntegrity.
func NewIntegrityError(message string, cause error) *Error {
	return NewError(ErrIntegrity, message, cause)
}

// NewTransientError constructs an ErrTransient.
func NewTransientError(message string, cause error) *Error {
	return NewError(ErrTransient, message, cause)
}

func is(err error, t Type) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == t
}

func IsInvalidRequest(err error) bool { return is(err, ErrInvalidRequest) }
func IsUnauthorized(err error) bool   { return is(err, ErrUnauthorized) }
func IsForbidden(err error) bool      { return is(err, ErrForbidden) }
func IsNotFound(err error) bool       { return is(err, ErrNotFound) }
func IsConflict(err error) bool       { return is(err, ErrConflict) }
func IsRemoteFailure(err error) bool  { return is(err, ErrRemoteFailure) }
func IsIntegrity(err error) bool      { return is(err, ErrIntegrity) }
func IsTransient(err error) bool      { return is(err, ErrTransient) }

// Code maps an error onto an HTTP status code. Unrecognized errors map
// to 500 so an unexpected condition never silently becomes a 2xx.
func Code(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Type {
	case ErrInvalidRequest:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConflict:
		return http.StatusConflict
	case ErrRemoteFailure:
		return http.StatusBadGateway
	case ErrIntegrity:
		return http.StatusInternalServerError
	case ErrTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
