package apperrors

import (
	"errors"
	"net/http"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "error with cause",
			err:  &Error{Type: ErrInvalidRequest, Message: "test message", Cause: errors.New("underlying error")},
			want: "invalid_request: test message: underlying error",
		},
		{
			name: "error without cause",
			err:  &Error{Type: ErrIntegrity, Message: "test message", Cause: nil},
			want: "integrity_error: test message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &Error{Type: ErrTransient, Message: "m", Cause: cause}
	if got := err.Unwrap(); got != cause {
		t.Errorf("Unwrap() = %v, want %v", got, cause)
	}

	noCause := &Error{Type: ErrTransient, Message: "m"}
	if got := noCause.Unwrap(); got != nil {
		t.Errorf("Unwrap() = %v, want nil", got)
	}
}

func TestNewErrorConstructors(t *testing.T) {
	cause := errors.New("cause")
	tests := []struct {
		name        string
		constructor func(string, error) *Error
		wantType    Type
	}{
		{"NewInvalidRequestError", NewInvalidRequestError, ErrInvalidRequest},
		{"NewUnauthorizedError", NewUnauthorizedError, ErrUnauthorized},
		{"NewForbiddenError", NewForbiddenError, ErrForbidden},
		{"NewNotFoundError", NewNotFoundError, ErrNotFound},
		{"NewConflictError", NewConflictError, ErrConflict},
		{"NewRemoteFailureError", NewRemoteFailureError, ErrRemoteFailure},
		{"NewIntegrityError", NewIntegrityError, ErrIntegrity},
		{"NewTransientError", NewTransientError, ErrTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.constructor("test message", cause)
			if err.Type != tt.wantType {
				t.Errorf("%s().Type = %v, want %v", tt.name, err.Type, tt.wantType)
			}
			if err.Message != "test message" || err.Cause != cause {
				t.Errorf("%s() fields mismatch: %+v", tt.name, err)
			}
		})
	}
}

func TestErrorTypeCheckers(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		checker func(error) bool
		want    bool
	}{
		{"matching", NewInvalidRequestError("t", nil), IsInvalidRequest, true},
		{"non-matching", NewConflictError("t", nil), IsInvalidRequest, false},
		{"non-Error type", errors.New("plain"), IsInvalidRequest, false},
		{"IsNotFound matching", NewNotFoundError("t", nil), IsNotFound, true},
		{"IsForbidden matching", NewForbiddenError("t", nil), IsForbidden, true},
		{"IsRemoteFailure matching", NewRemoteFailureError("t", nil), IsRemoteFailure, true},
		{"IsTransient matching", NewTransientError("t", nil), IsTransient, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.checker(tt.err); got != tt.want {
				t.Errorf("checker(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NewInvalidRequestError("m", nil), http.StatusBadRequest},
		{NewUnauthorizedError("m", nil), http.StatusUnauthorized},
		{NewForbiddenError("m", nil), http.StatusForbidden},
		{NewNotFoundError("m", nil), http.StatusNotFound},
		{NewConflictError("m", nil), http.StatusConflict},
		{NewRemoteFailureError("m", nil), http.StatusBadGateway},
		{NewIntegrityError("m", nil), http.StatusInternalServerError},
		{NewTransientError("m", nil), http.StatusServiceUnavailable},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := Code(tt.err); got != tt.want {
			t.Errorf("Code(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
