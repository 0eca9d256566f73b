// Package httpx provides the error-returning handler decorator shared
// by every route in internal/api, so a single place maps apperrors
// kinds onto HTTP status codes and response bodies.
package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/agent-matrix/matrix-hub/internal/apperrors"
	"github.com/agent-matrix/matrix-hub/internal/logger"
)

// HandlerFunc is an HTTP handler that can return an error instead of
// writing an error response itself.
type HandlerFunc func(http.ResponseWriter, *http.Request) error

// ErrorHandler wraps fn, converting a returned error into an HTTP
// response via apperrors.Code. A nil return means fn already wrote
// its own response.
func ErrorHandler(fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}

		code := apperrors.Code(err)
		if code >= http.StatusInternalServerError {
			logger.Errorf("internal server error: %v", err)
			WriteJSONError(w, code, "internal server error")
			return
		}
		WriteJSONError(w, code, err.Error())
	}
}

// WriteJSON writes v as a JSON response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteJSONError writes {"error": message} with the given status.
func WriteJSONError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}
