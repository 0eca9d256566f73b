package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/agent-matrix/matrix-hub/internal/logger"
)

// LoggingMiddleware stamps the chi request id as the structured
// logger's correlation id and logs one line per completed request,
// grounded on the teacher's v1.LoggingMiddleware (cmd/thv-registry-api/app/serve.go).
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.With(
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		).Info("http request")
	})
}

// requireAdmin enforces the bearer token configured for admin-only
// routes. An empty token means admin routes are open (spec.md §6:
// "absent the secret, admin endpoints are either disabled or open per
// configuration" — this server chooses open, since the operator can
// put it behind a network boundary instead).
func requireAdmin(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !bearerMatches(r, token) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// optionalBearerOK checks the bearer token if one is configured and the
// request supplies one, but never rejects a request for omitting it
// (spec.md §6: install is "optional bearer").
func optionalBearerOK(r *http.Request, token string) bool {
	if token == "" {
		return true
	}
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return true
	}
	return bearerMatches(r, token)
}

func bearerMatches(r *http.Request, token string) bool {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return false
	}
	supplied := strings.TrimPrefix(auth, prefix)
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(token)) == 1
}
