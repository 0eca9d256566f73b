// Package gateway implements the Gateway Client (component F):
// idempotent tool/resource/prompt/gateway-or-server registration
// against an external admin API, with 409-aware ID resolution, SSE
// URL normalization, pluggable auth, retry/backoff, and bounded
// intra-manifest concurrency (spec.md §4.F).
package gateway

import (
	"net/http"
	"time"

	"github.com/agent-matrix/matrix-hub/internal/install"
)

// Config configures a Client.
type Config struct {
	BaseURL string

	// Token is either a raw token, a "Bearer <token>" value, or a
	// "Basic <base64>" value. When set, it takes precedence over
	// JWTSecret.
	Token string

	// JWTSecret + AdminUsername configure HS256 JWT minting instead
	// of a static token.
	JWTSecret     string
	AdminUsername string

	HTTPClient *http.Client
}

const (
	defaultRetryInitialInterval = 250 * time.Millisecond
	defaultRetryMaxAttempts     = 3
	defaultCallBudget           = 30 * time.Second
	defaultJWTTTL               = 5 * time.Minute
	maxConcurrentUpserts         = 4
)

// record is the gateway's response shape for a created or
// conflict-resolved tool/resource/prompt/gateway/server.
type record struct {
	ID   any    `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// Outcome is the result of registering one manifest's
// mcp_registration block.
type Outcome struct {
	Registrations []install.LockGatewayReg
}
