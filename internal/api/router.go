// Package api implements the HTTP surface (component G): the chi
// router binding every endpoint in spec.md §6 to components A–F,
// grounded on the teacher's cmd/thv-registry-api/app/serve.go (router
// construction + middleware stack) and pkg/api/v1's per-resource
// Routes-struct-with-injected-deps convention.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agent-matrix/matrix-hub/internal/catalog"
	"github.com/agent-matrix/matrix-hub/internal/ingest"
	"github.com/agent-matrix/matrix-hub/internal/install"
	"github.com/agent-matrix/matrix-hub/internal/scheduler"
	"github.com/agent-matrix/matrix-hub/internal/search"
)

// Deps collects every component the HTTP surface binds together.
type Deps struct {
	Store             catalog.Store
	SearchEngine      *search.Engine
	Installer         *install.Installer
	IngestEngine      *ingest.Engine
	Scheduler         *scheduler.Scheduler
	AdminToken        string
	PublicSearchLimit int
}

// Option configures the router, mirroring the teacher's
// v1.WithMiddlewares functional option.
type Option func(*chi.Mux)

// WithMiddlewares appends middleware to the router's global chain.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(r *chi.Mux) {
		r.Use(mw...)
	}
}

// NewServer builds the complete router. GET /health, /catalog/search,
// and /catalog/entities/{uid} are unauthenticated; /catalog/install
// accepts an optional bearer; /remotes, /ingest, and /remotes/sync
// require the configured admin token.
func NewServer(deps Deps, opts ...Option) http.Handler {
	r := chi.NewRouter()
	for _, opt := range opts {
		opt(r)
	}

	r.Mount("/health", healthRouter(deps.Store))
	r.Mount("/catalog", catalogRouter(deps.Store, deps.SearchEngine, deps.Installer, deps.PublicSearchLimit, deps.AdminToken))

	r.Group(func(r chi.Router) {
		r.Use(requireAdmin(deps.AdminToken))
		r.Mount("/remotes", remotesRouter(deps.Store, deps.Scheduler))
		r.Mount("/ingest", ingestRouter(deps.IngestEngine))
	})

	return r
}
