package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agent-matrix/matrix-hub/internal/api/httpx"
	"github.com/agent-matrix/matrix-hub/internal/apperrors"
	"github.com/agent-matrix/matrix-hub/internal/catalog"
)

// healthRoutes serves GET /health, grounded on the teacher's
// pkg/api/v1/healthcheck.go (containerRuntime.IsRunning liveness
// check), substituting the catalog store's Watermark call as this
// domain's equivalent optional dependency probe.
type healthRoutes struct {
	store catalog.Store
}

func healthRouter(store catalog.Store) http.Handler {
	routes := &healthRoutes{store: store}
	r := chi.NewRouter()
	r.Get("/", httpx.ErrorHandler(routes.getHealth))
	return r
}

func (h *healthRoutes) getHealth(w http.ResponseWriter, r *http.Request) error {
	if r.URL.Query().Get("check_db") != "true" {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return nil
	}

	if _, err := h.store.Watermark(r.Context()); err != nil {
		return apperrors.NewTransientError("database probe failed", err)
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "db": "ok"})
	return nil
}
