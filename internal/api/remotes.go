package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agent-matrix/matrix-hub/internal/api/httpx"
	"github.com/agent-matrix/matrix-hub/internal/apperrors"
	"github.com/agent-matrix/matrix-hub/internal/catalog"
	"github.com/agent-matrix/matrix-hub/internal/scheduler"
)

type remoteRoutes struct {
	store     catalog.Store
	scheduler *scheduler.Scheduler
}

// remotesRouter serves /remotes (list/add/remove) and /remotes/sync
// (ingest-all-and-register) under a single mount, since chi does not
// let two separately-mounted routers share a path prefix.
func remotesRouter(store catalog.Store, sched *scheduler.Scheduler) http.Handler {
	routes := &remoteRoutes{store: store, scheduler: sched}
	r := chi.NewRouter()
	r.Get("/", httpx.ErrorHandler(routes.list))
	r.Post("/", httpx.ErrorHandler(routes.add))
	r.Delete("/", httpx.ErrorHandler(routes.remove))
	r.Post("/sync", httpx.ErrorHandler(routes.sync))
	return r
}

func (rr *remoteRoutes) sync(w http.ResponseWriter, r *http.Request) error {
	outcomes, err := rr.scheduler.Trigger(r.Context())
	if err != nil {
		return err
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"outcomes": outcomes})
	return nil
}

type remoteRequest struct {
	URL string `json:"url"`
}

func (rr *remoteRoutes) list(w http.ResponseWriter, r *http.Request) error {
	remotes, err := rr.store.ListRemotes(r.Context())
	if err != nil {
		return err
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"remotes": remotes})
	return nil
}

func (rr *remoteRoutes) add(w http.ResponseWriter, r *http.Request) error {
	var body remoteRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return apperrors.NewInvalidRequestError("malformed request body", err)
	}
	if body.URL == "" {
		return apperrors.NewInvalidRequestError("url is required", nil)
	}
	remote, err := rr.store.UpsertRemote(r.Context(), body.URL)
	if err != nil {
		return err
	}
	httpx.WriteJSON(w, http.StatusOK, remote)
	return nil
}

func (rr *remoteRoutes) remove(w http.ResponseWriter, r *http.Request) error {
	var body remoteRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return apperrors.NewInvalidRequestError("malformed request body", err)
	}
	if body.URL == "" {
		return apperrors.NewInvalidRequestError("url is required", nil)
	}
	if err := rr.store.RemoveRemote(r.Context(), body.URL); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
