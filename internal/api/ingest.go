package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agent-matrix/matrix-hub/internal/api/httpx"
	"github.com/agent-matrix/matrix-hub/internal/apperrors"
	"github.com/agent-matrix/matrix-hub/internal/ingest"
)

type ingestRoutes struct {
	engine *ingest.Engine
}

func ingestRouter(engine *ingest.Engine) http.Handler {
	routes := &ingestRoutes{engine: engine}
	r := chi.NewRouter()
	r.Post("/", httpx.ErrorHandler(routes.ingestOne))
	return r
}

type ingestRequest struct {
	URL string `json:"url"`
}

func (ir *ingestRoutes) ingestOne(w http.ResponseWriter, r *http.Request) error {
	var body ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return apperrors.NewInvalidRequestError("malformed request body", err)
	}
	if body.URL == "" {
		return apperrors.NewInvalidRequestError("url is required", nil)
	}

	outcome, err := ir.engine.IngestOne(r.Context(), body.URL)
	if err != nil {
		return err
	}
	httpx.WriteJSON(w, http.StatusOK, outcome)
	return nil
}
