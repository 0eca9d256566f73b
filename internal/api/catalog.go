package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/agent-matrix/matrix-hub/internal/api/httpx"
	"github.com/agent-matrix/matrix-hub/internal/apperrors"
	"github.com/agent-matrix/matrix-hub/internal/catalog"
	"github.com/agent-matrix/matrix-hub/internal/install"
	"github.com/agent-matrix/matrix-hub/internal/search"
)

const (
	defaultSearchLimit  = 20
	adminSearchLimitCap = 100
)

// catalogRoutes serves the public search/entity-detail surface and
// the install trigger, grounded on the teacher's pkg/api/v1/registry.go
// per-resource Routes-struct-with-injected-deps shape.
type catalogRoutes struct {
	store          catalog.Store
	searchEngine   *search.Engine
	installer      *install.Installer
	publicLimitCap int
	adminToken     string
}

func catalogRouter(store catalog.Store, searchEngine *search.Engine, installer *install.Installer, publicLimitCap int, adminToken string) http.Handler {
	routes := &catalogRoutes{
		store:          store,
		searchEngine:   searchEngine,
		installer:      installer,
		publicLimitCap: publicLimitCap,
		adminToken:     adminToken,
	}
	r := chi.NewRouter()
	r.Get("/search", httpx.ErrorHandler(routes.search))
	r.Get("/entities/{uid}", httpx.ErrorHandler(routes.getEntity))
	r.Post("/install", httpx.ErrorHandler(routes.install))
	return r
}

func (c *catalogRoutes) search(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()

	// spec.md §4.D: the public surface caps limit to publicLimitCap
	// unless the request is admin-authorized, in which case it may
	// raise the cap up to adminSearchLimitCap.
	limitCap := c.publicLimitCap
	if c.adminToken != "" && bearerMatches(r, c.adminToken) {
		limitCap = adminSearchLimitCap
	}

	limit := c.publicLimitCap
	if raw := q.Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= limitCap {
			limit = parsed
		}
	}

	mode := search.Mode(q.Get("mode"))
	if mode == "" {
		mode = search.ModeHybrid
	}
	rerank := search.RerankKind(q.Get("rerank"))
	if rerank == "" {
		rerank = search.RerankNone
	}

	query := search.Query{
		Text: q.Get("q"),
		Filters: catalog.Filters{
			Type:           catalog.EntityType(q.Get("type")),
			Capabilities:   splitCSV(q.Get("capabilities")),
			Frameworks:     splitCSV(q.Get("frameworks")),
			Providers:      splitCSV(q.Get("providers")),
			IncludePending: q.Get("include_pending") == "true",
		},
		Mode:    mode,
		Limit:   limit,
		WithRAG: q.Get("with_rag") == "true",
		Rerank:  rerank,
	}

	result, notModified, err := c.searchEngine.Search(r.Context(), query, r.Header.Get("If-None-Match"))
	if err != nil {
		return err
	}
	if notModified {
		w.WriteHeader(http.StatusNotModified)
		return nil
	}

	w.Header().Set("ETag", result.ETag)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": result.Items})
	return nil
}

func (c *catalogRoutes) getEntity(w http.ResponseWriter, r *http.Request) error {
	uid := chi.URLParam(r, "uid")
	entity, err := c.store.Get(r.Context(), uid)
	if err != nil {
		return err
	}
	httpx.WriteJSON(w, http.StatusOK, entity)
	return nil
}

type installRequest struct {
	UID            string          `json:"uid"`
	InlineManifest json.RawMessage `json:"manifest"`
	Target         string          `json:"target"`
}

func (c *catalogRoutes) install(w http.ResponseWriter, r *http.Request) error {
	if !optionalBearerOK(r, c.adminToken) {
		return apperrors.NewUnauthorizedError("invalid bearer token", nil)
	}

	var body installRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return apperrors.NewInvalidRequestError("malformed request body", err)
	}
	if body.Target == "" {
		return apperrors.NewInvalidRequestError("target is required", nil)
	}

	result, err := c.installer.Install(r.Context(), install.Request{
		UID:            body.UID,
		InlineManifest: body.InlineManifest,
		Target:         body.Target,
	})
	if err != nil {
		return err
	}
	httpx.WriteJSON(w, http.StatusOK, result)
	return nil
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
