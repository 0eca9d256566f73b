package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agent-matrix/matrix-hub/internal/apperrors"
	"github.com/agent-matrix/matrix-hub/internal/catalog"
	"github.com/agent-matrix/matrix-hub/internal/logger"
	"github.com/agent-matrix/matrix-hub/internal/manifest"
)

// GatewayRegistrar is the async, best-effort hook into component F.
// Ingestion enqueues registration but never waits on it (spec.md
// §4.C step 3). Implemented by internal/gateway.
type GatewayRegistrar interface {
	RegisterAsync(uid string, m *manifest.Manifest)
}

// Outcome summarizes one remote's ingest cycle (spec.md §4.C step 4).
type Outcome struct {
	RemoteURL     string   `json:"remote_url"`
	Status        string   `json:"status"` // ok | partial | error
	NotModified   bool     `json:"not_modified"`
	ManifestCount int      `json:"manifest_count"`
	Succeeded     int      `json:"succeeded"`
	Failed        int      `json:"failed"`
	Errors        []string `json:"errors"`
}

// Engine is the ingestion engine. It is safe for concurrent use; a
// process-local lease (spec.md §5) ensures at most one cycle runs at
// a time.
type Engine struct {
	store      catalog.Store
	httpClient *http.Client
	workerPool int
	deriveTool bool
	gateway    GatewayRegistrar

	lease sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithGatewayRegistrar wires component F's async registration hook.
func WithGatewayRegistrar(g GatewayRegistrar) Option {
	return func(e *Engine) { e.gateway = g }
}

// WithHTTPClient overrides the default HTTP client (tests use this to
// inject an httptest-backed client).
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) { e.httpClient = c }
}

// New builds an Engine. workerPool bounds per-remote manifest-fetch
// concurrency (spec.md §5, default 4); deriveTool enables the
// mcp_server→tool derivation rule.
func New(store catalog.Store, workerPool int, deriveTool bool, opts ...Option) *Engine {
	if workerPool <= 0 {
		workerPool = 4
	}
	e := &Engine{
		store:      store,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		workerPool: workerPool,
		deriveTool: deriveTool,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) acquireLease() (func(), bool) {
	if !e.lease.TryLock() {
		return nil, false
	}
	return e.lease.Unlock, true
}

// IngestOne runs a single remote's ingest cycle, registering the
// remote first if it is not already known.
func (e *Engine) IngestOne(ctx context.Context, remoteURL string) (*Outcome, error) {
	release, ok := e.acquireLease()
	if !ok {
		return nil, apperrors.NewConflictError("an ingest cycle is already in progress", nil)
	}
	defer release()

	if _, err := e.store.UpsertRemote(ctx, remoteURL); err != nil {
		return nil, err
	}
	return e.runRemote(ctx, remoteURL)
}

// IngestAll runs an ingest cycle over every configured remote.
// Per spec.md §5, remotes are processed serially; manifest fetches
// within each remote use the bounded worker pool.
func (e *Engine) IngestAll(ctx context.Context) ([]*Outcome, error) {
	release, ok := e.acquireLease()
	if !ok {
		return nil, apperrors.NewConflictError("an ingest cycle is already in progress", nil)
	}
	defer release()

	remotes, err := e.store.ListRemotes(ctx)
	if err != nil {
		return nil, err
	}

	outcomes := make([]*Outcome, 0, len(remotes))
	for _, r := range remotes {
		outcome, err := e.runRemote(ctx, r.URL)
		if err != nil {
			logger.Warnf("ingest: remote %s failed outright: %v", r.URL, err)
			outcome = &Outcome{RemoteURL: r.URL, Status: "error", Errors: []string{err.Error()}}
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func (e *Engine) runRemote(ctx context.Context, remoteURL string) (*Outcome, error) {
	remotes, err := e.store.ListRemotes(ctx)
	if err != nil {
		return nil, err
	}
	var lastETag string
	for _, r := range remotes {
		if r.URL == remoteURL {
			lastETag = r.LastETag
			break
		}
	}

	body, etag, notModified, fetchErr := e.fetchIndex(ctx, remoteURL, lastETag)
	if fetchErr != nil {
		_ = e.store.RecordRemotePoll(ctx, remoteURL, catalog.RemoteStatusError, lastETag, fetchErr.Error())
		return &Outcome{RemoteURL: remoteURL, Status: "error", Errors: []string{fetchErr.Error()}}, nil
	}
	if notModified {
		_ = e.store.RecordRemotePoll(ctx, remoteURL, catalog.RemoteStatusOK, lastETag, "")
		return &Outcome{RemoteURL: remoteURL, Status: "ok", NotModified: true}, nil
	}

	urls, err := resolveManifestURLs(remoteURL, body)
	if err != nil {
		_ = e.store.RecordRemotePoll(ctx, remoteURL, catalog.RemoteStatusError, etag, err.Error())
		return &Outcome{RemoteURL: remoteURL, Status: "error", Errors: []string{err.Error()}}, nil
	}

	outcome := &Outcome{RemoteURL: remoteURL, ManifestCount: len(urls)}
	var mu sync.Mutex
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(e.workerPool)
	for _, manifestURL := range urls {
		manifestURL := manifestURL
		group.Go(func() error {
			if err := e.ingestManifest(gctx, remoteURL, manifestURL); err != nil {
				mu.Lock()
				outcome.Failed++
				outcome.Errors = append(outcome.Errors, fmt.Sprintf("%s: %v", manifestURL, err))
				mu.Unlock()
				logger.Warnf("ingest: manifest %s failed: %v", manifestURL, err)
				return nil
			}
			mu.Lock()
			outcome.Succeeded++
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	switch {
	case outcome.Failed == 0:
		outcome.Status = "ok"
	case outcome.Succeeded > 0:
		outcome.Status = "partial"
	default:
		outcome.Status = "error"
	}

	pollErr := ""
	if len(outcome.Errors) > 0 {
		pollErr = strings.Join(outcome.Errors, "; ")
	}
	if err := e.store.RecordRemotePoll(ctx, remoteURL, catalog.RemoteStatus(outcome.Status), etag, pollErr); err != nil {
		logger.Warnf("ingest: failed to record poll outcome for %s: %v", remoteURL, err)
	}
	return outcome, nil
}

func (e *Engine) fetchIndex(ctx context.Context, remoteURL, lastETag string) (body []byte, etag string, notModified bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return nil, "", false, apperrors.NewInvalidRequestError("malformed remote URL", err)
	}
	if lastETag != "" {
		req.Header.Set("If-None-Match", lastETag)
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, "", false, apperrors.NewRemoteFailureError("fetching index document", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return nil, lastETag, true, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", false, apperrors.NewRemoteFailureError(fmt.Sprintf("index fetch returned %s", resp.Status), nil)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", false, apperrors.NewRemoteFailureError("reading index document body", err)
	}
	return data, resp.Header.Get("ETag"), false, nil
}

func (e *Engine) ingestManifest(ctx context.Context, remoteURL, manifestURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, manifestURL, nil)
	if err != nil {
		return apperrors.NewInvalidRequestError("malformed manifest URL", err)
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return apperrors.NewRemoteFailureError("fetching manifest", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apperrors.NewRemoteFailureError(fmt.Sprintf("manifest fetch returned %s", resp.Status), nil)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewRemoteFailureError("reading manifest body", err)
	}

	m, err := manifest.Validate(raw)
	if err != nil {
		return err
	}

	uid, err := e.upsertManifestEntity(ctx, m, manifestURL, false)
	if err != nil {
		return err
	}

	if m.Type == "mcp_server" {
		if e.deriveTool && m.MCPRegistration != nil && m.MCPRegistration.Tool != nil {
			if derr := e.deriveSyntheticTool(ctx, m, manifestURL); derr != nil {
				logger.Warnf("ingest: deriving synthetic tool from %s failed: %v", uid, derr)
			}
		}
		if m.MCPRegistration != nil && m.MCPRegistration.Server != nil && m.MCPRegistration.Server.URL != "" && e.gateway != nil {
			e.gateway.RegisterAsync(uid, m)
		}
	}

	_ = remoteURL
	return nil
}

func (e *Engine) upsertManifestEntity(ctx context.Context, m *manifest.Manifest, sourceURL string, pending bool) (string, error) {
	entity := &catalog.Entity{
		Type:         catalog.EntityType(m.Type),
		ID:           m.ID,
		Version:      m.Version,
		Name:         m.Name,
		Summary:      m.Summary,
		Description:  m.Description,
		Homepage:     m.Homepage,
		Publisher:    m.Publisher,
		License:      m.License,
		Capabilities: m.Capabilities,
		Frameworks:   m.Frameworks,
		Providers:    m.Providers,
		Manifest:     m.Raw,
		SourceURL:    sourceURL,
		Pending:      pending,
	}
	if m.QualityScore != nil {
		entity.QualityScore = *m.QualityScore
	}
	uid, _, err := e.store.UpsertEntity(ctx, entity)
	return uid, err
}

// deriveSyntheticTool implements spec.md §4.C's derivation rule: a
// mcp_server with mcp_registration.tool also yields a synthetic tool
// Entity, pending until first successful gateway registration.
func (e *Engine) deriveSyntheticTool(ctx context.Context, m *manifest.Manifest, sourceURL string) error {
	toolID := m.ID + "-tool"
	derived := &manifest.Manifest{
		SchemaVersion: m.SchemaVersion,
		Type:          "tool",
		ID:            toolID,
		Version:       m.Version,
		Name:          m.Name + " (tool)",
		Summary:       m.Summary,
		Description:   m.Description,
		Homepage:      m.Homepage,
		Publisher:     m.Publisher,
		License:       m.License,
		Capabilities:  m.Capabilities,
		Frameworks:    m.Frameworks,
		Providers:     m.Providers,
		Raw:           m.MCPRegistration.Tool,
	}
	_, err := e.upsertManifestEntity(ctx, derived, sourceURL, true)
	return err
}
