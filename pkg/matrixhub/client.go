// Package matrixhub provides a thin HTTP client for the matrix-hub
// catalog API, grounded on the teacher's
// cmd/thv-operator/pkg/httpclient.Client (context-aware http.Client
// wrapper with a user agent and status-code-to-error mapping) and the
// per-resource accessor shape of pkg/api/v1.Client.
package matrixhub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout is used when no timeout is supplied to New.
const DefaultTimeout = 30 * time.Second

// UserAgent identifies this client to the hub.
const UserAgent = "matrix-hub-client/1.0"

// Client is a thin REST client for the matrix-hub HTTP API (component
// G). It holds no component-level dependencies of its own; every
// method issues one HTTP request and decodes the JSON response.
type Client struct {
	baseURL    string
	adminToken string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAdminToken attaches a bearer token to admin-scoped requests
// (/remotes, /ingest) and to /catalog/install.
func WithAdminToken(token string) Option {
	return func(c *Client) { c.adminToken = token }
}

// WithHTTPClient overrides the underlying *http.Client, e.g. to inject
// a custom transport in tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New builds a Client targeting baseURL (e.g. "http://localhost:8080").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HTTPError is returned when the hub responds with a non-2xx status.
type HTTPError struct {
	StatusCode int
	URL        string
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("matrixhub: %s: %d %s", e.URL, e.StatusCode, e.Message)
}

// SearchQuery are the accepted /catalog/search parameters.
type SearchQuery struct {
	Text           string
	Type           string
	Capabilities   []string
	Frameworks     []string
	Providers      []string
	IncludePending bool
	Mode           string
	Rerank         string
	Limit          int
	WithRAG        bool
	IfNoneMatch    string
}

// SearchItem mirrors internal/search.Item's wire shape.
type SearchItem struct {
	UID          string   `json:"id"`
	Type         string   `json:"type"`
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Summary      string   `json:"summary"`
	Capabilities []string `json:"capabilities"`
	Frameworks   []string `json:"frameworks"`
	Providers    []string `json:"providers"`
	Score        float64  `json:"score_final"`
}

// SearchResult is the decoded /catalog/search response. NotModified
// is true when the server returned 304 against a matching ETag; Items
// and ETag are unset in that case.
type SearchResult struct {
	Items       []SearchItem
	ETag        string
	NotModified bool
}

// Search calls GET /catalog/search.
func (c *Client) Search(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	v := url.Values{}
	setIf(v, "q", q.Text)
	setIf(v, "type", q.Type)
	setIf(v, "capabilities", strings.Join(q.Capabilities, ","))
	setIf(v, "frameworks", strings.Join(q.Frameworks, ","))
	setIf(v, "providers", strings.Join(q.Providers, ","))
	setIf(v, "mode", q.Mode)
	setIf(v, "rerank", q.Rerank)
	if q.IncludePending {
		v.Set("include_pending", "true")
	}
	if q.WithRAG {
		v.Set("with_rag", "true")
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/catalog/search?"+v.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if q.IfNoneMatch != "" {
		req.Header.Set("If-None-Match", q.IfNoneMatch)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("matrixhub: search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return &SearchResult{NotModified: true}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newHTTPError(resp)
	}

	var body struct {
		Items []SearchItem `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("matrixhub: decoding search response: %w", err)
	}
	return &SearchResult{Items: body.Items, ETag: resp.Header.Get("ETag")}, nil
}

// GetEntity calls GET /catalog/entities/{uid} and decodes the raw
// entity JSON into out (typically a map[string]any or a local DTO).
func (c *Client) GetEntity(ctx context.Context, uid string, out any) error {
	return c.doJSON(ctx, http.MethodGet, "/catalog/entities/"+url.PathEscape(uid), nil, out, false)
}

// InstallRequest is the body accepted by POST /catalog/install.
type InstallRequest struct {
	UID            string          `json:"uid,omitempty"`
	InlineManifest json.RawMessage `json:"manifest,omitempty"`
	Target         string          `json:"target"`
}

// Install calls POST /catalog/install and decodes the result into out
// (typically a local mirror of install.InstallResult).
func (c *Client) Install(ctx context.Context, req InstallRequest, out any) error {
	return c.doJSON(ctx, http.MethodPost, "/catalog/install", req, out, true)
}

// Remote mirrors internal/catalog.Remote's wire shape.
type Remote struct {
	URL           string     `json:"URL"`
	LastFetchedAt *time.Time `json:"LastFetchedAt"`
	LastETag      string     `json:"LastETag"`
	LastStatus    string     `json:"LastStatus"`
	LastError     string     `json:"LastError"`
}

// ListRemotes calls GET /remotes.
func (c *Client) ListRemotes(ctx context.Context) ([]Remote, error) {
	var body struct {
		Remotes []Remote `json:"remotes"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/remotes", nil, &body, true); err != nil {
		return nil, err
	}
	return body.Remotes, nil
}

// AddRemote calls POST /remotes.
func (c *Client) AddRemote(ctx context.Context, remoteURL string) (*Remote, error) {
	var remote Remote
	err := c.doJSON(ctx, http.MethodPost, "/remotes", map[string]string{"url": remoteURL}, &remote, true)
	return &remote, err
}

// RemoveRemote calls DELETE /remotes.
func (c *Client) RemoveRemote(ctx context.Context, remoteURL string) error {
	return c.doJSON(ctx, http.MethodDelete, "/remotes", map[string]string{"url": remoteURL}, nil, true)
}

// IngestOne calls POST /ingest and decodes the outcome into out
// (typically a local mirror of ingest.Outcome).
func (c *Client) IngestOne(ctx context.Context, remoteURL string, out any) error {
	return c.doJSON(ctx, http.MethodPost, "/ingest", map[string]string{"url": remoteURL}, out, true)
}

// SyncRemotes calls POST /remotes/sync, triggering an out-of-band
// scheduler cycle across every configured remote.
func (c *Client) SyncRemotes(ctx context.Context, out any) error {
	return c.doJSON(ctx, http.MethodPost, "/remotes/sync", nil, out, true)
}

// Healthy calls GET /health, optionally asking the server to verify
// its database connection.
func (c *Client) Healthy(ctx context.Context, checkDB bool) error {
	path := "/health"
	if checkDB {
		path += "?check_db=true"
	}
	return c.doJSON(ctx, http.MethodGet, path, nil, nil, false)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any, admin bool) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("matrixhub: encoding request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := c.newRequest(ctx, method, path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin && c.adminToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.adminToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("matrixhub: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return newHTTPError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("matrixhub: decoding response from %s: %w", path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("matrixhub: building request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func newHTTPError(resp *http.Response) error {
	msg := resp.Status
	if b, err := io.ReadAll(io.LimitReader(resp.Body, 4096)); err == nil && len(b) > 0 {
		var decoded struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(b, &decoded) == nil && decoded.Error != "" {
			msg = decoded.Error
		}
	}
	return &HTTPError{StatusCode: resp.StatusCode, URL: resp.Request.URL.String(), Message: msg}
}

func setIf(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}
