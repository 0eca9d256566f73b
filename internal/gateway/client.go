package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cenkalti/backoff/v5"

	"github.com/agent-matrix/matrix-hub/internal/apperrors"
)

// Client is a thin, retrying HTTP client for the gateway admin API
// (spec.md §4.F). It holds no domain knowledge of tool/resource/
// prompt/server shapes beyond what createOrResolve needs.
type Client struct {
	baseURL    string
	httpClient *http.Client
	auth       *tokenProvider
}

// NewClient builds a Client from cfg.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultCallBudget}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: httpClient,
		auth:       newTokenProvider(cfg),
	}
}

// createOrResolve POSTs body to createPath. A 2xx response is
// terminal success. A 409 is resolved by GET-ing listPath and
// matching an existing record by, in order: exact numeric id (n/a for
// a fresh create), case-insensitive name, exact uri. Transient 5xx
// responses retry up to N=3 with exponential backoff; 401/403 and
// other 4xx fail fast (spec.md §4.F).
func (c *Client) createOrResolve(ctx context.Context, createPath, listPath string, body []byte, matchName, matchURI string) (*record, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = defaultRetryInitialInterval

	resp, err := backoff.Retry(ctx, func() (*record, error) {
		rec, status, err := c.post(ctx, createPath, body)
		if err != nil {
			return nil, err
		}
		switch {
		case status >= 200 && status < 300:
			return rec, nil
		case status == http.StatusConflict:
			resolved, err := c.resolveConflict(ctx, listPath, matchName, matchURI)
			if err != nil {
				return nil, backoff.Permanent(err)
			}
			return resolved, nil
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return nil, backoff.Permanent(apperrors.NewUnauthorizedError(fmt.Sprintf("gateway auth rejected (%d)", status), nil))
		case status >= 500:
			return nil, apperrors.NewTransientError(fmt.Sprintf("gateway returned %d", status), nil)
		default:
			return nil, backoff.Permanent(apperrors.NewRemoteFailureError(fmt.Sprintf("gateway returned %d", status), nil))
		}
	}, backoff.WithBackOff(b), backoff.WithMaxTries(defaultRetryMaxAttempts))
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) (*record, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.setAuth(req); err != nil {
		return nil, 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, apperrors.NewTransientError("gateway request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, nil
	}

	var rec record
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, resp.StatusCode, apperrors.NewRemoteFailureError("gateway returned unparseable response", err)
	}
	return &rec, resp.StatusCode, nil
}

func (c *Client) resolveConflict(ctx context.Context, listPath, matchName, matchURI string) (*record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+listPath, nil)
	if err != nil {
		return nil, err
	}
	if err := c.setAuth(req); err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewTransientError("gateway list request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, apperrors.NewRemoteFailureError(fmt.Sprintf("gateway list returned %d: %s", resp.StatusCode, string(body)), nil)
	}

	var records []record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, apperrors.NewRemoteFailureError("gateway list returned unparseable response", err)
	}

	for _, r := range records {
		if matchName != "" && strings.EqualFold(fmt.Sprintf("%v", r.Name), matchName) {
			return &r, nil
		}
	}
	for _, r := range records {
		if matchURI != "" && r.URI == matchURI {
			return &r, nil
		}
	}
	return nil, apperrors.NewIntegrityError("gateway reported 409 but no matching record was found", nil)
}

func (c *Client) setAuth(req *http.Request) error {
	header, err := c.auth.header()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", header)
	return nil
}
