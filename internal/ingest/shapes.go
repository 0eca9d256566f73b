// Package ingest implements the ingestion engine (component C):
// periodic and on-demand fetch of index documents, manifest fetch/
// validate/upsert, and mcp_server→tool derivation.
package ingest

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/agent-matrix/matrix-hub/internal/apperrors"
)

// indexDoc covers the three accepted index-document shapes from
// spec.md §4.C. A document need only populate one of the three.
type indexDoc struct {
	Manifests []string `json:"manifests"`
	Items     []struct {
		ManifestURL string `json:"manifest_url"`
	} `json:"items"`
	Entries []struct {
		BaseURL string `json:"base_url"`
		Path    string `json:"path"`
	} `json:"entries"`
}

// resolveManifestURLs parses body as one of the three accepted index
// shapes and returns the absolute manifest URLs it names, resolving
// relative references against base.
func resolveManifestURLs(base string, body []byte) ([]string, error) {
	var doc indexDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, apperrors.NewRemoteFailureError("index document is not valid JSON", err)
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, apperrors.NewIntegrityError("remote URL is not parseable", err)
	}

	var raw []string
	switch {
	case doc.Manifests != nil:
		raw = doc.Manifests
	case doc.Items != nil:
		for _, it := range doc.Items {
			raw = append(raw, it.ManifestURL)
		}
	case doc.Entries != nil:
		for _, e := range doc.Entries {
			entryBase := e.BaseURL
			if entryBase == "" {
				entryBase = base
			}
			raw = append(raw, strings.TrimRight(entryBase, "/")+"/"+strings.TrimLeft(e.Path, "/"))
		}
	default:
		return nil, apperrors.NewInvalidRequestError(fmt.Sprintf("index document at %s matches none of the three accepted shapes", base), nil)
	}

	urls := make([]string, 0, len(raw))
	for _, r := range raw {
		resolved, err := baseURL.Parse(r)
		if err != nil {
			continue
		}
		urls = append(urls, resolved.String())
	}
	return urls, nil
}
