package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agent-matrix/matrix-hub/internal/catalog"
	"github.com/agent-matrix/matrix-hub/internal/catalog/sqlite"
)

func newTestStore(t *testing.T) catalog.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sqlite.Open(context.Background(), dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlite.NewStore(db)
}

const helloManifest = `{
	"schema_version": "1.0",
	"type": "mcp_server",
	"id": "hello",
	"version": "0.1.0",
	"name": "Hello SSE",
	"capabilities": ["hello"],
	"mcp_registration": {
		"server": {"name": "hello", "url": "http://h:6288"}
	}
}`

func newTestServer(t *testing.T, indexBody, manifestBody string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/index.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte(indexBody))
	})
	mux.HandleFunc("/a.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(manifestBody))
	})
	return httptest.NewServer(mux)
}

func TestIngestOne_IndexShapeA(t *testing.T) {
	store := newTestStore(t)
	engine := New(store, 2, false)

	var indexBody string
	mux := http.NewServeMux()
	mux.HandleFunc("/index.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(indexBody))
	})
	mux.HandleFunc("/a.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(helloManifest))
	})
	srv2 := httptest.NewServer(mux)
	defer srv2.Close()
	indexBody = `{"manifests":["` + srv2.URL + `/a.json"]}`

	outcome, err := engine.IngestOne(context.Background(), srv2.URL+"/index.json")
	require.NoError(t, err)
	assert.Equal(t, "ok", outcome.Status)
	assert.Equal(t, 1, outcome.Succeeded)

	entity, err := store.Get(context.Background(), "mcp_server:hello@0.1.0")
	require.NoError(t, err)
	assert.Equal(t, "Hello SSE", entity.Name)
	assert.False(t, entity.Pending)
}

func TestIngestOne_ConditionalGetRecordsNotModified(t *testing.T) {
	mux := http.NewServeMux()
	hits := 0
	mux.HandleFunc("/index.json", func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte(`{"manifests":[]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := newTestStore(t)
	engine := New(store, 2, false)

	ctx := context.Background()
	_, err := engine.IngestOne(ctx, srv.URL+"/index.json")
	require.NoError(t, err)

	outcome, err := engine.IngestOne(ctx, srv.URL+"/index.json")
	require.NoError(t, err)
	assert.True(t, outcome.NotModified)
	assert.Equal(t, 2, hits)
}

func TestIngestOne_DerivesPendingToolFromMCPServer(t *testing.T) {
	withTool := `{
		"schema_version": "1.0",
		"type": "mcp_server",
		"id": "hello",
		"version": "0.1.0",
		"name": "Hello SSE",
		"mcp_registration": {
			"tool": {"name": "hello-tool"},
			"server": {"name": "hello", "url": "http://h:6288"}
		}
	}`
	mux := http.NewServeMux()
	mux.HandleFunc("/index.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"manifests":["a.json"]}`))
	})
	mux.HandleFunc("/a.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(withTool))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := newTestStore(t)
	engine := New(store, 2, true)

	_, err := engine.IngestOne(context.Background(), srv.URL+"/index.json")
	require.NoError(t, err)

	derived, err := store.Get(context.Background(), "tool:hello-tool@0.1.0")
	require.NoError(t, err)
	assert.True(t, derived.Pending, "derived tool must stay pending until gateway registration succeeds")
}

func TestIngestOne_PartialOnOneBadManifest(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/index.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"manifests":["good.json","bad.json"]}`))
	})
	mux.HandleFunc("/good.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(helloManifest))
	})
	mux.HandleFunc("/bad.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"type":"tool"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := newTestStore(t)
	engine := New(store, 2, false)

	outcome, err := engine.IngestOne(context.Background(), srv.URL+"/index.json")
	require.NoError(t, err)
	assert.Equal(t, "partial", outcome.Status)
	assert.Equal(t, 1, outcome.Succeeded)
	assert.Equal(t, 1, outcome.Failed)
}

func TestIngestAll_SerializesAcrossRemotes(t *testing.T) {
	srv := newTestServer(t, `{"manifests":[]}`, helloManifest)
	defer srv.Close()

	store := newTestStore(t)
	engine := New(store, 2, false)

	_, err := store.UpsertRemote(context.Background(), srv.URL+"/index.json")
	require.NoError(t, err)

	outcomes, err := engine.IngestAll(context.Background())
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
}
