package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agent-matrix/matrix-hub/internal/manifest"
)

func TestRegister_NilRegistrationIsNoop(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://unused", Token: "t"})
	outcome, err := c.Register(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, outcome.Registrations)
}

func TestRegister_FullSequenceResolvesIDsAndRegistersServerLast(t *testing.T) {
	var (
		mu          sync.Mutex
		serverCalls []map[string]any
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/tools", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(record{ID: float64(1), Name: "search"})
		}
	})
	mux.HandleFunc("/resources", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(record{ID: float64(2), Name: "docs", URI: "res://docs"})
		}
	})
	mux.HandleFunc("/prompts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(record{ID: float64(3), Name: "summarize"})
		}
	})
	mux.HandleFunc("/servers", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			mu.Lock()
			serverCalls = append(serverCalls, body)
			mu.Unlock()
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(record{ID: float64(4), Name: "widget-server"})
		}
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()
	c := NewClient(Config{BaseURL: srv.URL, Token: "t", HTTPClient: srv.Client()})

	reg := &manifest.MCPRegistration{
		Tool:      json.RawMessage(`{"name":"search"}`),
		Resources: []json.RawMessage{json.RawMessage(`{"name":"docs","uri":"res://docs"}`)},
		Prompts:   []json.RawMessage{json.RawMessage(`{"name":"summarize"}`)},
		Server: &manifest.ServerSpec{
			Name:                "widget-server",
			Transport:           "streamable-http",
			AssociatedTools:     []string{"search"},
			AssociatedResources: []string{"docs"},
			AssociatedPrompts:   []string{"summarize"},
		},
	}

	outcome, err := c.Register(context.Background(), reg)
	require.NoError(t, err)
	require.Len(t, outcome.Registrations, 4)
	require.Len(t, serverCalls, 1)

	body := serverCalls[0]
	assert.Equal(t, "widget-server", body["name"])
	assert.ElementsMatch(t, []any{float64(1)}, body["tool_ids"])
	assert.ElementsMatch(t, []any{float64(2)}, body["resource_ids"])
	assert.ElementsMatch(t, []any{float64(3)}, body["prompt_ids"])
}

func TestRegister_ToolFailureAbortsBeforeServerRegistration(t *testing.T) {
	var serverHit bool
	mux := http.NewServeMux()
	mux.HandleFunc("/tools", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	})
	mux.HandleFunc("/servers", func(w http.ResponseWriter, r *http.Request) {
		serverHit = true
		w.WriteHeader(http.StatusCreated)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()
	c := NewClient(Config{BaseURL: srv.URL, Token: "t", HTTPClient: srv.Client()})

	reg := &manifest.MCPRegistration{
		Tool:   json.RawMessage(`{"name":"search"}`),
		Server: &manifest.ServerSpec{Name: "widget-server"},
	}

	_, err := c.Register(context.Background(), reg)
	require.Error(t, err)
	assert.False(t, serverHit, "server registration must not run when an upsert fails")
}

func TestRegister_GatewayKindUsedWhenServerURLPresent(t *testing.T) {
	var hitGateways, hitServers bool
	mux := http.NewServeMux()
	mux.HandleFunc("/gateways", func(w http.ResponseWriter, r *http.Request) {
		hitGateways = true
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(record{ID: float64(5), Name: "federated"})
	})
	mux.HandleFunc("/servers", func(w http.ResponseWriter, r *http.Request) {
		hitServers = true
		w.WriteHeader(http.StatusCreated)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()
	c := NewClient(Config{BaseURL: srv.URL, Token: "t", HTTPClient: srv.Client()})

	reg := &manifest.MCPRegistration{
		Server: &manifest.ServerSpec{Name: "federated", URL: "https://upstream.example.com/mcp", Transport: "streamable-http"},
	}

	outcome, err := c.Register(context.Background(), reg)
	require.NoError(t, err)
	require.Len(t, outcome.Registrations, 1)
	assert.Equal(t, "gateway", outcome.Registrations[0].Kind)
	assert.True(t, hitGateways)
	assert.False(t, hitServers)
}
