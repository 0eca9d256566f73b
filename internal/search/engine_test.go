package search

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agent-matrix/matrix-hub/internal/catalog"
	"github.com/agent-matrix/matrix-hub/internal/catalog/sqlite"
	"github.com/agent-matrix/matrix-hub/internal/config"
)

func newTestStore(t *testing.T) catalog.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sqlite.Open(context.Background(), dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlite.NewStore(db)
}

func seedEntity(t *testing.T, store catalog.Store, e *catalog.Entity) {
	t.Helper()
	_, _, err := store.UpsertEntity(context.Background(), e)
	require.NoError(t, err)
}

func defaultWeights() config.HybridWeights {
	return config.HybridWeights{Semantic: 0.3, Lexical: 0.4, Recency: 0.2, Quality: 0.1}
}

func TestSearch_FiltersByTypeAndCapability(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedEntity(t, store, &catalog.Entity{
		Type: catalog.TypeMCPServer, ID: "hello", Version: "0.1.0", Name: "Hello SSE",
		Capabilities: []string{"hello"},
	})
	seedEntity(t, store, &catalog.Entity{
		Type: catalog.TypeTool, ID: "pdf", Version: "1.4.2", Name: "PDF Tool",
		Summary: "extracts pdf text", Capabilities: []string{"pdf", "summarize"},
	})

	engine := New(store, "pgtrgm", "none", defaultWeights(), 30, "https://hub.example.com")

	result, notModified, err := engine.Search(ctx, Query{
		Text:    "pdf",
		Mode:    ModeKeyword,
		Limit:   5,
		Filters: catalog.Filters{Type: catalog.TypeTool, Capabilities: []string{"pdf"}},
	}, "")
	require.NoError(t, err)
	require.False(t, notModified)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "tool:pdf@1.4.2", result.Items[0].UID)
	assert.Greater(t, result.Items[0].ScoreLexical, 0.0)
}

func TestSearch_ExcludesPendingByDefault(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedEntity(t, store, &catalog.Entity{
		Type: catalog.TypeTool, ID: "derived", Version: "0.1.0", Name: "Derived Tool",
		Summary: "derived from mcp_server", Pending: true,
	})

	engine := New(store, "pgtrgm", "none", defaultWeights(), 30, "https://hub.example.com")

	result, _, err := engine.Search(ctx, Query{Text: "derived", Mode: ModeKeyword, Limit: 5}, "")
	require.NoError(t, err)
	assert.Empty(t, result.Items)

	result, _, err = engine.Search(ctx, Query{
		Text: "derived", Mode: ModeKeyword, Limit: 5,
		Filters: catalog.Filters{IncludePending: true},
	}, "")
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
}

func TestSearch_ETagRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedEntity(t, store, &catalog.Entity{Type: catalog.TypeTool, ID: "x", Version: "1.0.0", Name: "x tool"})

	engine := New(store, "pgtrgm", "none", defaultWeights(), 30, "https://hub.example.com")

	first, _, err := engine.Search(ctx, Query{Text: "x", Mode: ModeKeyword, Limit: 5}, "")
	require.NoError(t, err)
	require.NotEmpty(t, first.ETag)

	_, notModified, err := engine.Search(ctx, Query{Text: "x", Mode: ModeKeyword, Limit: 5}, first.ETag)
	require.NoError(t, err)
	assert.True(t, notModified)

	seedEntity(t, store, &catalog.Entity{Type: catalog.TypeTool, ID: "y", Version: "1.0.0", Name: "y tool"})
	second, notModified2, err := engine.Search(ctx, Query{Text: "x", Mode: ModeKeyword, Limit: 5}, first.ETag)
	require.NoError(t, err)
	assert.False(t, notModified2)
	assert.NotEqual(t, first.ETag, second.ETag, "any write must advance the watermark and change the ETag")
}

func TestSearch_RejectsOutOfRangeLimit(t *testing.T) {
	store := newTestStore(t)
	engine := New(store, "none", "none", defaultWeights(), 30, "https://hub.example.com")

	_, _, err := engine.Search(context.Background(), Query{Text: "x", Mode: ModeKeyword, Limit: 0}, "")
	assert.Error(t, err)

	_, _, err = engine.Search(context.Background(), Query{Text: "x", Mode: ModeKeyword, Limit: 101}, "")
	assert.Error(t, err)
}

func TestSearch_InstallURLUsesPublicBase(t *testing.T) {
	store := newTestStore(t)
	seedEntity(t, store, &catalog.Entity{Type: catalog.TypeTool, ID: "x", Version: "1.0.0", Name: "x tool"})
	engine := New(store, "pgtrgm", "none", defaultWeights(), 30, "https://hub.example.com")

	result, _, err := engine.Search(context.Background(), Query{Text: "x", Mode: ModeKeyword, Limit: 5}, "")
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "https://hub.example.com/catalog/install?id=tool:x@1.0.0", result.Items[0].InstallURL)
}
