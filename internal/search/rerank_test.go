package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reverseReranker struct{}

func (reverseReranker) Rerank(_ context.Context, _ string, items []Item) ([]Item, error) {
	out := make([]Item, len(items))
	for i, it := range items {
		out[len(items)-1-i] = it
	}
	return out, nil
}

func TestApplyRerank_SkipsWhenRerankIsNone(t *testing.T) {
	items := []Item{{UID: "a"}, {UID: "b"}, {UID: "c"}}

	out := applyRerank(context.Background(), "query", items, RerankNone, reverseReranker{})

	require.Len(t, out, 3)
	assert.Equal(t, "a", out[0].UID, "rerank=none must never reorder, even with a Reranker wired")
}

func TestApplyRerank_ReordersWhenRerankIsLLM(t *testing.T) {
	items := []Item{{UID: "a"}, {UID: "b"}, {UID: "c"}}

	out := applyRerank(context.Background(), "query", items, RerankLLM, reverseReranker{})

	require.Len(t, out, 3)
	assert.Equal(t, "c", out[0].UID)
}

func TestApplyRerank_NilRerankerIsNoop(t *testing.T) {
	items := []Item{{UID: "a"}, {UID: "b"}}

	out := applyRerank(context.Background(), "query", items, RerankLLM, nil)

	assert.Equal(t, items, out)
}
