package search

import (
	"context"
	"strings"

	"github.com/agent-matrix/matrix-hub/internal/catalog"
)

const maxFitReasonChunks = 3

// enrichFitReason attaches a best-effort fit_reason to each item
// (spec.md §4.D). It never fails the request: on any problem the
// field is simply left nil.
func enrichFitReason(ctx context.Context, items []Item, semantic SemanticBackend, chunks []catalog.EmbeddingChunk, queryVector []float32, entityByUID map[string]*catalog.Entity) {
	for i := range items {
		reason := fitReasonFromChunks(ctx, semantic, chunks, queryVector, items[i].UID)
		if reason == "" {
			if e, ok := entityByUID[items[i].UID]; ok {
				reason = e.Summary
			}
		}
		if reason != "" {
			items[i].FitReason = &reason
		}
	}
}

func fitReasonFromChunks(ctx context.Context, semantic SemanticBackend, chunks []catalog.EmbeddingChunk, queryVector []float32, uid string) string {
	if semantic == nil || len(queryVector) == 0 {
		return ""
	}
	best := semantic.BestChunks(ctx, queryVector, chunks, uid, maxFitReasonChunks)
	if len(best) == 0 {
		return ""
	}
	texts := make([]string, 0, len(best))
	for _, c := range best {
		texts = append(texts, c.Text)
	}
	return strings.Join(texts, " … ")
}
