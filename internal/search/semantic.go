package search

import (
	"context"
	"math"
	"sort"

	"github.com/agent-matrix/matrix-hub/internal/catalog"
)

// SemanticBackend scores entities against a query embedding. The
// `pgvector` config value selects Cosine; `none` selects a backend
// that returns no semantic hits.
type SemanticBackend interface {
	Score(ctx context.Context, queryVector []float32, chunks []catalog.EmbeddingChunk) map[string]float64
	BestChunks(ctx context.Context, queryVector []float32, chunks []catalog.EmbeddingChunk, uid string, n int) []catalog.EmbeddingChunk
}

// NoSemantic always returns no hits, per spec.md §4.D.
type NoSemantic struct{}

// Score implements SemanticBackend.
func (NoSemantic) Score(context.Context, []float32, []catalog.EmbeddingChunk) map[string]float64 {
	return map[string]float64{}
}

// BestChunks implements SemanticBackend.
func (NoSemantic) BestChunks(context.Context, []float32, []catalog.EmbeddingChunk, string, int) []catalog.EmbeddingChunk {
	return nil
}

// Cosine computes cosine similarity between the query embedding and
// each stored EmbeddingChunk, aggregated to entity level by
// max-pooling the top-k chunks (spec.md §4.D). No vector-index
// library is present in the retrieved corpus for a sqlite-only
// deployment, so this is computed directly in Go (SPEC_FULL.md §4.D).
type Cosine struct{}

// Score implements SemanticBackend.
func (Cosine) Score(_ context.Context, queryVector []float32, chunks []catalog.EmbeddingChunk) map[string]float64 {
	scores := make(map[string]float64)
	for _, c := range chunks {
		sim := cosineSimilarity(queryVector, c.Vector)
		if existing, ok := scores[c.EntityUID]; !ok || sim > existing {
			scores[c.EntityUID] = sim
		}
	}
	return scores
}

// BestChunks returns the top n chunks for uid by similarity,
// descending, used for RAG fit_reason enrichment.
func (Cosine) BestChunks(_ context.Context, queryVector []float32, chunks []catalog.EmbeddingChunk, uid string, n int) []catalog.EmbeddingChunk {
	var candidates []catalog.EmbeddingChunk
	for _, c := range chunks {
		if c.EntityUID == uid {
			candidates = append(candidates, c)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return cosineSimilarity(queryVector, candidates[i].Vector) > cosineSimilarity(queryVector, candidates[j].Vector)
	})
	if n > len(candidates) {
		n = len(candidates)
	}
	return candidates[:n]
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
