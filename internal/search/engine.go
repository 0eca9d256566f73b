// Package search implements the hybrid search engine (component D):
// pluggable lexical/semantic backends, weighted fusion ranking,
// candidate union, RAG enrichment, an optional rerank hook, and an
// ETag-bearing result cache.
package search

import (
	"context"
	"encoding/json"
	"time"

	"github.com/agent-matrix/matrix-hub/internal/apperrors"
	"github.com/agent-matrix/matrix-hub/internal/catalog"
	"github.com/agent-matrix/matrix-hub/internal/config"
	"github.com/agent-matrix/matrix-hub/internal/search/cache"
)

const candidateMultiplier = 4

// Engine answers search requests against the Catalog Store.
type Engine struct {
	store         catalog.Store
	lexical       LexicalBackend
	semantic      SemanticBackend
	weights       config.HybridWeights
	tauDays       float64
	publicBaseURL string
	cache         cache.Cache
	reranker      Reranker
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache wires a result cache (in-process LRU or Redis).
func WithCache(c cache.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithReranker wires the optional `rerank=llm` post-ranking hook.
func WithReranker(r Reranker) Option {
	return func(e *Engine) { e.reranker = r }
}

// New builds an Engine. lexicalBackend/vectorBackend select the
// pluggable implementations per spec.md §4.D / config.
func New(store catalog.Store, lexicalBackend, vectorBackend string, weights config.HybridWeights, tauDays float64, publicBaseURL string, opts ...Option) *Engine {
	e := &Engine{
		store:         store,
		lexical:       selectLexical(lexicalBackend),
		semantic:      selectSemantic(vectorBackend),
		weights:       weights,
		tauDays:       tauDays,
		publicBaseURL: publicBaseURL,
		cache:         cache.NewLRU(512),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func selectLexical(backend string) LexicalBackend {
	if backend == "pgtrgm" {
		return Trigram{}
	}
	return None{}
}

func selectSemantic(backend string) SemanticBackend {
	if backend == "pgvector" {
		return Cosine{}
	}
	return NoSemantic{}
}

// Search executes q against the catalog and returns a ranked,
// ETag-bearing Result. If ifNoneMatch equals the computed ETag, the
// second return value is true and Result carries only that ETag (no
// items); the caller answers 304 against it.
func (e *Engine) Search(ctx context.Context, q Query, ifNoneMatch string) (*Result, bool, error) {
	if q.Limit <= 0 || q.Limit > 100 {
		return nil, false, apperrors.NewInvalidRequestError("limit must be in [1,100]", nil)
	}

	watermark, err := e.store.Watermark(ctx)
	if err != nil {
		return nil, false, err
	}
	q.StoreWatermark = watermark
	etag := computeETag(q, watermark)

	if ifNoneMatch != "" && ifNoneMatch == etag {
		return &Result{ETag: etag}, true, nil
	}

	if cached, ok := e.cache.Get(ctx, etag); ok {
		var items []Item
		if err := json.Unmarshal(cached.Body, &items); err == nil {
			return &Result{Items: items, ETag: etag}, false, nil
		}
	}

	items, err := e.rank(ctx, q)
	if err != nil {
		return nil, false, err
	}

	if body, err := json.Marshal(items); err == nil {
		e.cache.Set(ctx, etag, &cache.Entry{ETag: etag, Body: body})
	}

	return &Result{Items: items, ETag: etag}, false, nil
}

func (e *Engine) rank(ctx context.Context, q Query) ([]Item, error) {
	entities, err := e.store.ListEntities(ctx, q.Filters)
	if err != nil {
		return nil, err
	}
	entityByUID := make(map[string]*catalog.Entity, len(entities))
	for _, ent := range entities {
		entityByUID[ent.UID()] = ent
	}

	lexScores := e.lexical.Score(ctx, q.Text, entities)

	var chunks []catalog.EmbeddingChunk
	var semScores map[string]float64
	if q.Mode != ModeKeyword && len(q.QueryVector) > 0 {
		chunks, err = e.store.AllChunks(ctx, q.Filters)
		if err != nil {
			return nil, err
		}
		semScores = e.semantic.Score(ctx, q.QueryVector, chunks)
	} else {
		semScores = map[string]float64{}
	}

	n := candidateMultiplier * q.Limit
	union := make(map[string]*catalog.Entity)
	for _, uid := range topN(lexScores, n) {
		if ent, ok := entityByUID[uid]; ok {
			union[uid] = ent
		}
	}
	for _, uid := range topN(semScores, n) {
		if ent, ok := entityByUID[uid]; ok {
			union[uid] = ent
		}
	}
	if len(lexScores) == 0 && len(semScores) == 0 {
		// Both backends are `none`: fall back to the full filtered set
		// so recency/quality priors alone still produce a ranking.
		for _, ent := range entities {
			union[ent.UID()] = ent
		}
	}

	candidates := make([]*catalog.Entity, 0, len(union))
	for _, ent := range union {
		candidates = append(candidates, ent)
	}

	items := fuse(candidates, lexScores, semScores, q.Mode, e.weights, e.tauDays, time.Now())

	if q.WithRAG {
		enrichFitReason(ctx, items, e.semantic, chunks, q.QueryVector, entityByUID)
	}

	if w := rerankWindow(q.Limit); len(items) > w {
		head := applyRerank(ctx, q.Text, items[:w:w], q.Rerank, e.reranker)
		items = append(head, items[w:]...)
	} else {
		items = applyRerank(ctx, q.Text, items, q.Rerank, e.reranker)
	}

	if len(items) > q.Limit {
		items = items[:q.Limit]
	}

	for i := range items {
		ent := entityByUID[items[i].UID]
		items[i].ManifestURL = ent.SourceURL
		items[i].InstallURL = e.publicBaseURL + "/catalog/install?id=" + items[i].UID
	}

	return items, nil
}
