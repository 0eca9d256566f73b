package search

import "context"

const maxRerankCandidates = 20

// Reranker post-orders the top candidates via an external scoring
// call (spec.md §4.D, `rerank=llm`). Best-effort: a Reranker
// implementation's error is swallowed by the caller, which falls back
// to the pre-rerank order.
type Reranker interface {
	Rerank(ctx context.Context, query string, items []Item) ([]Item, error)
}

func rerankWindow(limit int) int {
	w := limit * 2
	if w > maxRerankCandidates {
		w = maxRerankCandidates
	}
	return w
}

// applyRerank reorders the leading window of items via reranker; on
// any error the original order is preserved untouched. Only
// rerank=llm requests a reorder — rerank=none (the default) must pass
// items through unchanged even when a Reranker is wired.
func applyRerank(ctx context.Context, query string, items []Item, rerank RerankKind, reranker Reranker) []Item {
	if reranker == nil || rerank != RerankLLM || len(items) == 0 {
		return items
	}
	window := rerankWindow(len(items))
	if window > len(items) {
		window = len(items)
	}
	head, tail := items[:window], items[window:]

	reordered, err := reranker.Rerank(ctx, query, head)
	if err != nil || len(reordered) != len(head) {
		return items
	}
	out := make([]Item, 0, len(items))
	out = append(out, reordered...)
	out = append(out, tail...)
	return out
}
