package search

import (
	"github.com/agent-matrix/matrix-hub/internal/catalog"
)

// Mode selects which fusion weights are active (spec.md §4.D).
type Mode string

// Modes from spec.md §4.D.
const (
	ModeKeyword  Mode = "keyword"
	ModeSemantic Mode = "semantic"
	ModeHybrid   Mode = "hybrid"
)

// RerankKind selects the optional post-ranking step.
type RerankKind string

// Rerank kinds from spec.md §4.D.
const (
	RerankNone RerankKind = "none"
	RerankLLM  RerankKind = "llm"
)

// Query is one search request (spec.md §4.D inputs).
type Query struct {
	Text          string
	Filters       catalog.Filters
	Mode          Mode
	Limit         int
	WithRAG       bool
	Rerank        RerankKind
	QueryVector   []float32 // populated by the caller when a semantic backend is configured
	StoreWatermark int64
}

// Item is the stable output surface for one search hit (spec.md §4.D).
type Item struct {
	UID          string   `json:"id"`
	Type         string   `json:"type"`
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Summary      string   `json:"summary"`
	Capabilities []string `json:"capabilities"`
	Frameworks   []string `json:"frameworks"`
	Providers    []string `json:"providers"`

	ScoreLexical  float64 `json:"score_lexical"`
	ScoreSemantic float64 `json:"score_semantic"`
	ScoreQuality  float64 `json:"score_quality"`
	ScoreRecency  float64 `json:"score_recency"`
	ScoreFinal    float64 `json:"score_final"`

	FitReason *string `json:"fit_reason,omitempty"`
	Snippet   *string `json:"snippet,omitempty"`

	ManifestURL string `json:"manifest_url"`
	InstallURL  string `json:"install_url"`
}

// Result is a completed search response.
type Result struct {
	Items []Item
	ETag  string
}
