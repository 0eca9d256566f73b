// Package catalog defines the central Entity/EmbeddingChunk/Remote
// data model (spec.md §3) and the Store interface (component A) that
// every other component writes through or reads from.
package catalog

import (
	"encoding/json"
	"fmt"
	"time"
)

// EntityType is the discriminant of the tagged Entity variant.
type EntityType string

// Entity types from spec.md §3.
const (
	TypeAgent     EntityType = "agent"
	TypeTool      EntityType = "tool"
	TypeMCPServer EntityType = "mcp_server"
)

// Valid reports whether t is one of the recognized entity types.
func (t EntityType) Valid() bool {
	switch t {
	case TypeAgent, TypeTool, TypeMCPServer:
		return true
	default:
		return false
	}
}

// UID returns the canonical "{type}:{id}@{version}" identifier.
func UID(t EntityType, id, version string) string {
	return fmt.Sprintf("%s:%s@%s", t, id, version)
}

// Entity is the central catalog record (spec.md §3).
type Entity struct {
	Type    EntityType
	ID      string
	Version string

	Name        string
	Summary     string
	Description string
	Homepage    string
	Publisher   string
	License     string

	Capabilities []string
	Frameworks   []string
	Providers    []string

	// Manifest is the full original manifest document, kept verbatim
	// so a re-plan/re-install always has the exact source material.
	Manifest json.RawMessage

	QualityScore float64
	CreatedAt    time.Time
	UpdatedAt    time.Time

	GatewayRegisteredAt *time.Time
	GatewayError        *string

	SourceURL  string
	CommitHash string

	Pending bool
}

// UID returns this entity's canonical identifier.
func (e *Entity) UID() string {
	return UID(e.Type, e.ID, e.Version)
}

// ClampQualityScore enforces the [0,1] invariant from spec.md §3.
func (e *Entity) ClampQualityScore() {
	switch {
	case e.QualityScore < 0:
		e.QualityScore = 0
	case e.QualityScore > 1:
		e.QualityScore = 1
	}
}

// ChunkSource identifies which manifest field an EmbeddingChunk was
// extracted from.
type ChunkSource string

// Chunk sources from spec.md §3.
const (
	ChunkSourceName        ChunkSource = "name"
	ChunkSourceSummary     ChunkSource = "summary"
	ChunkSourceDescription ChunkSource = "description"
	ChunkSourceReadme      ChunkSource = "readme"
	ChunkSourceExample     ChunkSource = "example"
)

// EmbeddingChunk is a semantic-search unit owned by an Entity; it
// cascades on Entity deletion and is re-chunked whenever the owning
// manifest changes materially.
type EmbeddingChunk struct {
	EntityUID    string
	ChunkOrdinal int
	Text         string
	Vector       []float32
	Source       ChunkSource
}

// RemoteStatus is the outcome of the most recent poll of a Remote.
type RemoteStatus string

// Remote poll outcomes.
const (
	RemoteStatusOK      RemoteStatus = "ok"
	RemoteStatusPartial RemoteStatus = "partial"
	RemoteStatusError   RemoteStatus = "error"
)

// Remote is a registered index-document URL (spec.md §3).
type Remote struct {
	URL            string
	LastFetchedAt  *time.Time
	LastETag       string
	LastStatus     RemoteStatus
	LastError      string
}

// Filters are the search/list predicates accepted by the store
// (spec.md §4.A).
type Filters struct {
	Type            EntityType // empty = any
	Capabilities    []string   // entity.Capabilities must be a superset
	Frameworks      []string
	Providers       []string
	IncludePending  bool
}

// Matches reports whether e satisfies the filter set.
func (f Filters) Matches(e *Entity) bool {
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if !f.IncludePending && e.Pending {
		return false
	}
	if !supersetOf(e.Capabilities, f.Capabilities) {
		return false
	}
	if !supersetOf(e.Frameworks, f.Frameworks) {
		return false
	}
	if !supersetOf(e.Providers, f.Providers) {
		return false
	}
	return true
}

func supersetOf(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(have))
	for _, h := range have {
		set[h] = struct{}{}
	}
	for _, w := range want {
		if _, ok := set[w]; !ok {
			return false
		}
	}
	return true
}

// UpsertOutcome reports whether an upsert created a new row or updated
// an existing one (spec.md §4.A).
type UpsertOutcome string

const (
	Created UpsertOutcome = "created"
	Updated UpsertOutcome = "updated"
)
