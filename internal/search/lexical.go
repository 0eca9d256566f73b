package search

import (
	"context"
	"strings"

	"github.com/agent-matrix/matrix-hub/internal/catalog"
)

// LexicalBackend scores entities against a free-text query. The
// `pgtrgm` config value selects Trigram; `none` selects None.
type LexicalBackend interface {
	Score(ctx context.Context, query string, entities []*catalog.Entity) map[string]float64
}

// None always returns zero scores, per spec.md §4.D.
type None struct{}

// Score implements LexicalBackend.
func (None) Score(_ context.Context, _ string, _ []*catalog.Entity) map[string]float64 {
	return map[string]float64{}
}

// Trigram approximates the storage backend's pg_trgm similarity in
// Go, since sqlite has no such facility (SPEC_FULL.md §4.D). It
// scores the composite field name||summary||description||capabilities
// by trigram overlap (Dice coefficient) against the query.
type Trigram struct{}

// Score implements LexicalBackend.
func (Trigram) Score(_ context.Context, query string, entities []*catalog.Entity) map[string]float64 {
	scores := make(map[string]float64, len(entities))
	queryTrigrams := trigramSet(query)
	if len(queryTrigrams) == 0 {
		return scores
	}
	for _, e := range entities {
		composite := strings.Join([]string{e.Name, e.Summary, e.Description, strings.Join(e.Capabilities, " ")}, " ")
		fieldTrigrams := trigramSet(composite)
		scores[e.UID()] = diceCoefficient(queryTrigrams, fieldTrigrams)
	}
	return scores
}

func trigramSet(s string) map[string]struct{} {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil
	}
	padded := "  " + s + "  "
	set := make(map[string]struct{})
	runes := []rune(padded)
	for i := 0; i+3 <= len(runes); i++ {
		set[string(runes[i:i+3])] = struct{}{}
	}
	return set
}

func diceCoefficient(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for t := range a {
		if _, ok := b[t]; ok {
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(a)+len(b))
}
