package search

import (
	"math"
	"sort"
	"time"

	"github.com/agent-matrix/matrix-hub/internal/catalog"
	"github.com/agent-matrix/matrix-hub/internal/config"
)

// effectiveWeights zeroes out the component the mode excludes
// (spec.md §4.D "Modes").
func effectiveWeights(mode Mode, configured config.HybridWeights) config.HybridWeights {
	w := configured
	switch mode {
	case ModeKeyword:
		w.Semantic = 0
	case ModeSemantic:
		w.Lexical = 0
	}
	return w
}

func recencyScore(updatedAt time.Time, now time.Time, tauDays float64) float64 {
	if tauDays <= 0 {
		tauDays = 1
	}
	ageDays := now.Sub(updatedAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return math.Exp(-ageDays / tauDays)
}

// fuse scores and ranks candidates, per spec.md §4.D's fusion formula
// and tie-break rule. now is injected so the ranker stays a pure
// function of its inputs.
func fuse(candidates []*catalog.Entity, lexScores, semScores map[string]float64, mode Mode, weights config.HybridWeights, tauDays float64, now time.Time) []Item {
	w := effectiveWeights(mode, weights)
	items := make([]Item, 0, len(candidates))
	for _, e := range candidates {
		lex := clamp01(lexScores[e.UID()])
		sem := clamp01(semScores[e.UID()])
		rec := clamp01(recencyScore(e.UpdatedAt, now, tauDays))
		qual := clamp01(e.QualityScore)

		final := w.Lexical*lex + w.Semantic*sem + w.Recency*rec + w.Quality*qual
		if sum := w.Lexical + w.Semantic + w.Recency + w.Quality; sum > 0 {
			final /= sum
		}

		items = append(items, Item{
			UID:           e.UID(),
			Type:          string(e.Type),
			Name:          e.Name,
			Version:       e.Version,
			Summary:       e.Summary,
			Capabilities:  e.Capabilities,
			Frameworks:    e.Frameworks,
			Providers:     e.Providers,
			ScoreLexical:  lex,
			ScoreSemantic: sem,
			ScoreQuality:  qual,
			ScoreRecency:  rec,
			ScoreFinal:    clamp01(final),
		})
	}

	byUID := make(map[string]*catalog.Entity, len(candidates))
	for _, e := range candidates {
		byUID[e.UID()] = e
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].ScoreFinal != items[j].ScoreFinal {
			return items[i].ScoreFinal > items[j].ScoreFinal
		}
		ci, cj := byUID[items[i].UID].CreatedAt, byUID[items[j].UID].CreatedAt
		if !ci.Equal(cj) {
			return ci.After(cj)
		}
		return items[i].UID < items[j].UID
	})
	return items
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// topN returns the n UIDs with the highest score, descending.
func topN(scores map[string]float64, n int) []string {
	uids := make([]string, 0, len(scores))
	for uid := range scores {
		uids = append(uids, uid)
	}
	sort.Slice(uids, func(i, j int) bool { return scores[uids[i]] > scores[uids[j]] })
	if n < len(uids) {
		uids = uids[:n]
	}
	return uids
}
