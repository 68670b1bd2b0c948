package retrieval

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/open-mem/open-mem/internal/gateway"
)

// heuristic sub-score weights (spec.md §4.4): overlap matters most, then
// recency and importance, with a small residual weight left for
// tie-breaking variety.
const (
	weightOverlap    = 0.4
	weightConcept    = 0.3
	weightRecency    = 0.15
	weightImportance = 0.1
	weightResidual   = 0.05
)

// Rerank reorders results by relevance to query, preferring the gateway's
// LLM reranker and falling back to the heuristic reranker whenever the
// gateway is nil or returns an error, per spec.md §8's graceful
// degradation property.
func Rerank(ctx context.Context, reranker gateway.Reranker, query string, results []Result) []Result {
	if len(results) <= 1 {
		return results
	}

	if reranker != nil {
		candidates := make([]string, len(results))
		for i, r := range results {
			candidates[i] = r.Observation.Title + ": " + r.Observation.Narrative
		}
		order, err := reranker.Rerank(ctx, query, candidates)
		if err == nil && len(order) == len(results) {
			out := make([]Result, len(results))
			for i, idx := range order {
				out[i] = results[idx]
			}
			return out
		}
		log.Warn().Err(err).Msg("retrieval: LLM rerank failed, falling back to heuristic reranker")
	}

	return heuristicRerank(query, results)
}

func heuristicRerank(query string, results []Result) []Result {
	queryTerms := termSet(query)
	out := make([]Result, len(results))
	copy(out, results)

	now := time.Now()
	scores := make([]float64, len(out))
	for i, r := range out {
		overlap := jaccard(queryTerms, termSet(r.Observation.Title+" "+r.Observation.Narrative))
		conceptOverlap := jaccard(queryTerms, stringSetOf(r.Observation.Concepts))
		recency := recencyScore(now, r.Observation.CreatedAt)
		importance := float64(r.Observation.Importance) / 5.0

		scores[i] = weightOverlap*overlap + weightConcept*conceptOverlap +
			weightRecency*recency + weightImportance*importance + weightResidual*r.Score
	}

	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })

	reordered := make([]Result, len(out))
	for i, j := range idx {
		reordered[i] = out[j]
	}
	return reordered
}

func termSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		set[tok] = true
	}
	return set
}

func stringSetOf(ss []string) map[string]bool {
	set := make(map[string]bool, len(ss))
	for _, s := range ss {
		set[strings.ToLower(s)] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for k := range a {
		if b[k] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func recencyScore(now, createdAt time.Time) float64 {
	age := now.Sub(createdAt)
	if age <= 0 {
		return 1
	}
	days := age.Hours() / 24
	// Exponential decay with a 30-day half-life.
	return math.Pow(0.5, days/30)
}
