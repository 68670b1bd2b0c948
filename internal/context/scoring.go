// Package context implements C5: the progressive-disclosure context
// builder. It scores observations by relevance, assembles a token-budgeted
// context (summaries, then full-detail cards for the top-ranked
// observations, then index entries for the rest; the index tier gets only
// the budget the full tier leaves, it is not filled first), and formats
// the result as either a markdown system-prompt injection or plain text.
package context

import (
	"sort"
	"time"

	"github.com/open-mem/open-mem/internal/types"
)

// Relevance sub-score weights (spec.md §4.5): recency and session
// affinity dominate because a coding agent's working set is almost
// always "what was touched in this session, recently", with type
// importance and token efficiency as secondary tie-breakers.
const (
	weightRecency         = 0.35
	weightTypeImportance  = 0.25
	weightSessionAffinity = 0.25
	weightTokenEfficiency = 0.15
)

// ScoredObservation pairs an observation with its computed relevance.
type ScoredObservation struct {
	Observation *types.Observation
	Relevance   float64
}

// typeImportance ranks observation types by how load-bearing they
// typically are for future context.
var typeImportance = map[types.ObservationType]float64{
	types.TypeDecision:  1.0,
	types.TypeBugfix:    0.85,
	types.TypeFeature:   0.8,
	types.TypeRefactor:  0.6,
	types.TypeChange:    0.5,
	types.TypeDiscovery: 0.4,
}

// Score computes the four weighted sub-scores for obs relative to the
// current session and wall-clock time.
func Score(obs *types.Observation, now time.Time, currentSessionID string) float64 {
	recency := recencyScore(now, obs.CreatedAt)
	importance := typeImportance[obs.Type]
	affinity := 0.0
	if obs.SessionID == currentSessionID {
		affinity = 1.0
	}
	efficiency := tokenEfficiencyScore(obs)

	return weightRecency*recency + weightTypeImportance*importance +
		weightSessionAffinity*affinity + weightTokenEfficiency*efficiency
}

func recencyScore(now, createdAt time.Time) float64 {
	age := now.Sub(createdAt)
	if age <= 0 {
		return 1
	}
	days := age.Hours() / 24
	if days >= 30 {
		return 0.1
	}
	return 1 - (days/30)*0.9
}

// tokenEfficiencyScore rewards observations that pack a lot of
// importance-bearing content (facts, concepts) per token spent.
func tokenEfficiencyScore(obs *types.Observation) float64 {
	if obs.TokenCount <= 0 {
		return 0.5
	}
	density := float64(len(obs.Facts)+len(obs.Concepts)+1) / float64(obs.TokenCount)
	score := density * 20
	if score > 1 {
		score = 1
	}
	return score
}

// RankObservations scores every observation and returns a new,
// descending-by-relevance slice without mutating the input.
func RankObservations(obs []*types.Observation, now time.Time, currentSessionID string) []ScoredObservation {
	out := make([]ScoredObservation, len(obs))
	for i, o := range obs {
		out[i] = ScoredObservation{Observation: o, Relevance: Score(o, now, currentSessionID)}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Relevance > out[j].Relevance })
	return out
}
