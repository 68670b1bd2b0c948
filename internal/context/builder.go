package context

import (
	stdcontext "context"
	"time"

	"github.com/open-mem/open-mem/internal/store"
	"github.com/open-mem/open-mem/internal/types"
)

// Budget controls how many tokens and observations the assembled context
// may spend, across three sequential phases: summaries, then full-detail
// cards for the top-ranked observations, then index entries for the rest.
type Budget struct {
	MaxTokens int
	// FullObservationCount is how many of the top-ranked observations get
	// a full-detail card. Zero means the default of 5.
	FullObservationCount int
	// MaxIndexEntries caps how many observations beyond the full tier get
	// an index entry. Zero means unbounded (limited only by MaxTokens).
	MaxIndexEntries int
	// MaxObservations caps how many ranked observations are considered at
	// all (full + index combined). Zero means unbounded.
	MaxObservations int
}

// Tier classifies which disclosure level an entry was assembled at.
type Tier string

const (
	TierSummary Tier = "summary"
	TierIndex   Tier = "index"
	TierFull    Tier = "full"
)

// Entry is one piece of assembled context.
type Entry struct {
	Tier        Tier
	Summary     *types.SessionSummary
	Observation *types.Observation
	TokenCost   int
}

// Assembled is the full output of Build: user-scope context is tracked
// independently (its own budget) so a crowded project context never
// starves cross-project user observations, per spec.md §4.5.
type Assembled struct {
	Entries           []Entry
	UserScopeEntries  []Entry
	TotalTokens       int
	UserScopeTokens   int
	TruncatedCount    int
}

// Build assembles context for a session: the session's own summary (if
// closed), summaries of prior sessions, an index of mid-relevance
// observations, and full bodies for the highest-relevance ones, until
// budget.MaxTokens is spent. Ranking never mutates obs (RankObservations
// returns a fresh slice).
func Build(ctx stdcontext.Context, st *store.Store, obs []*types.Observation, summaries []*types.SessionSummary, currentSessionID string, budget Budget, now time.Time) Assembled {
	ranked := RankObservations(obs, now, currentSessionID)

	var result Assembled
	spent := 0

	for _, sum := range summaries {
		cost := estimateSummaryTokens(sum)
		if spent+cost > budget.MaxTokens {
			result.TruncatedCount++
			continue
		}
		result.Entries = append(result.Entries, Entry{Tier: TierSummary, Summary: sum, TokenCost: cost})
		spent += cost
	}

	// Phase 2: the top-ranked observations get full-detail cards.
	fullCount := budget.FullObservationCount
	if fullCount <= 0 {
		fullCount = 5
	}

	observations := ranked
	if budget.MaxObservations > 0 && len(observations) > budget.MaxObservations {
		observations = observations[:budget.MaxObservations]
	}

	indexEntries := 0
	for i, so := range observations {
		o := so.Observation
		fullCost := estimateObservationTokens(o)
		indexCost := estimateIndexTokens(o)

		if i < fullCount {
			if spent+fullCost <= budget.MaxTokens {
				result.Entries = append(result.Entries, Entry{Tier: TierFull, Observation: o, TokenCost: fullCost})
				spent += fullCost
				continue
			}
			// Doesn't fit in full; fall through to the index phase below
			// rather than dropping it outright.
		}

		// Phase 3: everything past the full tier (or that didn't fit in
		// it) gets a compact index entry, capped by MaxIndexEntries.
		if budget.MaxIndexEntries > 0 && indexEntries >= budget.MaxIndexEntries {
			result.TruncatedCount++
			continue
		}
		if spent+indexCost > budget.MaxTokens {
			result.TruncatedCount++
			continue
		}
		result.Entries = append(result.Entries, Entry{Tier: TierIndex, Observation: o, TokenCost: indexCost})
		spent += indexCost
		indexEntries++
	}

	result.TotalTokens = spent
	return result
}

// BuildUserScope assembles a second, independent context from user-scope
// observations against its own budget.
func BuildUserScope(obs []*types.UserObservation, budget Budget) Assembled {
	var result Assembled
	spent := 0
	for _, o := range obs {
		cost := estimateUserObservationTokens(o)
		if spent+cost > budget.MaxTokens {
			result.TruncatedCount++
			continue
		}
		result.UserScopeEntries = append(result.UserScopeEntries, Entry{Tier: TierIndex, TokenCost: cost})
		spent += cost
	}
	result.UserScopeTokens = spent
	return result
}

func estimateSummaryTokens(sum *types.SessionSummary) int {
	if sum.TokenCount > 0 {
		return sum.TokenCount
	}
	return len(sum.Summary) / 4
}

func estimateObservationTokens(o *types.Observation) int {
	if o.TokenCount > 0 {
		return o.TokenCount
	}
	return (len(o.Title) + len(o.Narrative)) / 4
}

func estimateIndexTokens(o *types.Observation) int {
	return (len(o.Title) + 20) / 4
}

func estimateUserObservationTokens(o *types.UserObservation) int {
	if o.TokenCount > 0 {
		return o.TokenCount
	}
	return (len(o.Title) + 20) / 4
}
