package context

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/open-mem/open-mem/internal/types"
)

func obsFixture(id string, typ types.ObservationType, age time.Duration, sessionID string) *types.Observation {
	return &types.Observation{
		ID:         id,
		SessionID:  sessionID,
		Type:       typ,
		Title:      "title " + id,
		Narrative:  "narrative text for " + id,
		Facts:      []string{"fact one", "fact two"},
		Concepts:   []string{"sqlite"},
		CreatedAt:  time.Now().Add(-age),
		TokenCount: 40,
	}
}

func TestRankObservationsOrdersByRelevance(t *testing.T) {
	now := time.Now()
	fresh := obsFixture("fresh", types.TypeDecision, time.Minute, "s1")
	old := obsFixture("old", types.TypeDiscovery, 60*24*time.Hour, "s2")

	ranked := RankObservations([]*types.Observation{old, fresh}, now, "s1")

	require.Len(t, ranked, 2)
	require.Equal(t, "fresh", ranked[0].Observation.ID)
	require.Greater(t, ranked[0].Relevance, ranked[1].Relevance)
}

func TestRankObservationsDoesNotMutateInput(t *testing.T) {
	now := time.Now()
	input := []*types.Observation{
		obsFixture("a", types.TypeDiscovery, time.Hour, "s1"),
		obsFixture("b", types.TypeDecision, time.Minute, "s1"),
	}
	original := append([]*types.Observation{}, input...)

	_ = RankObservations(input, now, "s1")

	require.Equal(t, original, input)
}

func TestSessionAffinityBoostsCurrentSession(t *testing.T) {
	now := time.Now()
	sameSession := obsFixture("mine", types.TypeChange, time.Hour, "s1")
	otherSession := obsFixture("theirs", types.TypeChange, time.Hour, "s2")

	scoreMine := Score(sameSession, now, "s1")
	scoreTheirs := Score(otherSession, now, "s1")

	require.Greater(t, scoreMine, scoreTheirs)
}

func TestBuildRespectsTokenBudget(t *testing.T) {
	now := time.Now()
	obs := []*types.Observation{
		obsFixture("a", types.TypeDecision, time.Minute, "s1"),
		obsFixture("b", types.TypeBugfix, time.Hour, "s1"),
		obsFixture("c", types.TypeDiscovery, 48*time.Hour, "s1"),
	}

	assembled := Build(nil, nil, obs, nil, "s1", Budget{MaxTokens: 50}, now)

	require.LessOrEqual(t, assembled.TotalTokens, 50)
	require.NotEmpty(t, assembled.Entries)
}

func TestBuildDemotesOverflowToIndexTier(t *testing.T) {
	now := time.Now()
	var obs []*types.Observation
	for i := 0; i < 10; i++ {
		obs = append(obs, obsFixture(string(rune('a'+i)), types.TypeFeature, time.Duration(i)*time.Hour, "s1"))
	}

	assembled := Build(nil, nil, obs, nil, "s1", Budget{MaxTokens: 80, FullObservationCount: 1}, now)

	var sawIndex bool
	for _, e := range assembled.Entries {
		if e.Tier == TierIndex {
			sawIndex = true
		}
	}
	require.True(t, sawIndex, "expected at least one observation demoted to index tier under a tight budget")
}

func TestFormatMarkdownIncludesEconomicsFooter(t *testing.T) {
	assembled := Assembled{TotalTokens: 120, TruncatedCount: 2}
	out := FormatMarkdown(assembled)
	require.Contains(t, out, "Progressive Disclosure")
	require.Contains(t, out, "120 tokens spent")
	require.Contains(t, out, "2 entries truncated")
}

func TestFormatPlainTextListsFullObservations(t *testing.T) {
	assembled := Assembled{
		Entries: []Entry{
			{Tier: TierFull, Observation: &types.Observation{Type: types.TypeBugfix, Title: "fixed it", Narrative: "details"}},
		},
		TotalTokens: 10,
	}
	out := FormatPlainText(assembled)
	require.Contains(t, out, "fixed it")
	require.Contains(t, out, "details")
}

func TestFormatMarkdownIncludesSessionAndIndexTables(t *testing.T) {
	assembled := Assembled{
		Entries: []Entry{
			{Tier: TierSummary, Summary: &types.SessionSummary{SessionID: "s1", Summary: "did things"}},
			{Tier: TierIndex, Observation: &types.Observation{ID: "o1", SessionID: "s1", Type: types.TypeBugfix, Title: "fix parser", FilesModified: []string{"parser.go"}}},
			{Tier: TierIndex, Observation: &types.Observation{ID: "o2", SessionID: "s1", Type: types.TypeDiscovery, Title: "found edge case"}},
		},
		TotalTokens: 30,
	}
	out := FormatMarkdown(assembled)
	require.Contains(t, out, "### Sessions")
	require.Contains(t, out, "`s1`")
	require.Contains(t, out, "### Index")
	require.Contains(t, out, "parser.go")
	require.Contains(t, out, "(general)")
}

func TestFormatMarkdownReportsDiscoverySavings(t *testing.T) {
	assembled := Assembled{
		Entries: []Entry{
			{Tier: TierFull, Observation: &types.Observation{ID: "o1", Type: types.TypeBugfix, Title: "fixed it", Narrative: "details", DiscoveryTokens: 500, TokenCount: 50}},
			{Tier: TierIndex, Observation: &types.Observation{ID: "o2", Type: types.TypeDiscovery, Title: "unmeasured", TokenCount: 10}},
		},
		TotalTokens: 60,
	}
	out := FormatMarkdown(assembled)
	require.Contains(t, out, "450 tokens saved")
}
