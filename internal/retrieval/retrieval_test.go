package retrieval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFuseRRFPrefersItemsInMultipleLists(t *testing.T) {
	a := []string{"x1", "x2", "x3"}
	b := []string{"x3", "x1", "x4"}

	fused := FuseRRF(a, b)
	require.Equal(t, "x1", fused[0].ID)
}

func TestFuseRRFStableOnTies(t *testing.T) {
	fused := FuseRRF([]string{"a", "b"})
	require.Equal(t, "a", fused[0].ID)
	require.Equal(t, "b", fused[1].ID)
}

func TestJaccardSimilarity(t *testing.T) {
	a := termSet("sqlite embedded database")
	b := termSet("sqlite database server")
	require.InDelta(t, 0.5, jaccard(a, b), 0.01)
}

func TestRecencyScoreDecaysOverTime(t *testing.T) {
	now := time.Now()
	fresh := recencyScore(now, now)
	old := recencyScore(now, now.Add(-60*24*time.Hour))
	require.Greater(t, fresh, old)
	require.InDelta(t, 1.0, fresh, 0.01)
	require.InDelta(t, 0.25, old, 0.05)
}

func TestParseRelativeDateYesterday(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	got, err := ParseRelativeDate("yesterday", now)
	require.NoError(t, err)
	require.Equal(t, 2026, got.Year())
	require.Equal(t, time.July, got.Month())
	require.Equal(t, 29, got.Day())
}
