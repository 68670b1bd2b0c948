package gateway

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCompressedObservation(t *testing.T) {
	text := "TITLE: Fixed the flaky retry test\n" +
		"SUBTITLE: \n" +
		"FACTS: used a fake clock; removed sleep(1s)\n" +
		"CONCEPTS: testing, retry\n" +
		"NARRATIVE: Replaced the real timer with a fake clock so the retry test no longer depends on wall time."

	out := parseCompressedObservation(text)
	require.Equal(t, "Fixed the flaky retry test", out.Title)
	require.Equal(t, []string{"used a fake clock", "removed sleep(1s)"}, out.Facts)
	require.Equal(t, []string{"testing", "retry"}, out.Concepts)
	require.Contains(t, out.Narrative, "fake clock")
}

func TestParseRerankOrder(t *testing.T) {
	order, err := parseRerankOrder("2, 0, 1", 3)
	require.NoError(t, err)
	require.Equal(t, []int{2, 0, 1}, order)
}

func TestParseRerankOrderFillsMissingIndexes(t *testing.T) {
	order, err := parseRerankOrder("1", 3)
	require.NoError(t, err)
	require.Equal(t, []int{1, 0, 2}, order)
}

func TestParseRerankOrderNoValidIndexes(t *testing.T) {
	_, err := parseRerankOrder("not a list", 3)
	require.Error(t, err)
}

func TestHashEmbedIsDeterministicAndNormalized(t *testing.T) {
	a := hashEmbed("sqlite embedded database")
	b := hashEmbed("sqlite embedded database")
	require.Equal(t, a, b)

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	require.InDelta(t, 1.0, norm, 0.01)
}

func TestIsRetryableClassification(t *testing.T) {
	require.False(t, isRetryable(nil))
}
