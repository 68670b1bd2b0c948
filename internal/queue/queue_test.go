package queue

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/open-mem/open-mem/internal/gateway"
	"github.com/open-mem/open-mem/internal/store"
	"github.com/open-mem/open-mem/internal/types"
)

type fakeCompressor struct {
	fail bool
}

func (f *fakeCompressor) Compress(ctx context.Context, rawOutput, toolName string) (gateway.CompressedObservation, error) {
	if f.fail {
		return gateway.CompressedObservation{}, errors.New("boom")
	}
	return gateway.CompressedObservation{
		Type:      "discovery",
		Title:     "Compressed: " + toolName,
		Narrative: "A narrative about " + rawOutput,
	}, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(context.Background(), filepath.Join(dir, "open-mem.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestProcessBatchHappyPath(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	sess := &types.Session{ProjectPath: "/repo"}
	require.NoError(t, st.CreateSession(ctx, sess))
	require.NoError(t, st.Enqueue(ctx, &types.PendingMessage{SessionID: sess.ID, ToolName: "Read", ToolOutput: "file contents", CallID: "c1"}))

	p := New(st, &fakeCompressor{}, fakeEmbedder{}, Options{BatchSize: 5})
	n, err := p.ProcessBatch(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	remaining, err := st.PendingCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, remaining)

	obs, err := st.SearchObservations(ctx, types.ObservationFilter{SessionID: sess.ID})
	require.NoError(t, err)
	require.Len(t, obs, 1)
	require.Equal(t, types.TypeDiscovery, obs[0].Type)
}

func TestProcessBatchCompressionFailureMarksFailed(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	sess := &types.Session{ProjectPath: "/repo"}
	require.NoError(t, st.CreateSession(ctx, sess))
	require.NoError(t, st.Enqueue(ctx, &types.PendingMessage{SessionID: sess.ID, ToolName: "Read", ToolOutput: "x", CallID: "c1"}))

	p := New(st, &fakeCompressor{fail: true}, fakeEmbedder{}, Options{BatchSize: 5})
	n, err := p.ProcessBatch(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, n)

	remaining, err := st.PendingCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, remaining)
}

func TestProcessBatchNoCompressorLeavesPending(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	sess := &types.Session{ProjectPath: "/repo"}
	require.NoError(t, st.CreateSession(ctx, sess))
	require.NoError(t, st.Enqueue(ctx, &types.PendingMessage{SessionID: sess.ID, ToolName: "Read", ToolOutput: "file contents", CallID: "c1"}))

	p := New(st, nil, nil, Options{BatchSize: 5})
	n, err := p.ProcessBatch(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, n)

	remaining, err := st.PendingCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, remaining)
}

func TestSummarizeSessionNoSummarizerIsNoOp(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	sess := &types.Session{ProjectPath: "/repo"}
	require.NoError(t, st.CreateSession(ctx, sess))

	s := NewSummarizer(st, nil)
	sum, err := s.SummarizeSession(ctx, sess.ID)
	require.NoError(t, err)
	require.Nil(t, sum)
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Millisecond)
	require.True(t, cb.Allow())
	cb.RecordFailure()
	require.Equal(t, "closed", cb.State())
	cb.RecordFailure()
	require.Equal(t, "open", cb.State())
	require.False(t, cb.Allow())

	time.Sleep(5 * time.Millisecond)
	require.True(t, cb.Allow())
	require.Equal(t, "half-open", cb.State())
	cb.RecordSuccess()
	require.Equal(t, "closed", cb.State())
}

func TestSchedulerTriggerOnEventSkipsWhenDaemonOwned(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	p := New(st, &fakeCompressor{}, fakeEmbedder{}, Options{})
	called := false
	sched := NewScheduler(p, time.Millisecond, func() bool { called = true; return true })
	sched.TriggerOnEvent(ctx)
	require.True(t, called)
}
