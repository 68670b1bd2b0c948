package hooks

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/open-mem/open-mem/internal/gateway"
	"github.com/open-mem/open-mem/internal/queue"
	"github.com/open-mem/open-mem/internal/store"
	"github.com/open-mem/open-mem/internal/types"
)

type fakeCompressor struct{}

func (fakeCompressor) Compress(ctx context.Context, rawOutput, toolName string) (gateway.CompressedObservation, error) {
	return gateway.CompressedObservation{
		Type:      "discovery",
		Title:     "observed " + toolName,
		Narrative: rawOutput,
	}, nil
}

func newTestAdapters(t *testing.T) *Adapters {
	t.Helper()
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	proc := queue.New(st, fakeCompressor{}, nil, queue.Options{})
	sched := queue.NewScheduler(proc, 0, nil)

	return &Adapters{
		Store:       st,
		ProjectRoot: t.TempDir(),
		Scheduler:   sched,
		Config: Config{
			MinOutputLength:         5,
			ContextInjectionEnabled: true,
			MaxContextTokens:        2000,
		},
	}
}

func TestOnToolAfterDropsShortOutput(t *testing.T) {
	a := newTestAdapters(t)
	a.Config.MinOutputLength = 100
	ctx := context.Background()

	a.OnToolAfter(ctx, "bash", "sess-1", "call-1", "short")

	n, err := a.Store.PendingCount(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestOnToolAfterDropsIgnoredTool(t *testing.T) {
	a := newTestAdapters(t)
	a.Config.IgnoredTools = map[string]bool{"noisy": true}
	ctx := context.Background()

	a.OnToolAfter(ctx, "noisy", "sess-1", "call-1", "a very long and detailed tool output here")

	n, err := a.Store.PendingCount(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestOnToolAfterEnqueuesAndCreatesSession(t *testing.T) {
	a := newTestAdapters(t)
	ctx := context.Background()

	a.OnToolAfter(ctx, "bash", "sess-1", "call-1", "ran the migration and it succeeded cleanly")

	_, err := a.Store.GetSession(ctx, "sess-1")
	require.NoError(t, err)
}

func TestOnToolAfterRedactsSensitivePatterns(t *testing.T) {
	a := newTestAdapters(t)
	pattern := regexp.MustCompile(`sk-[A-Za-z0-9]+`)
	a.Config.SensitivePatterns = []*regexp.Regexp{pattern}
	a.Scheduler = nil
	ctx := context.Background()

	a.OnToolAfter(ctx, "bash", "sess-1", "call-1", "api key is sk-ABC123 visible <private>secret</private> tail end")

	// Drain the queue directly via a processor-free claim to inspect the
	// redacted payload without triggering async compression.
	batch, err := a.Store.ClaimBatch(ctx, 1)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	require.NotContains(t, batch[0].ToolOutput, "sk-ABC123")
	require.NotContains(t, batch[0].ToolOutput, "secret")
	require.Contains(t, batch[0].ToolOutput, "[REDACTED]")
	require.Contains(t, batch[0].ToolOutput, "[PRIVATE]")
}

func TestOnSystemTransformNoopsWhenDisabled(t *testing.T) {
	a := newTestAdapters(t)
	a.Config.ContextInjectionEnabled = false
	ctx := context.Background()

	out := a.OnSystemTransform(ctx, "sess-1", "claude", []string{"base"})
	require.Equal(t, []string{"base"}, out)
}

func TestOnSystemTransformNoopsWhenNoObservations(t *testing.T) {
	a := newTestAdapters(t)
	ctx := context.Background()

	out := a.OnSystemTransform(ctx, "sess-1", "claude", []string{"base"})
	require.Equal(t, []string{"base"}, out)
}

func TestOnSystemTransformInjectsBlock(t *testing.T) {
	a := newTestAdapters(t)
	ctx := context.Background()
	require.NoError(t, a.Store.CreateSession(ctx, &types.Session{ID: "sess-1"}))
	require.NoError(t, a.Store.CreateObservation(ctx, &types.Observation{
		SessionID: "sess-1",
		Type:      types.TypeDecision,
		Title:     "chose sqlite",
		Narrative: "decided to use embedded sqlite for simplicity",
	}))

	out := a.OnSystemTransform(ctx, "sess-1", "claude", []string{"base"})
	require.Len(t, out, 2)
	require.Contains(t, out[1], "Progressive Disclosure")
}

func TestOnEventUnknownTypeIsNoop(t *testing.T) {
	a := newTestAdapters(t)
	ctx := context.Background()
	a.OnEvent(ctx, Event{Type: "something.else", SessionID: "sess-1"})

	_, err := a.Store.GetSession(ctx, "sess-1")
	require.Error(t, err)
}

func TestOnEventSessionCreatedEnsuresSession(t *testing.T) {
	a := newTestAdapters(t)
	ctx := context.Background()
	a.OnEvent(ctx, Event{Type: "session.created", SessionID: "sess-1"})

	_, err := a.Store.GetSession(ctx, "sess-1")
	require.NoError(t, err)
}

func TestRedactAppliesPatternAndPrivateBlocks(t *testing.T) {
	pattern := regexp.MustCompile(`sk-[A-Za-z0-9]+`)
	got := Redact("key=sk-XYZ visible <private>hidden\nacross lines</private> end", []*regexp.Regexp{pattern})
	require.Equal(t, "key=[REDACTED] visible [PRIVATE] end", got)
}
