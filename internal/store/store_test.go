package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/open-mem/open-mem/internal/types"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(context.Background(), filepath.Join(dir, "open-mem.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndGetSession(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	sess := &types.Session{ProjectPath: "/repo"}
	require.NoError(t, s.CreateSession(ctx, sess))
	require.NotEmpty(t, sess.ID)

	got, err := s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, "/repo", got.ProjectPath)
	require.Equal(t, types.SessionActive, got.Status)
}

func TestCreateObservationValidation(t *testing.T) {
	cases := []struct {
		name    string
		obs     types.Observation
		wantErr string
	}{
		{
			name:    "missing title",
			obs:     types.Observation{Narrative: "did stuff", Type: types.TypeDiscovery},
			wantErr: "title is required",
		},
		{
			name:    "missing narrative",
			obs:     types.Observation{Title: "X", Type: types.TypeDiscovery},
			wantErr: "narrative is required",
		},
		{
			name:    "invalid type",
			obs:     types.Observation{Title: "X", Narrative: "Y", Type: "bogus"},
			wantErr: "invalid observation type",
		},
	}

	ctx := context.Background()
	s := newTestStore(t)
	sess := &types.Session{ProjectPath: "/repo"}
	require.NoError(t, s.CreateSession(ctx, sess))

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.obs.SessionID = sess.ID
			err := s.CreateObservation(ctx, &tc.obs)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestObservationLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	sess := &types.Session{ProjectPath: "/repo"}
	require.NoError(t, s.CreateSession(ctx, sess))

	obs := &types.Observation{
		SessionID: sess.ID,
		Type:      types.TypeDecision,
		Title:     "Chose SQLite",
		Narrative: "Picked an embedded database over a server.",
		Concepts:  []string{"storage", "sqlite"},
		Embedding: []float32{0.1, 0.2, 0.3},
	}
	require.NoError(t, s.CreateObservation(ctx, obs))

	got, err := s.GetObservation(ctx, obs.ID)
	require.NoError(t, err)
	require.Equal(t, obs.Title, got.Title)
	require.Equal(t, []string{"storage", "sqlite"}, got.Concepts)
	require.InDeltaSlice(t, []float64{0.1, 0.2, 0.3}, toFloat64(got.Embedding), 0.0001)

	found, err := s.SearchObservationsFTS(ctx, "SQLite", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)

	scored := s.SearchByVector(ctx, []float32{0.1, 0.2, 0.3}, 5)
	require.Len(t, scored, 1)
	require.Greater(t, scored[0].Score, 0.9)

	gotSession, err := s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, 1, gotSession.ObservationCount)

	require.NoError(t, s.SoftDeleteObservation(ctx, obs.ID))
	after, err := s.GetObservation(ctx, obs.ID)
	require.NoError(t, err)
	require.NotNil(t, after.DeletedAt)
	require.False(t, after.IsCurrent())
}

func TestPendingQueueClaimBatch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	sess := &types.Session{ProjectPath: "/repo"}
	require.NoError(t, s.CreateSession(ctx, sess))

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Enqueue(ctx, &types.PendingMessage{
			SessionID: sess.ID, ToolName: "Read", ToolOutput: "output", CallID: "call-1",
		}))
	}

	claimed, err := s.ClaimBatch(ctx, 2)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	for _, pm := range claimed {
		require.Equal(t, types.PendingProcessing, pm.Status)
	}

	remaining, err := s.PendingCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, remaining)
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	sess := &types.Session{ProjectPath: "/repo"}
	require.NoError(t, s.CreateSession(ctx, sess))
	obs := &types.Observation{
		SessionID: sess.ID, Type: types.TypeFeature, Title: "T", Narrative: "N",
	}
	require.NoError(t, s.CreateObservation(ctx, obs))

	exp, err := s.ExportAll(ctx, "/repo")
	require.NoError(t, err)
	require.Len(t, exp.Observations, 1)

	data, err := MarshalExport(exp)
	require.NoError(t, err)
	parsed, err := UnmarshalExport(data)
	require.NoError(t, err)

	s2 := newTestStore(t)
	res, err := s2.ImportAll(ctx, parsed, ImportSkipDuplicates)
	require.NoError(t, err)
	require.Equal(t, 1, res.SessionsImported)
	require.Equal(t, 1, res.ObservationsImported)

	res2, err := s2.ImportAll(ctx, parsed, ImportSkipDuplicates)
	require.NoError(t, err)
	require.Equal(t, 1, res2.Skipped)
}

func toFloat64(f []float32) []float64 {
	out := make([]float64, len(f))
	for i, v := range f {
		out[i] = float64(v)
	}
	return out
}
