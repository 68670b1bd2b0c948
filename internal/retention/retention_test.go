package retention

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/open-mem/open-mem/internal/store"
	"github.com/open-mem/open-mem/internal/types"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSweepDeletesOldObservationsByAge(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	sess := &types.Session{ProjectPath: "/tmp/proj"}
	require.NoError(t, st.CreateSession(ctx, sess))

	old := &types.Observation{SessionID: sess.ID, Type: types.TypeDiscovery, Title: "old", Narrative: "old narrative"}
	require.NoError(t, st.CreateObservation(ctx, old))

	// Backdate it directly since CreateObservation always stamps "now".
	_, err := st.DB().ExecContext(ctx, `UPDATE observations SET created_at = ? WHERE id = ?`,
		time.Now().AddDate(0, 0, -100).Format(time.RFC3339Nano), old.ID)
	require.NoError(t, err)

	fresh := &types.Observation{SessionID: sess.ID, Type: types.TypeDiscovery, Title: "fresh", Narrative: "fresh narrative"}
	require.NoError(t, st.CreateObservation(ctx, fresh))

	result := Sweep(ctx, st, Options{RetentionDays: 30})
	require.EqualValues(t, 1, result.ObservationsDeletedByAge)

	_, err = st.GetObservation(ctx, fresh.ID)
	require.NoError(t, err)
	_, err = st.GetObservation(ctx, old.ID)
	require.Error(t, err)
}

func TestSweepNoopsWhenRetentionDisabled(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	result := Sweep(ctx, st, Options{})
	require.Zero(t, result.ObservationsDeletedByAge)
	require.Zero(t, result.ObservationsDeletedBySize)
}

func TestRunFolderContextRebuildWritesAgentsFile(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	root := t.TempDir()

	sess := &types.Session{ProjectPath: root}
	require.NoError(t, st.CreateSession(ctx, sess))
	obs := &types.Observation{
		SessionID:     sess.ID,
		Type:          types.TypeFeature,
		Title:         "added handler",
		Narrative:     "added a new request handler",
		FilesModified: []string{"internal/api/handler.go"},
	}
	require.NoError(t, st.CreateObservation(ctx, obs))

	result, err := RunFolderContext(ctx, st, root, 2, ActionRebuild)
	require.NoError(t, err)
	require.NotEmpty(t, result.FoldersWritten)

	content, err := os.ReadFile(result.FoldersWritten[0])
	require.NoError(t, err)
	require.Contains(t, string(content), "added handler")
	require.Contains(t, string(content), artifactMarkerStart)
}

func TestRunFolderContextDryRunMakesNoChanges(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	root := t.TempDir()

	sess := &types.Session{ProjectPath: root}
	require.NoError(t, st.CreateSession(ctx, sess))
	obs := &types.Observation{
		SessionID:     sess.ID,
		Type:          types.TypeFeature,
		Title:         "dry run candidate",
		Narrative:     "narrative",
		FilesModified: []string{"pkg/foo.go"},
	}
	require.NoError(t, st.CreateObservation(ctx, obs))

	result, err := RunFolderContext(ctx, st, root, 2, ActionDryRun)
	require.NoError(t, err)
	require.NotEmpty(t, result.FoldersWritten)

	_, statErr := os.Stat(result.FoldersWritten[0])
	require.True(t, os.IsNotExist(statErr))
}

func TestRunFolderContextPurgeRemovesArtifacts(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	root := t.TempDir()

	sess := &types.Session{ProjectPath: root}
	require.NoError(t, st.CreateSession(ctx, sess))
	obs := &types.Observation{
		SessionID:     sess.ID,
		Type:          types.TypeFeature,
		Title:         "to purge",
		Narrative:     "narrative",
		FilesModified: []string{"pkg/bar.go"},
	}
	require.NoError(t, st.CreateObservation(ctx, obs))

	built, err := RunFolderContext(ctx, st, root, 2, ActionRebuild)
	require.NoError(t, err)
	require.NotEmpty(t, built.FoldersWritten)

	purged, err := RunFolderContext(ctx, st, root, 2, ActionPurge)
	require.NoError(t, err)
	require.NotEmpty(t, purged.FoldersRemoved)

	_, statErr := os.Stat(built.FoldersWritten[0])
	require.True(t, os.IsNotExist(statErr))
}
