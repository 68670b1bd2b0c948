package toolsurface

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/open-mem/open-mem/internal/retrieval"
	"github.com/open-mem/open-mem/internal/store"
	"github.com/open-mem/open-mem/internal/types"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(context.Background(), filepath.Join(dir, "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	require.NoError(t, st.CreateSession(context.Background(), &types.Session{ID: "sess-1", ProjectPath: dir}))

	return &Handler{
		Store:       st,
		Engine:      retrieval.NewEngine(st, nil, nil),
		ProjectRoot: dir,
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestMemCreateAndMemGet(t *testing.T) {
	h := newTestHandler(t)
	ctx := context.Background()

	resp := h.Dispatch(ctx, "mem-create", mustJSON(t, CreateArgs{
		SessionID: "sess-1",
		Type:      string(types.TypeDecision),
		Title:     "chose sqlite",
		Narrative: "decided to use embedded sqlite for simplicity",
	}))
	require.True(t, resp.OK)

	data := resp.Data.(map[string]any)
	obs := data["observation"].(*types.Observation)
	require.NotEmpty(t, obs.ID)

	getResp := h.Dispatch(ctx, "mem-get", mustJSON(t, GetArgs{IDs: []string{obs.ID}}))
	require.True(t, getResp.OK)
}

func TestMemCreateValidationError(t *testing.T) {
	h := newTestHandler(t)
	resp := h.Dispatch(context.Background(), "mem-create", mustJSON(t, CreateArgs{SessionID: ""}))
	require.False(t, resp.OK)
	require.Equal(t, CodeValidation, resp.Code)
}

func TestMemGetNotFound(t *testing.T) {
	h := newTestHandler(t)
	resp := h.Dispatch(context.Background(), "mem-get", mustJSON(t, GetArgs{IDs: []string{"nope"}}))
	require.False(t, resp.OK)
	require.Equal(t, CodeNotFound, resp.Code)
}

func TestMemReviseSupersedesOriginal(t *testing.T) {
	h := newTestHandler(t)
	ctx := context.Background()

	createResp := h.Dispatch(ctx, "mem-create", mustJSON(t, CreateArgs{
		SessionID: "sess-1",
		Type:      string(types.TypeDecision),
		Title:     "chose sqlite",
		Narrative: "initial narrative",
	}))
	obs := createResp.Data.(map[string]any)["observation"].(*types.Observation)

	reviseResp := h.Dispatch(ctx, "mem-revise", mustJSON(t, ReviseArgs{
		ID:        obs.ID,
		Narrative: "revised narrative",
	}))
	require.True(t, reviseResp.OK)

	original, err := h.Store.GetObservation(ctx, obs.ID)
	require.NoError(t, err)
	require.NotNil(t, original.SupersededBy)
	require.False(t, original.IsCurrent())
}

func TestMemRemoveTombstones(t *testing.T) {
	h := newTestHandler(t)
	ctx := context.Background()

	createResp := h.Dispatch(ctx, "mem-create", mustJSON(t, CreateArgs{
		SessionID: "sess-1",
		Type:      string(types.TypeDiscovery),
		Title:     "found a bug",
		Narrative: "narrative",
	}))
	obs := createResp.Data.(map[string]any)["observation"].(*types.Observation)

	resp := h.Dispatch(ctx, "mem-remove", mustJSON(t, RemoveArgs{ID: obs.ID}))
	require.True(t, resp.OK)

	got, err := h.Store.GetObservation(ctx, obs.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DeletedAt)
}

func TestMemFindRequiresQuery(t *testing.T) {
	h := newTestHandler(t)
	resp := h.Dispatch(context.Background(), "mem-find", mustJSON(t, FindArgs{}))
	require.False(t, resp.OK)
	require.Equal(t, CodeValidation, resp.Code)
}

func TestMemFindReturnsMatch(t *testing.T) {
	h := newTestHandler(t)
	ctx := context.Background()

	h.Dispatch(ctx, "mem-create", mustJSON(t, CreateArgs{
		SessionID: "sess-1",
		Type:      string(types.TypeBugfix),
		Title:     "fixed race condition",
		Narrative: "a race condition in the scheduler was fixed by adding a mutex",
	}))

	resp := h.Dispatch(ctx, "mem-find", mustJSON(t, FindArgs{Query: "race condition"}))
	require.True(t, resp.OK)
}

func TestMemHistoryRejectsBadAnchor(t *testing.T) {
	h := newTestHandler(t)
	resp := h.Dispatch(context.Background(), "mem-history", mustJSON(t, HistoryArgs{
		Anchor:      "not a real date at all",
		DepthBefore: 1,
	}))
	require.False(t, resp.OK)
	require.Equal(t, CodeValidation, resp.Code)
}

func TestMemExportImportRoundTrip(t *testing.T) {
	h := newTestHandler(t)
	ctx := context.Background()

	h.Dispatch(ctx, "mem-create", mustJSON(t, CreateArgs{
		SessionID: "sess-1",
		Type:      string(types.TypeFeature),
		Title:     "added export",
		Narrative: "narrative",
	}))

	exportResp := h.Dispatch(ctx, "mem-export", mustJSON(t, ExportArgs{}))
	require.True(t, exportResp.OK)
	exp := exportResp.Data.(map[string]any)["export"].(*store.Export)

	h2 := newTestHandler(t)
	importResp := h2.Dispatch(ctx, "mem-import", mustJSON(t, ImportArgs{Export: exp, Mode: "skip"}))
	require.True(t, importResp.OK)
}

func TestMemMaintenanceRejectsUnknownAction(t *testing.T) {
	h := newTestHandler(t)
	resp := h.Dispatch(context.Background(), "mem-maintenance", mustJSON(t, MaintenanceArgs{Action: "bogus"}))
	require.False(t, resp.OK)
	require.Equal(t, CodeValidation, resp.Code)
}

func TestMemHelpListsTools(t *testing.T) {
	h := newTestHandler(t)
	resp := h.Dispatch(context.Background(), "mem-help", nil)
	require.True(t, resp.OK)
	tools := resp.Data.(map[string]any)["tools"].([]ToolDescription)
	require.NotEmpty(t, tools)
}

func TestDispatchUnknownOp(t *testing.T) {
	h := newTestHandler(t)
	resp := h.Dispatch(context.Background(), "mem-bogus", nil)
	require.False(t, resp.OK)
	require.Equal(t, CodeValidation, resp.Code)
}
