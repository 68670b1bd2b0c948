package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildWithNoAPIKeyDegradesGracefully(t *testing.T) {
	dir := t.TempDir()
	app, err := Build(context.Background(), dir, map[string]any{
		"apiKey": "",
	})
	require.NoError(t, err)
	defer app.Close()

	require.Nil(t, app.Gateway)
	require.NotNil(t, app.Store)
	require.NotNil(t, app.Processor)
	require.NotNil(t, app.Scheduler)
	require.NotNil(t, app.Summarizer)
	require.NotNil(t, app.Engine)
	require.NotNil(t, app.Hooks)
	require.NotNil(t, app.Tools)

	n, err := app.Processor.ProcessBatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, n)

	sum, err := app.Summarizer.SummarizeSession(context.Background(), "nonexistent-session")
	require.NoError(t, err)
	require.Nil(t, sum)
}

func TestBuildWithUserMemoryEnabled(t *testing.T) {
	dir := t.TempDir()
	app, err := Build(context.Background(), dir, map[string]any{
		"userMemoryEnabled": true,
		"userMemoryDbPath":  dir + "/user.db",
	})
	require.NoError(t, err)
	defer app.Close()

	require.NotNil(t, app.UserStore)
	require.NotNil(t, app.Tools.UserStore)
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	_, err := Build(context.Background(), dir, map[string]any{
		"maxContextTokens": 10,
	})
	require.Error(t, err)
}
