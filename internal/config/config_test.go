package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsAndOverrides(t *testing.T) {
	root := t.TempDir()
	cfg, err := Load(root, map[string]any{
		"apiKey":             "test-key",
		"compressionEnabled": true,
		"provider":           "anthropic",
	})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, ".open-mem/memory.db"), cfg.DBPath)
	require.Equal(t, ProviderAnthropic, cfg.Provider)
	require.Equal(t, 4000, cfg.MaxContextTokens)
}

func TestLoadRejectsLowMaxContextTokens(t *testing.T) {
	root := t.TempDir()
	_, err := Load(root, map[string]any{"maxContextTokens": 100})
	require.Error(t, err)
}

func TestLoadRejectsCompressionWithoutKey(t *testing.T) {
	root := t.TempDir()
	_, err := Load(root, map[string]any{
		"provider":           "anthropic",
		"compressionEnabled": true,
	})
	require.Error(t, err)
}

func TestLoadPreservesAbsoluteDBPath(t *testing.T) {
	root := t.TempDir()
	abs := filepath.Join(t.TempDir(), "custom.db")
	cfg, err := Load(root, map[string]any{"dbPath": abs})
	require.NoError(t, err)
	require.Equal(t, abs, cfg.DBPath)
}

func TestEmbeddingDimensionDefaultsByProvider(t *testing.T) {
	root := t.TempDir()
	cfg, err := Load(root, map[string]any{"provider": "google", "apiKey": "test-key"})
	require.NoError(t, err)
	require.Equal(t, 768, cfg.EmbeddingDimension)
}

func TestSetAndGetYamlConfig(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, SetYamlConfig(root, "dbPath", "custom/path.db"))

	got, ok := GetYamlConfig(root, "dbPath")
	require.True(t, ok)
	require.Equal(t, "custom/path.db", got)
}

func TestIsYamlOnlyKey(t *testing.T) {
	require.True(t, IsYamlOnlyKey("dbPath"))
	require.False(t, IsYamlOnlyKey("maxContextTokens"))
}

func TestLoadModesFallsBackToDefaultOnMissingDir(t *testing.T) {
	modes, err := LoadModes(filepath.Join(t.TempDir(), "nonexistent"))
	require.NoError(t, err)
	require.Contains(t, modes, DefaultModeID)
}

func TestLoadModesResolvesExtends(t *testing.T) {
	dir := t.TempDir()
	parent := `
id = "backend"
name = "Backend"
entity_types = ["service", "database"]
`
	child := `
id = "backend-go"
name = "Backend (Go)"
extends = "backend"
concept_vocabulary = ["goroutine", "channel"]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "backend.toml"), []byte(parent), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "backend-go.toml"), []byte(child), 0o644))

	modes, err := LoadModes(dir)
	require.NoError(t, err)

	merged := modes["backend-go"]
	require.Equal(t, "Backend (Go)", merged.Name)
	require.Equal(t, []string{"service", "database"}, merged.EntityTypes)
	require.Equal(t, []string{"goroutine", "channel"}, merged.ConceptVocabulary)
}

func TestLoadModesFallsBackOnCycle(t *testing.T) {
	dir := t.TempDir()
	a := `
id = "a"
extends = "b"
`
	b := `
id = "b"
extends = "a"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.toml"), []byte(a), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.toml"), []byte(b), 0o644))

	modes, err := LoadModes(dir)
	require.NoError(t, err)
	require.Equal(t, DefaultModeID, modes["a"].ID)
}
