package retention

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/open-mem/open-mem/internal/store"
	"github.com/open-mem/open-mem/internal/types"
)

// artifactMarkerStart/End bracket open-mem's managed section inside an
// AGENTS.md file, the same "BEGIN/END integration" idiom the teacher
// uses for its own AGENTS.md template so a hand-edited file's
// surrounding content survives regeneration.
const (
	artifactMarkerStart = "<!-- BEGIN OPEN-MEM FOLDER CONTEXT -->"
	artifactMarkerEnd   = "<!-- END OPEN-MEM FOLDER CONTEXT -->"
	artifactFilename    = "AGENTS.md"
)

// FolderContextAction selects a mem-maintenance operation (§4.7/§6).
type FolderContextAction string

const (
	ActionDryRun  FolderContextAction = "dryRun"
	ActionClean   FolderContextAction = "clean"
	ActionPurge   FolderContextAction = "purge"
	ActionRebuild FolderContextAction = "rebuild"
)

// FolderContextResult reports what RunFolderContext did or would do.
type FolderContextResult struct {
	Action         FolderContextAction
	FoldersWritten []string
	FoldersRemoved []string
}

// RunFolderContext regenerates per-folder AGENTS.md artifacts from
// current observations grouped by modified file path, bounded by
// maxDepth path components from projectRoot.
func RunFolderContext(ctx context.Context, st *store.Store, projectRoot string, maxDepth int, action FolderContextAction) (FolderContextResult, error) {
	result := FolderContextResult{Action: action}

	existing, err := findManagedArtifacts(projectRoot)
	if err != nil {
		return result, fmt.Errorf("retention: scan folder context artifacts: %w", err)
	}

	switch action {
	case ActionPurge:
		for _, path := range existing {
			if err := removeManagedSection(path); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("retention: purge folder context artifact failed")
				continue
			}
			result.FoldersRemoved = append(result.FoldersRemoved, path)
		}
		return result, nil

	case ActionClean:
		grouped, err := groupObservationsByFolder(ctx, st, projectRoot, maxDepth)
		if err != nil {
			return result, err
		}
		for _, path := range existing {
			folder := filepath.Dir(path)
			if _, stillRelevant := grouped[folder]; stillRelevant {
				continue
			}
			if err := removeManagedSection(path); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("retention: clean stale folder context artifact failed")
				continue
			}
			result.FoldersRemoved = append(result.FoldersRemoved, path)
		}
		return result, nil

	case ActionDryRun:
		grouped, err := groupObservationsByFolder(ctx, st, projectRoot, maxDepth)
		if err != nil {
			return result, err
		}
		for folder := range grouped {
			result.FoldersWritten = append(result.FoldersWritten, filepath.Join(folder, artifactFilename))
		}
		sort.Strings(result.FoldersWritten)
		return result, nil

	case ActionRebuild:
		grouped, err := groupObservationsByFolder(ctx, st, projectRoot, maxDepth)
		if err != nil {
			return result, err
		}
		for folder, obs := range grouped {
			path := filepath.Join(folder, artifactFilename)
			if err := writeManagedSection(path, folder, obs); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("retention: write folder context artifact failed")
				continue
			}
			result.FoldersWritten = append(result.FoldersWritten, path)
		}
		sort.Strings(result.FoldersWritten)
		return result, nil
	}

	return result, fmt.Errorf("retention: unknown folder context action %q", action)
}

// groupObservationsByFolder buckets current observations by the
// directory (truncated to maxDepth path components) of each modified
// file they touched.
func groupObservationsByFolder(ctx context.Context, st *store.Store, projectRoot string, maxDepth int) (map[string][]*types.Observation, error) {
	obs, err := st.SearchObservations(ctx, types.ObservationFilter{Limit: 1000})
	if err != nil {
		return nil, fmt.Errorf("retention: list observations for folder context: %w", err)
	}

	grouped := make(map[string][]*types.Observation)
	for _, o := range obs {
		for _, f := range o.FilesModified {
			folder := truncateDepth(filepath.Dir(f), maxDepth)
			grouped[filepath.Join(projectRoot, folder)] = append(grouped[filepath.Join(projectRoot, folder)], o)
		}
	}
	return grouped, nil
}

func truncateDepth(path string, maxDepth int) string {
	if maxDepth <= 0 {
		return path
	}
	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) > maxDepth {
		parts = parts[:maxDepth]
	}
	return filepath.Join(parts...)
}

func findManagedArtifacts(root string) ([]string, error) {
	var found []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if info.Name() != artifactFilename {
			return nil
		}
		content, err := os.ReadFile(path)
		if err == nil && strings.Contains(string(content), artifactMarkerStart) {
			found = append(found, path)
		}
		return nil
	})
	return found, err
}

func writeManagedSection(path, folder string, obs []*types.Observation) error {
	var body strings.Builder
	body.WriteString(artifactMarkerStart + "\n\n")
	body.WriteString(fmt.Sprintf("## Folder Context: %s\n\n", filepath.Base(folder)))
	for _, o := range obs {
		body.WriteString(fmt.Sprintf("- [%s] %s\n", o.Type, o.Title))
	}
	body.WriteString("\n" + artifactMarkerEnd + "\n")

	existing, err := os.ReadFile(path)
	var final string
	if err == nil && strings.Contains(string(existing), artifactMarkerStart) {
		final = replaceManagedSection(string(existing), body.String())
	} else {
		final = string(existing) + "\n" + body.String()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(final), 0o644)
}

func removeManagedSection(path string) error {
	existing, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	cleaned := replaceManagedSection(string(existing), "")
	if strings.TrimSpace(cleaned) == "" {
		return os.Remove(path)
	}
	return os.WriteFile(path, []byte(cleaned), 0o644)
}

func replaceManagedSection(content, replacement string) string {
	start := strings.Index(content, artifactMarkerStart)
	end := strings.Index(content, artifactMarkerEnd)
	if start == -1 || end == -1 || end < start {
		return content + "\n" + replacement
	}
	end += len(artifactMarkerEnd)
	return content[:start] + replacement + content[end:]
}

// Watcher watches projectRoot for source file changes and triggers a
// folder-context rebuild, debounced by the caller via onChange.
type Watcher struct {
	fsw *fsnotify.Watcher
}

// NewWatcher starts watching projectRoot (non-recursive at the root;
// callers add subdirectories as they're discovered via AddDir).
func NewWatcher(projectRoot string, onChange func(path string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("retention: create folder watcher: %w", err)
	}
	if err := fsw.Add(projectRoot); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("retention: watch project root: %w", err)
	}

	go func() {
		for {
			select {
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) != 0 {
					onChange(event.Name)
				}
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("retention: folder watcher error")
			}
		}
	}()

	return &Watcher{fsw: fsw}, nil
}

// AddDir adds an additional directory to the watch set.
func (w *Watcher) AddDir(dir string) error {
	return w.fsw.Add(dir)
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
