// Package bootstrap wires a project's configuration, store, AI gateway,
// queue, retrieval engine, and hook adapters into one App, shared by
// cmd/open-mem (direct/CLI mode) and cmd/open-memd (daemon mode) so
// neither binary duplicates the construction order, grounded on
// cmd/bd/main.go's top-level var wiring (store, daemonClient,
// autoFlush...) collapsed into a single constructor.
package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/open-mem/open-mem/internal/config"
	"github.com/open-mem/open-mem/internal/daemon"
	"github.com/open-mem/open-mem/internal/gateway"
	"github.com/open-mem/open-mem/internal/hooks"
	"github.com/open-mem/open-mem/internal/queue"
	"github.com/open-mem/open-mem/internal/retrieval"
	"github.com/open-mem/open-mem/internal/store"
	"github.com/open-mem/open-mem/internal/toolsurface"
)

// App bundles every wired component for one project. Close releases the
// underlying database handles.
type App struct {
	Config     *config.Config
	Store      *store.Store
	UserStore  *store.Store
	Gateway    *gateway.Gateway
	Processor  *queue.Processor
	Scheduler  *queue.Scheduler
	Summarizer *queue.Summarizer
	Engine     *retrieval.Engine
	Hooks      *hooks.Adapters
	Tools      *toolsurface.Handler
}

// Build loads configuration for projectRoot and constructs every
// component. A missing/invalid API key degrades gracefully: the gateway
// is left nil and compression/embedding/reranking/summarization calls
// fall back to heuristics wherever the downstream package already
// supports a nil gateway dependency, per spec.md §8's graceful
// degradation scenario.
func Build(ctx context.Context, projectRoot string, overrides map[string]any) (*App, error) {
	cfg, err := config.Load(projectRoot, overrides)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("bootstrap: invalid config: %w", err)
	}

	st, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open store: %w", err)
	}

	var userStore *store.Store
	if cfg.UserMemoryEnabled && cfg.UserMemoryDbPath != "" {
		userStore, err = store.Open(ctx, cfg.UserMemoryDbPath)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("bootstrap: open user-scope store: %w", err)
		}
	}

	var gw *gateway.Gateway
	if cfg.CompressionEnabled && cfg.APIKey != "" {
		gw, err = gateway.New(gateway.Options{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			MaxRetries: 3,
		})
		if err != nil {
			gw = nil
		}
	}

	var compressor gateway.Compressor
	var embedder gateway.Embedder
	var reranker gateway.Reranker
	var summarizer gateway.Summarizer
	if gw != nil {
		compressor, embedder, summarizer = gw, gw, gw
		if cfg.RerankingEnabled {
			reranker = gw
		}
	}

	proc := queue.New(st, compressor, embedder, queue.Options{
		BatchSize: cfg.BatchSize,
	})
	pollInterval := time.Duration(cfg.BatchIntervalMs) * time.Millisecond
	// In-process triggers stand down while a live open-memd holds the lock
	// in this project's default daemon state directory.
	stateDir := filepath.Join(projectRoot, ".open-mem")
	sched := queue.NewScheduler(proc, pollInterval, func() bool { return daemon.IsRunning(stateDir) })
	summ := queue.NewSummarizer(st, summarizer)

	engine := retrieval.NewEngine(st, embedder, reranker)

	sensitive, _ := hooks.CompilePatterns(cfg.SensitivePatterns)
	ignored := make(map[string]bool, len(cfg.IgnoredTools))
	for _, t := range cfg.IgnoredTools {
		ignored[t] = true
	}
	adapters := &hooks.Adapters{
		Store:       st,
		ProjectRoot: projectRoot,
		Scheduler:   sched,
		Summarizer:  summ,
		Config: hooks.Config{
			IgnoredTools:                ignored,
			MinOutputLength:             cfg.MinOutputLength,
			SensitivePatterns:           sensitive,
			ContextInjectionEnabled:     cfg.ContextInjectionEnabled,
			MaxContextTokens:            cfg.MaxContextTokens,
			MaxIndexEntries:             cfg.MaxIndexEntries,
			ContextFullObservationCount: cfg.ContextFullObservationCount,
			MaxObservations:             cfg.MaxObservations,
			RetentionDays:               cfg.RetentionDays,
			MaxDatabaseSizeMb:           cfg.MaxDatabaseSizeMb,
			FolderContextEnabled:        cfg.FolderContextEnabled,
			FolderContextMaxDepth:       cfg.FolderContextMaxDepth,
		},
	}

	tools := &toolsurface.Handler{
		Store:       st,
		UserStore:   userStore,
		Engine:      engine,
		ProjectRoot: projectRoot,
	}

	return &App{
		Config:     cfg,
		Store:      st,
		UserStore:  userStore,
		Gateway:    gw,
		Processor:  proc,
		Scheduler:  sched,
		Summarizer: summ,
		Engine:     engine,
		Hooks:      adapters,
		Tools:      tools,
	}, nil
}

// Close releases the project (and, if open, user-scope) database
// handles.
func (a *App) Close() error {
	var err error
	if a.UserStore != nil {
		if cerr := a.UserStore.Close(); cerr != nil {
			err = cerr
		}
	}
	if cerr := a.Store.Close(); cerr != nil {
		err = cerr
	}
	return err
}
