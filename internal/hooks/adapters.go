// Package hooks implements C6: the four host hook adapters. Every
// adapter here follows the teacher's hook philosophy (log and return,
// never propagate an error to the host) but logs through zerolog
// instead of hand-rolled fmt.Fprintf(os.Stderr, ...).
package hooks

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	memcontext "github.com/open-mem/open-mem/internal/context"
	"github.com/open-mem/open-mem/internal/queue"
	"github.com/open-mem/open-mem/internal/retention"
	"github.com/open-mem/open-mem/internal/store"
	"github.com/open-mem/open-mem/internal/types"
)

var logger = log.With().Str("component", "open-mem").Logger()

// SetLogger overrides the package logger, used by hosts that want
// open-mem's hook logs routed through their own zerolog instance.
func SetLogger(l zerolog.Logger) {
	logger = l
}

// Config is the subset of configuration the hook adapters need, kept
// narrow and value-typed (rather than importing the full config.Config)
// so adapters.go has no import-cycle risk as internal/config grows.
type Config struct {
	IgnoredTools                map[string]bool
	MinOutputLength             int
	SensitivePatterns           []*regexp.Regexp
	ContextInjectionEnabled     bool
	MaxContextTokens            int
	MaxIndexEntries             int
	ContextFullObservationCount int
	MaxObservations             int
	RetentionDays               int
	MaxDatabaseSizeMb           int
	FolderContextEnabled        bool
	FolderContextMaxDepth       int
}

// Adapters wires the four host hook points to the core store, queue,
// and context builder. The host constructs one Adapters per open
// project database.
type Adapters struct {
	Store       *store.Store
	ProjectRoot string
	Scheduler   *queue.Scheduler
	Summarizer  *queue.Summarizer
	Config      Config
}

// OnToolAfter is called after a tool invocation completes. It never
// returns an error: capture is best-effort, and a capture failure must
// never interrupt the host's tool loop.
func (a *Adapters) OnToolAfter(ctx context.Context, tool, sessionID, callID, output string) {
	if a.Config.IgnoredTools[tool] {
		return
	}
	if len(output) < a.Config.MinOutputLength {
		return
	}

	redacted := Redact(output, a.Config.SensitivePatterns)

	if err := a.ensureSession(ctx, sessionID); err != nil {
		logger.Error().Err(err).Str("session_id", sessionID).Msg("open-mem: ensure session failed")
		return
	}

	pm := &types.PendingMessage{
		SessionID:  sessionID,
		ToolName:   tool,
		ToolOutput: redacted,
		CallID:     callID,
	}
	if err := a.Store.Enqueue(ctx, pm); err != nil {
		logger.Error().Err(err).Str("session_id", sessionID).Msg("open-mem: enqueue pending message failed")
		return
	}

	if a.Scheduler != nil {
		a.Scheduler.TriggerOnEvent(ctx)
	}
}

// OnSystemTransform appends a formatted context block to system if
// injection is enabled and there is anything to inject. A no-op
// (returning system unchanged) is the correct degraded behavior when
// the store is empty, injection is disabled, or assembly fails.
func (a *Adapters) OnSystemTransform(ctx context.Context, sessionID, model string, system []string) []string {
	if !a.Config.ContextInjectionEnabled {
		return system
	}

	assembled, ok := a.assembleContext(ctx, sessionID, memcontext.Budget{
		MaxTokens:            a.Config.MaxContextTokens,
		FullObservationCount: a.Config.ContextFullObservationCount,
		MaxIndexEntries:      a.Config.MaxIndexEntries,
		MaxObservations:      a.Config.MaxObservations,
	})
	if !ok {
		return system
	}
	return append(system, memcontext.FormatMarkdown(assembled))
}

// OnSessionCompacting returns the context blocks to inject during
// compaction: half the normal token budget, but twice as many full-tier
// observations, since compaction is exactly the moment a coding agent
// most needs complete rather than indexed detail. Rendered as plain text
// since the compaction surface is a transcript, not a markdown-rendering
// prompt.
func (a *Adapters) OnSessionCompacting(ctx context.Context, sessionID string, existing []string) []string {
	fullCount := a.Config.ContextFullObservationCount
	if fullCount <= 0 {
		fullCount = 5
	}
	budget := memcontext.Budget{
		MaxTokens:            a.Config.MaxContextTokens / 2,
		FullObservationCount: fullCount * 2,
		MaxIndexEntries:      a.Config.MaxIndexEntries,
		MaxObservations:      a.Config.MaxObservations,
	}
	assembled, ok := a.assembleContext(ctx, sessionID, budget)
	if !ok {
		return existing
	}
	return append(existing, memcontext.FormatPlainText(assembled))
}

// assembleContext loads observations and the session's summary and runs
// the progressive-disclosure builder, returning ok=false when there's
// nothing worth injecting.
func (a *Adapters) assembleContext(ctx context.Context, sessionID string, budget memcontext.Budget) (memcontext.Assembled, bool) {
	obs, err := a.Store.SearchObservations(ctx, types.ObservationFilter{Limit: 500})
	if err != nil {
		logger.Error().Err(err).Msg("open-mem: load observations for context injection failed")
		return memcontext.Assembled{}, false
	}
	if len(obs) == 0 {
		return memcontext.Assembled{}, false
	}

	var summaries []*types.SessionSummary
	if sum, err := a.Store.GetSessionSummaryBySession(ctx, sessionID); err == nil {
		summaries = append(summaries, sum)
	}

	return memcontext.Build(ctx, a.Store, obs, summaries, sessionID, budget, time.Now()), true
}

// ensureSession creates sessionID if it doesn't already exist,
// idempotent across repeated calls per spec.md §6's at-least-once
// delivery guarantee.
func (a *Adapters) ensureSession(ctx context.Context, sessionID string) error {
	_, err := a.Store.GetSession(ctx, sessionID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return a.Store.CreateSession(ctx, &types.Session{ID: sessionID, ProjectPath: a.ProjectRoot})
}

// Event is the payload for OnEvent (session.created, session.idle,
// session.completed/ended). Unknown types are a no-op.
type Event struct {
	Type       string
	SessionID  string
	Properties map[string]any
}

// OnEvent dispatches a lifecycle event. Every branch is best-effort and
// logs rather than returns an error, per §4.6.
func (a *Adapters) OnEvent(ctx context.Context, ev Event) {
	switch ev.Type {
	case "session.created":
		a.onSessionCreated(ctx, ev.SessionID)
	case "session.idle":
		a.onSessionIdle(ctx, ev.SessionID)
	case "session.completed", "session.ended":
		a.onSessionCompleted(ctx, ev.SessionID)
	default:
		// unknown event type: no-op
	}
}

func (a *Adapters) onSessionCreated(ctx context.Context, sessionID string) {
	if err := a.ensureSession(ctx, sessionID); err != nil {
		logger.Error().Err(err).Str("session_id", sessionID).Msg("open-mem: session.created ensure session failed")
		return
	}

	retention.Sweep(ctx, a.Store, retention.Options{
		RetentionDays:     a.Config.RetentionDays,
		MaxDatabaseSizeMb: a.Config.MaxDatabaseSizeMb,
	})
}

func (a *Adapters) onSessionIdle(ctx context.Context, sessionID string) {
	if a.Scheduler != nil {
		go a.Scheduler.TriggerOnEvent(ctx)
	}
	if err := a.Store.UpdateSessionStatus(ctx, sessionID, types.SessionIdle); err != nil {
		logger.Warn().Err(err).Str("session_id", sessionID).Msg("open-mem: session.idle status update failed")
	}
	if a.Config.FolderContextEnabled {
		go func() {
			if _, err := retention.RunFolderContext(context.Background(), a.Store, a.ProjectRoot, a.Config.FolderContextMaxDepth, retention.ActionRebuild); err != nil {
				logger.Warn().Err(err).Msg("open-mem: session.idle folder context refresh failed")
			}
		}()
	}
}

func (a *Adapters) onSessionCompleted(ctx context.Context, sessionID string) {
	if a.Scheduler != nil {
		if _, err := a.Scheduler.ProcessNow(ctx); err != nil {
			logger.Warn().Err(err).Msg("open-mem: session.completed final batch failed")
		}
	}
	if a.Summarizer != nil {
		if _, err := a.Summarizer.SummarizeSession(ctx, sessionID); err != nil {
			logger.Warn().Err(err).Str("session_id", sessionID).Msg("open-mem: session.completed summarize failed")
		}
	}
	if err := a.Store.UpdateSessionStatus(ctx, sessionID, types.SessionCompleted); err != nil {
		logger.Warn().Err(err).Str("session_id", sessionID).Msg("open-mem: session.completed status update failed")
	}
	if a.Config.FolderContextEnabled {
		if _, err := retention.RunFolderContext(ctx, a.Store, a.ProjectRoot, a.Config.FolderContextMaxDepth, retention.ActionRebuild); err != nil {
			logger.Warn().Err(err).Msg("open-mem: session.completed folder context refresh failed")
		}
	}
}
