package queue

import (
	"context"
	"fmt"
	"strings"

	"github.com/open-mem/open-mem/internal/gateway"
	"github.com/open-mem/open-mem/internal/store"
	"github.com/open-mem/open-mem/internal/types"
)

// Summarizer triggers session-completion summarization: it builds a
// narrative from the session's current observations and asks the AI
// Gateway to compress it into a SessionSummary (spec.md §4.3).
type Summarizer struct {
	store      *store.Store
	summarizer gateway.Summarizer
}

// NewSummarizer builds a Summarizer.
func NewSummarizer(st *store.Store, summarizer gateway.Summarizer) *Summarizer {
	return &Summarizer{store: st, summarizer: summarizer}
}

// SummarizeSession builds the narrative for sessionID, asks the gateway
// to compress it, and persists the resulting SessionSummary. With no
// summarizer configured (no API key), it is a no-op and returns
// (nil, nil) rather than persisting a summary.
func (s *Summarizer) SummarizeSession(ctx context.Context, sessionID string) (*types.SessionSummary, error) {
	if s.summarizer == nil {
		return nil, nil
	}

	obs, err := s.store.SearchObservations(ctx, types.ObservationFilter{SessionID: sessionID, Limit: 1 << 20})
	if err != nil {
		return nil, fmt.Errorf("queue: list observations for summary: %w", err)
	}

	narrative := buildSessionNarrative(obs)
	text, err := s.summarizer.Summarize(ctx, narrative)
	if err != nil {
		return nil, fmt.Errorf("queue: summarize session: %w", err)
	}

	sum := &types.SessionSummary{
		SessionID:     sessionID,
		Summary:       text,
		FilesModified: collectFilesModified(obs),
		Concepts:      collectConcepts(obs),
		TokenCount:    len(strings.Fields(text)),
	}
	if err := s.store.CreateSessionSummary(ctx, sum); err != nil {
		return nil, fmt.Errorf("queue: persist session summary: %w", err)
	}
	return sum, nil
}

func buildSessionNarrative(obs []*types.Observation) string {
	var b strings.Builder
	for i := len(obs) - 1; i >= 0; i-- {
		o := obs[i]
		fmt.Fprintf(&b, "- [%s] %s: %s\n", o.Type, o.Title, o.Narrative)
	}
	return b.String()
}

func collectFilesModified(obs []*types.Observation) []string {
	seen := map[string]bool{}
	var out []string
	for _, o := range obs {
		for _, f := range o.FilesModified {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out
}

func collectConcepts(obs []*types.Observation) []string {
	seen := map[string]bool{}
	var out []string
	for _, o := range obs {
		for _, c := range o.Concepts {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}
