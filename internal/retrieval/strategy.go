package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/open-mem/open-mem/internal/gateway"
	"github.com/open-mem/open-mem/internal/store"
	"github.com/open-mem/open-mem/internal/types"
)

// Strategy selects which retrieval paths a Query runs.
type Strategy string

const (
	StrategyFilterOnly Strategy = "filter"
	StrategyKeyword     Strategy = "keyword"
	StrategySemantic    Strategy = "semantic"
	StrategyHybrid      Strategy = "hybrid"
)

// Query is one mem-find request.
type Query struct {
	Text         string
	Strategy     Strategy
	Filter       types.ObservationFilter
	Limit        int
	Rerank       bool
	GraphAugment bool
	UserScope    bool
}

// Engine runs retrieval queries against a project store, optionally an
// embedder for the semantic path and a reranker for result reordering.
type Engine struct {
	store    *store.Store
	embedder gateway.Embedder
	reranker gateway.Reranker
}

// NewEngine builds an Engine. embedder/reranker may be nil, in which case
// the semantic path and LLM rerank are skipped respectively (graceful
// degradation, per spec.md §8).
func NewEngine(st *store.Store, embedder gateway.Embedder, reranker gateway.Reranker) *Engine {
	return &Engine{store: st, embedder: embedder, reranker: reranker}
}

// Result is one retrieved observation with its retrieval metadata.
type Result struct {
	Observation *types.Observation
	Score       float64
}

// Search runs q against the store using the strategy it names, running
// the FTS and vector searches concurrently via errgroup before fusing
// with RRF. It searches the project store only: q.UserScope is not read
// here, and the user-scope search (SearchUserScope) is run separately,
// after Search returns, by mem-find. Grounded on the teacher's
// queries_search.go filter assembly and
// other_examples/.../jalfarocode-engram/internal/mcp/mcp.go's search shape.
func (e *Engine) Search(ctx context.Context, q Query) ([]Result, error) {
	if q.Strategy == StrategyFilterOnly || q.Text == "" {
		obs, err := e.store.SearchObservations(ctx, q.Filter)
		if err != nil {
			return nil, fmt.Errorf("retrieval: filter search: %w", err)
		}
		return toResults(obs, nil), nil
	}

	var (
		ftsResults    []*types.Observation
		vectorResults []store.ScoredID
	)

	g, gctx := errgroup.WithContext(ctx)

	if q.Strategy == StrategyKeyword || q.Strategy == StrategyHybrid {
		g.Go(func() error {
			var err error
			ftsResults, err = e.store.SearchObservationsFTS(gctx, q.Text, effectiveLimit(q.Limit))
			return err
		})
	}
	if (q.Strategy == StrategySemantic || q.Strategy == StrategyHybrid) && e.embedder != nil {
		g.Go(func() error {
			vec, err := e.embedder.Embed(gctx, q.Text)
			if err != nil {
				return nil // graceful degradation: skip semantic path on embed failure
			}
			vectorResults = e.store.SearchByVector(gctx, vec, effectiveLimit(q.Limit))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("retrieval: concurrent search: %w", err)
	}

	ftsIDs := idsOf(ftsResults)
	vectorIDs := idsOfScored(vectorResults)
	fused := FuseRRF(ftsIDs, vectorIDs)

	byID := make(map[string]*types.Observation, len(ftsResults))
	for _, o := range ftsResults {
		byID[o.ID] = o
	}

	seen := make(map[string]bool, len(fused))
	var out []Result
	for _, f := range fused {
		o, ok := byID[f.ID]
		if !ok {
			fetched, err := e.store.GetObservation(ctx, f.ID)
			if err != nil {
				continue
			}
			o = fetched
		}
		out = append(out, Result{Observation: o, Score: f.Score})
		seen[f.ID] = true
	}

	if q.GraphAugment {
		augmentedIDs, err := GraphAugment(ctx, e.store, termsOf(q.Text))
		if err != nil {
			log.Warn().Err(err).Msg("retrieval: graph augmentation failed, continuing without it")
		}
		for _, id := range augmentedIDs {
			if seen[id] {
				continue
			}
			fetched, err := e.store.GetObservation(ctx, id)
			if err != nil {
				continue
			}
			out = append(out, Result{Observation: fetched})
			seen[id] = true
		}
	}

	if q.Rerank {
		out = Rerank(ctx, e.reranker, q.Text, out)
	}

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// termsOf splits query text into candidate noun-phrases for GraphAugment's
// entity lookup: every word of length >= 2, plus every adjacent two-word
// pair, per spec.md's graph-augmentation candidate rule.
func termsOf(text string) []string {
	words := strings.Fields(strings.ToLower(text))
	var terms []string
	for i, w := range words {
		if len(w) >= 2 {
			terms = append(terms, w)
		}
		if i+1 < len(words) {
			terms = append(terms, w+" "+words[i+1])
		}
	}
	return terms
}

func toResults(obs []*types.Observation, scores map[string]float64) []Result {
	out := make([]Result, 0, len(obs))
	for _, o := range obs {
		out = append(out, Result{Observation: o, Score: scores[o.ID]})
	}
	return out
}

func idsOf(obs []*types.Observation) []string {
	out := make([]string, len(obs))
	for i, o := range obs {
		out[i] = o.ID
	}
	return out
}

func idsOfScored(scored []store.ScoredID) []string {
	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = s.ID
	}
	return out
}

func effectiveLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}
