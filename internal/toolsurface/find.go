package toolsurface

import (
	"context"
	"time"

	"github.com/open-mem/open-mem/internal/retrieval"
	"github.com/open-mem/open-mem/internal/types"
)

// FindArgs is mem-find's argument shape.
type FindArgs struct {
	Query string   `json:"query"`
	Types []string `json:"types,omitempty"`
	Limit int      `json:"limit,omitempty"`
	Scope string   `json:"scope,omitempty"` // project | user | all
}

func (h *Handler) memFind(ctx context.Context, argsJSON []byte) Response {
	var args FindArgs
	if err := decodeArgs(argsJSON, &args); err != nil {
		return fail(CodeValidation, "invalid mem-find arguments: "+err.Error())
	}
	if args.Query == "" {
		return fail(CodeValidation, "query is required")
	}
	if args.Scope == "" {
		args.Scope = "project"
	}
	if args.Scope != "project" && args.Scope != "user" && args.Scope != "all" {
		return fail(CodeValidation, "scope must be one of project, user, all")
	}
	limit := args.Limit
	if limit <= 0 {
		limit = 20
	}

	filter := types.ObservationFilter{Limit: limit}
	if len(args.Types) == 1 {
		t := types.ObservationType(args.Types[0])
		filter.Type = &t
	}

	results, err := h.Engine.Search(ctx, retrieval.Query{
		Text:         args.Query,
		Strategy:     retrieval.StrategyHybrid,
		Filter:       filter,
		Limit:        limit,
		Rerank:       true,
		GraphAugment: true,
		UserScope:    args.Scope != "project",
	})
	if err != nil {
		return fail(CodeInternal, "search failed: "+err.Error())
	}

	type hit struct {
		Observation *types.Observation `json:"observation"`
		Score       float64            `json:"score"`
	}
	out := make([]hit, len(results))
	for i, r := range results {
		out[i] = hit{Observation: r.Observation, Score: r.Score}
	}

	var userHits []types.UserObservation
	if args.Scope != "project" && h.UserStore != nil {
		crossScope, err := retrieval.SearchUserScope(ctx, h.UserStore, args.Query, limit)
		if err != nil {
			return fail(CodeInternal, "user-scope search failed: "+err.Error())
		}
		for _, cs := range crossScope {
			userHits = append(userHits, *cs.Observation)
		}
	}

	return ok(map[string]any{
		"results":    out,
		"userScope":  userHits,
	})
}

// HistoryArgs is mem-history's argument shape: a timeline view anchored
// either on a session or a natural-language relative date.
type HistoryArgs struct {
	Limit       int    `json:"limit,omitempty"`
	SessionID   string `json:"sessionId,omitempty"`
	Anchor      string `json:"anchor,omitempty"`
	DepthBefore int    `json:"depthBefore,omitempty"`
	DepthAfter  int    `json:"depthAfter,omitempty"`
}

func (h *Handler) memHistory(ctx context.Context, argsJSON []byte) Response {
	var args HistoryArgs
	if err := decodeArgs(argsJSON, &args); err != nil {
		return fail(CodeValidation, "invalid mem-history arguments: "+err.Error())
	}
	limit := args.Limit
	if limit <= 0 {
		limit = 50
	}

	filter := types.ObservationFilter{SessionID: args.SessionID, Limit: limit}

	if args.Anchor != "" {
		anchorTime, err := retrieval.ParseRelativeDate(args.Anchor, time.Now())
		if err != nil {
			return fail(CodeValidation, "could not resolve anchor: "+err.Error())
		}
		if args.DepthBefore > 0 {
			before := anchorTime
			filter.CreatedBefore = &before
		}
		if args.DepthAfter > 0 {
			after := anchorTime
			filter.CreatedAfter = &after
		}
	}

	obs, err := h.Store.SearchObservations(ctx, filter)
	if err != nil {
		return fail(CodeInternal, "history query failed: "+err.Error())
	}
	return ok(map[string]any{"observations": obs})
}

// GetArgs is mem-get's argument shape: direct lookup by ID list.
type GetArgs struct {
	IDs   []string `json:"ids"`
	Limit int      `json:"limit,omitempty"`
}

func (h *Handler) memGet(ctx context.Context, argsJSON []byte) Response {
	var args GetArgs
	if err := decodeArgs(argsJSON, &args); err != nil {
		return fail(CodeValidation, "invalid mem-get arguments: "+err.Error())
	}
	if len(args.IDs) == 0 {
		return fail(CodeValidation, "ids is required")
	}
	limit := args.Limit
	if limit <= 0 {
		limit = len(args.IDs)
	}

	obs, err := h.Store.SearchObservations(ctx, types.ObservationFilter{
		IDs:               args.IDs,
		Limit:             limit,
		IncludeSuperseded: true,
	})
	if err != nil {
		return fail(CodeInternal, "get failed: "+err.Error())
	}
	if len(obs) == 0 {
		return fail(CodeNotFound, "no observations matched the given ids")
	}
	return ok(map[string]any{"observations": obs})
}
