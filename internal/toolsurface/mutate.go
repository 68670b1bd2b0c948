package toolsurface

import (
	"context"
	"time"

	"github.com/open-mem/open-mem/internal/types"
)

// CreateArgs is mem-create's argument shape: a caller-authored
// observation (as opposed to one produced by the AI gateway from raw
// tool output).
type CreateArgs struct {
	SessionID string   `json:"sessionId"`
	Type      string   `json:"type"`
	Title     string   `json:"title"`
	Subtitle  string   `json:"subtitle,omitempty"`
	Facts     []string `json:"facts,omitempty"`
	Narrative string   `json:"narrative"`
	Concepts  []string `json:"concepts,omitempty"`
	FilesRead     []string `json:"filesRead,omitempty"`
	FilesModified []string `json:"filesModified,omitempty"`
	Importance    int      `json:"importance,omitempty"`
}

func (h *Handler) memCreate(ctx context.Context, argsJSON []byte) Response {
	var args CreateArgs
	if err := decodeArgs(argsJSON, &args); err != nil {
		return fail(CodeValidation, "invalid mem-create arguments: "+err.Error())
	}
	if args.SessionID == "" {
		return fail(CodeValidation, "sessionId is required")
	}

	obs := &types.Observation{
		SessionID: args.SessionID,
		Type:      types.ObservationType(args.Type),
		Title:     args.Title,
		Subtitle:  args.Subtitle,
		Facts:     args.Facts,
		Narrative: args.Narrative,
		Concepts:  args.Concepts,
		FilesRead:     args.FilesRead,
		FilesModified: args.FilesModified,
		Importance:    args.Importance,
	}
	if err := h.Store.CreateObservation(ctx, obs); err != nil {
		return classify(err)
	}
	return ok(map[string]any{"observation": obs})
}

// ReviseArgs is mem-revise's argument shape: the original observation is
// superseded by a newly created one carrying the revised content, per
// spec.md §3's SupersededBy chain rather than an in-place update.
type ReviseArgs struct {
	ID        string   `json:"id"`
	Title     string   `json:"title,omitempty"`
	Subtitle  string   `json:"subtitle,omitempty"`
	Facts     []string `json:"facts,omitempty"`
	Narrative string   `json:"narrative,omitempty"`
	Concepts  []string `json:"concepts,omitempty"`
	Importance int     `json:"importance,omitempty"`
}

func (h *Handler) memRevise(ctx context.Context, argsJSON []byte) Response {
	var args ReviseArgs
	if err := decodeArgs(argsJSON, &args); err != nil {
		return fail(CodeValidation, "invalid mem-revise arguments: "+err.Error())
	}
	if args.ID == "" {
		return fail(CodeValidation, "id is required")
	}

	original, err := h.Store.GetObservation(ctx, args.ID)
	if err != nil {
		return classify(err)
	}
	if !original.IsCurrent() {
		return fail(CodeConflict, "observation is already superseded or removed")
	}

	revised := *original
	revised.ID = ""
	revised.CreatedAt = time.Time{}
	revised.SupersededBy = nil
	revised.SupersededAt = nil
	revised.DeletedAt = nil
	if args.Title != "" {
		revised.Title = args.Title
	}
	if args.Subtitle != "" {
		revised.Subtitle = args.Subtitle
	}
	if args.Facts != nil {
		revised.Facts = args.Facts
	}
	if args.Narrative != "" {
		revised.Narrative = args.Narrative
	}
	if args.Concepts != nil {
		revised.Concepts = args.Concepts
	}
	if args.Importance != 0 {
		revised.Importance = args.Importance
	}

	if err := h.Store.CreateObservation(ctx, &revised); err != nil {
		return classify(err)
	}
	if err := h.Store.SupersedeObservation(ctx, original.ID, revised.ID); err != nil {
		return classify(err)
	}
	return ok(map[string]any{"observation": &revised, "supersedes": original.ID})
}

// RemoveArgs is mem-remove's argument shape: a soft delete (tombstone),
// never a hard delete, per spec.md §3.
type RemoveArgs struct {
	ID string `json:"id"`
}

func (h *Handler) memRemove(ctx context.Context, argsJSON []byte) Response {
	var args RemoveArgs
	if err := decodeArgs(argsJSON, &args); err != nil {
		return fail(CodeValidation, "invalid mem-remove arguments: "+err.Error())
	}
	if args.ID == "" {
		return fail(CodeValidation, "id is required")
	}
	if err := h.Store.SoftDeleteObservation(ctx, args.ID); err != nil {
		return classify(err)
	}
	return ok(map[string]any{"id": args.ID, "removed": true})
}
