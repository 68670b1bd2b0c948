package toolsurface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/open-mem/open-mem/internal/retrieval"
	"github.com/open-mem/open-mem/internal/store"
)

// Handler dispatches tool calls against one project's store and
// retrieval engine, plus an optional user-scope store for cross-project
// observations.
type Handler struct {
	Store       *store.Store
	UserStore   *store.Store
	Engine      *retrieval.Engine
	ProjectRoot string
}

// Dispatch deserializes argsJSON for op and runs it, returning the
// response envelope. Unknown ops return VALIDATION_ERROR rather than
// panicking, since argsJSON comes from the host, not from trusted code.
func (h *Handler) Dispatch(ctx context.Context, op string, argsJSON []byte) Response {
	switch op {
	case "mem-find":
		return h.memFind(ctx, argsJSON)
	case "mem-history":
		return h.memHistory(ctx, argsJSON)
	case "mem-get":
		return h.memGet(ctx, argsJSON)
	case "mem-create":
		return h.memCreate(ctx, argsJSON)
	case "mem-revise":
		return h.memRevise(ctx, argsJSON)
	case "mem-remove":
		return h.memRemove(ctx, argsJSON)
	case "mem-export":
		return h.memExport(ctx, argsJSON)
	case "mem-import":
		return h.memImport(ctx, argsJSON)
	case "mem-maintenance":
		return h.memMaintenance(ctx, argsJSON)
	case "mem-help":
		return h.memHelp()
	default:
		return fail(CodeValidation, fmt.Sprintf("unknown tool %q", op))
	}
}

func decodeArgs(argsJSON []byte, dst any) error {
	if len(argsJSON) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(argsJSON))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// classify maps a store sentinel error to the tool-surface code the host
// should act on: validation/conflict responses are recoverable by the
// caller adjusting its request, NOT_FOUND means the ID doesn't exist, and
// anything else is an internal error.
func classify(err error) Response {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fail(CodeNotFound, err.Error())
	case errors.Is(err, store.ErrValidation):
		return fail(CodeValidation, err.Error())
	case errors.Is(err, store.ErrConflict):
		return fail(CodeConflict, err.Error())
	default:
		return fail(CodeInternal, err.Error())
	}
}
