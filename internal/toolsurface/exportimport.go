package toolsurface

import (
	"context"

	"github.com/open-mem/open-mem/internal/store"
)

// ExportArgs is mem-export's argument shape.
type ExportArgs struct {
	ProjectPath string `json:"projectPath,omitempty"`
}

func (h *Handler) memExport(ctx context.Context, argsJSON []byte) Response {
	var args ExportArgs
	if err := decodeArgs(argsJSON, &args); err != nil {
		return fail(CodeValidation, "invalid mem-export arguments: "+err.Error())
	}
	projectPath := args.ProjectPath
	if projectPath == "" {
		projectPath = h.ProjectRoot
	}

	exp, err := h.Store.ExportAll(ctx, projectPath)
	if err != nil {
		return fail(CodeInternal, "export failed: "+err.Error())
	}
	return ok(map[string]any{"export": exp})
}

// ImportArgs is mem-import's argument shape: the export envelope plus a
// conflict mode for IDs that already exist locally.
type ImportArgs struct {
	Export *store.Export `json:"export"`
	Mode   string        `json:"mode,omitempty"` // skip | overwrite
}

func (h *Handler) memImport(ctx context.Context, argsJSON []byte) Response {
	var args ImportArgs
	if err := decodeArgs(argsJSON, &args); err != nil {
		return fail(CodeValidation, "invalid mem-import arguments: "+err.Error())
	}
	if args.Export == nil {
		return fail(CodeValidation, "export is required")
	}
	mode := store.ImportMode(args.Mode)
	if mode == "" {
		mode = store.ImportSkipDuplicates
	}
	if mode != store.ImportSkipDuplicates && mode != store.ImportOverwrite {
		return fail(CodeValidation, "mode must be skip or overwrite")
	}

	res, err := h.Store.ImportAll(ctx, args.Export, mode)
	if err != nil {
		return fail(CodeInternal, "import failed: "+err.Error())
	}
	return ok(map[string]any{"result": res})
}
