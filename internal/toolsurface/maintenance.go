package toolsurface

import (
	"context"
	"fmt"

	"github.com/open-mem/open-mem/internal/retention"
)

// MaintenanceArgs is mem-maintenance's argument shape.
type MaintenanceArgs struct {
	Action  string `json:"action"` // folderContextDryRun | folderContextClean | folderContextPurge | folderContextRebuild
	MaxDepth int   `json:"maxDepth,omitempty"`
}

var maintenanceActions = map[string]retention.FolderContextAction{
	"folderContextDryRun":  retention.ActionDryRun,
	"folderContextClean":   retention.ActionClean,
	"folderContextPurge":   retention.ActionPurge,
	"folderContextRebuild": retention.ActionRebuild,
}

func (h *Handler) memMaintenance(ctx context.Context, argsJSON []byte) Response {
	var args MaintenanceArgs
	if err := decodeArgs(argsJSON, &args); err != nil {
		return fail(CodeValidation, "invalid mem-maintenance arguments: "+err.Error())
	}
	action, known := maintenanceActions[args.Action]
	if !known {
		return fail(CodeValidation, fmt.Sprintf("unknown maintenance action %q", args.Action))
	}
	maxDepth := args.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 3
	}

	result, err := retention.RunFolderContext(ctx, h.Store, h.ProjectRoot, maxDepth, action)
	if err != nil {
		return fail(CodeInternal, "maintenance failed: "+err.Error())
	}
	return ok(map[string]any{"result": result})
}
