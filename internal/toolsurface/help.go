package toolsurface

// ToolDescription documents one tool in mem-help's response.
type ToolDescription struct {
	Name        string `json:"name"`
	Summary     string `json:"summary"`
	ArgsExample string `json:"argsExample"`
}

var toolDescriptions = []ToolDescription{
	{"mem-find", "Hybrid keyword+semantic search over observations.", `{"query":"sqlite migration","scope":"project","limit":10}`},
	{"mem-history", "Chronological timeline of observations, optionally anchored on a relative date.", `{"anchor":"yesterday","depthBefore":1,"limit":50}`},
	{"mem-get", "Fetch observations by ID.", `{"ids":["obs-123"]}`},
	{"mem-create", "Record a new observation directly, bypassing AI compression.", `{"sessionId":"sess-1","type":"decision","title":"...","narrative":"..."}`},
	{"mem-revise", "Supersede an observation with revised content.", `{"id":"obs-123","narrative":"updated narrative"}`},
	{"mem-remove", "Tombstone an observation (soft delete).", `{"id":"obs-123"}`},
	{"mem-export", "Export all sessions/observations/summaries as a portable JSON envelope.", `{}`},
	{"mem-import", "Import a previously exported envelope.", `{"export":{...},"mode":"skip"}`},
	{"mem-maintenance", "Run folder-context artifact maintenance.", `{"action":"folderContextRebuild"}`},
	{"mem-help", "List available tools and their argument shapes.", `{}`},
}

func (h *Handler) memHelp() Response {
	return ok(map[string]any{"tools": toolDescriptions})
}
