package mcp

import "github.com/mark3labs/mcp-go/mcp"

var listToolDef = mcp.NewTool("capsule_list",
	mcp.WithDescription("List Neovim capsules in the capsule directory, oldest first, with 1-based indexes."),
)

var createToolDef = mcp.NewTool("capsule_create",
	mcp.WithDescription("Archive the Neovim data, config and cache directories into a new timestamped capsule."),
)

var restoreToolDef = mcp.NewTool("capsule_restore",
	mcp.WithDescription("Restore a capsule over the Neovim directories. Existing directories are renamed with a timestamp suffix or deleted first."),
	mcp.WithNumber("index",
		mcp.Required(),
		mcp.Description("1-based index of the capsule as shown by capsule_list"),
	),
	mcp.WithString("mode",
		mcp.Description("How to displace existing directories: rename (default) or delete"),
		mcp.Enum("rename", "delete"),
	),
)

var historyToolDef = mcp.NewTool("capsule_history",
	mcp.WithDescription("Show recent capsule builds and restores, most recent first."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of events (default 20, max 500)"),
	),
)
