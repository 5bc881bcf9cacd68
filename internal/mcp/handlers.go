package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Ghasak/nvimTimeMachine.v2/internal/capsule"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/config"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/errors"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/logging"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/ops"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/prompt"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	root  capsule.RootContext
	db    *sql.DB
	cfg   *config.Config
	log   *slog.Logger
	paths ops.Paths
}

// NewHandlers creates a new Handlers instance. db may be nil when the
// journal is unavailable.
func NewHandlers(root capsule.RootContext, db *sql.DB, cfg *config.Config, log *slog.Logger) *Handlers {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Handlers{
		root:  root,
		db:    db,
		cfg:   cfg,
		log:   logging.OrDiscard(log),
		paths: ops.ResolvePaths(root, cfg),
	}
}

// RestoreRequest represents the arguments for restore.
type RestoreRequest struct {
	Index int    `json:"index"`
	Mode  string `json:"mode,omitempty"`
}

// HistoryRequest represents the arguments for history.
type HistoryRequest struct {
	Limit int `json:"limit,omitempty"`
}

// ListedCapsule is a capsule with its 1-based selection index.
type ListedCapsule struct {
	Index int `json:"index"`
	capsule.Capsule
}

// ListResponse is the capsule_list result.
type ListResponse struct {
	Dir      string          `json:"dir"`
	Capsules []ListedCapsule `json:"capsules"`
}

// HandleList handles the list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := ops.List(ops.ListInput{CapsuleDir: h.paths.CapsuleDir})
	if err != nil {
		return errorResult(err), nil
	}

	resp := ListResponse{Dir: out.Dir, Capsules: make([]ListedCapsule, len(out.Capsules))}
	for i, c := range out.Capsules {
		resp.Capsules[i] = ListedCapsule{Index: i + 1, Capsule: c}
	}
	return successResult(resp)
}

// HandleCreate handles the create tool call.
func (h *Handlers) HandleCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := ops.Build(ops.BuildInput{
		Sources:    h.paths.Sources,
		CapsuleDir: h.paths.CapsuleDir,
		App:        h.paths.App,
		Log:        h.log,
		Journal:    h.db,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

// HandleRestore handles the restore tool call.
func (h *Handlers) HandleRestore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RestoreRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	if input.Index < 1 {
		return errorResult(errors.NewInvalidRequest("index must be 1 or greater")), nil
	}

	var byRename bool
	switch input.Mode {
	case "", ops.ModeRename:
		byRename = true
	case ops.ModeDelete:
		byRename = false
	default:
		return errorResult(errors.NewInvalidRequest(fmt.Sprintf("mode must be %q or %q", ops.ModeRename, ops.ModeDelete))), nil
	}

	sel := &prompt.Scripted{Choice: input.Index - 1, Answer: byRename}
	out, err := ops.SelectAndRestore(h.paths.CapsuleDir, sel, ops.RestoreInput{
		Targets: h.paths.Sources,
		Log:     h.log,
		Journal: h.db,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

// HandleHistory handles the history tool call.
func (h *Handlers) HandleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	out, err := ops.History(h.db, ops.HistoryInput{Limit: input.Limit})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

// errorResult creates an error result from a CapsuleError.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var cErr *errors.CapsuleError
	if stderrors.As(err, &cErr) {
		message := cErr.Message
		if err != error(cErr) {
			// keep wrapper context
			message = err.Error()
		}
		errorObj := map[string]any{
			"code":    cErr.Code,
			"message": message,
		}
		if cErr.Details != nil {
			errorObj["details"] = cErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates a success result with JSON content.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
