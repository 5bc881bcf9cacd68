package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Ghasak/nvimTimeMachine.v2/internal/capsule"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/config"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/errors"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/journal"
)

// testSetup creates a fake home with a journal and default config.
func testSetup(t *testing.T) (capsule.RootContext, *sql.DB, *config.Config, func()) {
	t.Helper()

	root := capsule.RootContext{Home: t.TempDir()}
	database, err := journal.Init(root.StateDir())
	if err != nil {
		t.Fatalf("failed to init journal: %v", err)
	}

	cleanup := func() {
		database.Close()
	}

	return root, database, config.DefaultConfig(), cleanup
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func TestHandleList_Empty(t *testing.T) {
	root, database, cfg, cleanup := testSetup(t)
	defer cleanup()

	h := NewHandlers(root, database, cfg, nil)
	result, err := h.HandleList(context.Background(), makeRequest(nil))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}

	output := parseOutput(t, result)
	capsules, ok := output["capsules"].([]any)
	if !ok {
		t.Fatalf("capsules missing from output: %v", output)
	}
	if len(capsules) != 0 {
		t.Errorf("len(capsules) = %d, want 0", len(capsules))
	}
	if _, err := os.Stat(root.Resolve(cfg.CapsuleDir)); !os.IsNotExist(err) {
		t.Errorf("listing must not create the capsule directory")
	}
}

func TestHandleCreateListRestore(t *testing.T) {
	root, database, cfg, cleanup := testSetup(t)
	defer cleanup()

	h := NewHandlers(root, database, cfg, nil)
	ctx := context.Background()

	configDir := filepath.Join(root.Home, ".config", "nvim")
	writeFile(t, filepath.Join(configDir, "init.lua"), "vim.o.number = true")

	createResult, err := h.HandleCreate(ctx, makeRequest(nil))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	created := parseOutput(t, createResult)
	if created["files"].(float64) != 1 {
		t.Errorf("files = %v, want 1", created["files"])
	}

	listResult, _ := h.HandleList(ctx, makeRequest(nil))
	listed := parseOutput(t, listResult)
	capsules := listed["capsules"].([]any)
	if len(capsules) != 1 {
		t.Fatalf("len(capsules) = %d, want 1", len(capsules))
	}
	first := capsules[0].(map[string]any)
	if first["index"].(float64) != 1 {
		t.Errorf("index = %v, want 1", first["index"])
	}
	if !strings.HasPrefix(first["name"].(string), "nvim_backup_") {
		t.Errorf("name = %v", first["name"])
	}

	// Drift the live config, then restore with delete displacement.
	writeFile(t, filepath.Join(configDir, "init.lua"), "broken")
	writeFile(t, filepath.Join(configDir, "extra.lua"), "extra")

	restoreResult, err := h.HandleRestore(ctx, makeRequest(map[string]any{"index": 1, "mode": "delete"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	restored := parseOutput(t, restoreResult)
	if restored["mode"] != "delete" {
		t.Errorf("mode = %v, want delete", restored["mode"])
	}

	data, err := os.ReadFile(filepath.Join(configDir, "init.lua"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "vim.o.number = true" {
		t.Errorf("init.lua = %q", data)
	}
	if _, err := os.Stat(filepath.Join(configDir, "extra.lua")); !os.IsNotExist(err) {
		t.Errorf("extra.lua should be gone after delete displacement")
	}

	historyResult, _ := h.HandleHistory(ctx, makeRequest(map[string]any{"limit": 10}))
	history := parseOutput(t, historyResult)
	events := history["events"].([]any)
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	if events[0].(map[string]any)["kind"] != "restore" {
		t.Errorf("events[0].kind = %v, want restore", events[0].(map[string]any)["kind"])
	}
}

func TestHandleRestore_Errors(t *testing.T) {
	root, database, cfg, cleanup := testSetup(t)
	defer cleanup()

	h := NewHandlers(root, database, cfg, nil)
	ctx := context.Background()

	tests := []struct {
		name      string
		args      map[string]any
		errorCode string
	}{
		{
			name:      "missing index",
			args:      map[string]any{},
			errorCode: "INVALID_REQUEST",
		},
		{
			name:      "bad mode",
			args:      map[string]any{"index": 1, "mode": "shred"},
			errorCode: "INVALID_REQUEST",
		},
		{
			name:      "index not a number",
			args:      map[string]any{"index": "first"},
			errorCode: "INVALID_REQUEST",
		},
		{
			name:      "no capsules yet",
			args:      map[string]any{"index": 1},
			errorCode: "NO_CAPSULES",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleRestore(ctx, makeRequest(tt.args))
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}
			if !result.IsError {
				t.Fatalf("expected error result, got success")
			}
			assertErrorCode(t, result, tt.errorCode)
		})
	}
}

func TestHandleRestore_IndexOutOfRange(t *testing.T) {
	root, database, cfg, cleanup := testSetup(t)
	defer cleanup()

	h := NewHandlers(root, database, cfg, nil)
	ctx := context.Background()

	if r, _ := h.HandleCreate(ctx, makeRequest(nil)); r.IsError {
		t.Fatalf("create failed: %s", extractErrorMessage(r))
	}

	result, _ := h.HandleRestore(ctx, makeRequest(map[string]any{"index": 2}))
	if !result.IsError {
		t.Fatalf("expected error result, got success")
	}
	assertErrorCode(t, result, "INVALID_REQUEST")
}

func TestHandleHistory_NoJournal(t *testing.T) {
	root, _, cfg, cleanup := testSetup(t)
	defer cleanup()

	h := NewHandlers(root, nil, cfg, nil)
	result, _ := h.HandleHistory(context.Background(), makeRequest(nil))
	if !result.IsError {
		t.Fatalf("expected error result, got success")
	}
	assertErrorCode(t, result, "INVALID_REQUEST")
}

func TestServerRegistration(t *testing.T) {
	root, database, cfg, cleanup := testSetup(t)
	defer cleanup()

	s := NewServer(root, database, cfg, nil, "test")
	tools := s.ListTools()

	expectedTools := []string{"capsule_list", "capsule_create", "capsule_restore", "capsule_history"}
	if len(tools) != len(expectedTools) {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(expectedTools))
	}
	for _, name := range expectedTools {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing registered tool: %s", name)
		}
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	root, database, cfg, cleanup := testSetup(t)
	defer cleanup()

	cfg.DisabledTools = []string{"capsule_restore", "capsule_restore", "not_a_tool"}
	tools := NewServer(root, database, cfg, nil, "test").ListTools()

	if len(tools) != 3 {
		t.Errorf("registered tool count = %d, want 3", len(tools))
	}
	if _, ok := tools["capsule_restore"]; ok {
		t.Error("disabled tool capsule_restore should not be registered")
	}
}

func TestServerRegistration_AllToolsDisabled(t *testing.T) {
	root, database, cfg, cleanup := testSetup(t)
	defer cleanup()

	cfg.DisabledTools = AllToolNames()
	tools := NewServer(root, database, cfg, nil, "test").ListTools()
	if len(tools) != 0 {
		t.Errorf("registered tool count = %d, want 0 (all disabled)", len(tools))
	}
}

func TestValidateDisabledTools(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		wantLen int
	}{
		{name: "all valid", input: []string{"capsule_list", "capsule_history"}, wantLen: 0},
		{name: "one unknown", input: []string{"capsule_list", "capsule_purge"}, wantLen: 1},
		{name: "empty list", input: []string{}, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateDisabledTools(tt.input); len(got) != tt.wantLen {
				t.Errorf("ValidateDisabledTools() returned %d unknown, want %d", len(got), tt.wantLen)
			}
		})
	}
}

func TestErrorResult_WrappedErrorPreservesContext(t *testing.T) {
	wrapped := fmt.Errorf("restore %s: %w", "nvim_backup_20240101120000.zip", errors.NewUnsafePath("../x"))

	r := errorResult(wrapped)
	if !r.IsError {
		t.Fatal("expected IsError=true")
	}
	errObj := errorObject(t, r)
	if errObj["code"] != string(errors.ErrUnsafePath) {
		t.Errorf("code=%v, want %v", errObj["code"], errors.ErrUnsafePath)
	}
	if msg := errObj["message"].(string); !strings.Contains(msg, "restore nvim_backup_") {
		t.Errorf("message should keep wrapper context, got: %s", msg)
	}
	if _, ok := errObj["details"]; !ok {
		t.Error("expected details to be included")
	}
}

func TestErrorResult_UnknownErrorIsInternal(t *testing.T) {
	errObj := errorObject(t, errorResult(fmt.Errorf("open /secret: permission denied")))
	if errObj["code"] != "INTERNAL" {
		t.Fatalf("code=%v, want INTERNAL", errObj["code"])
	}
	if strings.Contains(errObj["message"].(string), "/secret") {
		t.Fatal("internal errors must not leak paths")
	}
}

// Helper functions

func errorObject(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	errObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Fatalf("no error object in payload")
	}
	return errObj
}

// parseOutput extracts and unmarshals the JSON output from an MCP result.
func parseOutput(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %v", extractErrorMessage(result))
	}
	var output map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &output); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return output
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()
	if code := errorObject(t, result)["code"]; code != expectedCode {
		t.Errorf("error code = %v, want %v", code, expectedCode)
	}
}

func extractErrorMessage(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return "<no content>"
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return "<not text content>"
	}
	return text.Text
}
