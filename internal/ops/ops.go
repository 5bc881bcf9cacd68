// Package ops implements the capsule operations shared by the CLI and the
// MCP server: build, list, restore and history.
package ops

import (
	"database/sql"
	"log/slog"
	"os"
	"time"

	"github.com/Ghasak/nvimTimeMachine.v2/internal/journal"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/progress"
)

// Default permissions for restored entries that carry none.
const (
	defaultFilePerm os.FileMode = 0o644
	defaultDirPerm  os.FileMode = 0o755
)

// Displacement modes as reported to users and the journal.
const (
	ModeRename = "rename"
	ModeDelete = "delete"
)

// ModeName returns the displacement mode name for byRename.
func ModeName(byRename bool) string {
	if byRename {
		return ModeRename
	}
	return ModeDelete
}

func clock(now func() time.Time) time.Time {
	if now == nil {
		return time.Now()
	}
	return now()
}

func sink(p progress.Sink) progress.Sink {
	if p == nil {
		return progress.Nop{}
	}
	return p
}

// recordEvent appends ev to the journal. Journal failures never fail the
// operation that produced the event.
func recordEvent(db *sql.DB, log *slog.Logger, ev *journal.Event) {
	if db == nil {
		return
	}
	if err := journal.Record(db, ev); err != nil {
		log.Warn("journal write failed", "kind", ev.Kind, "capsule", ev.Capsule, "error", err)
	}
}

func permOr(mode, def os.FileMode) os.FileMode {
	if perm := mode.Perm(); perm != 0 {
		return perm
	}
	return def
}
