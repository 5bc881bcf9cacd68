package journal

import (
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Kind distinguishes journal events.
type Kind string

const (
	KindBuild   Kind = "build"
	KindRestore Kind = "restore"
)

// Event is one recorded build or restore.
type Event struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Capsule     string    `json:"capsule"`
	CapsulePath string    `json:"capsule_path"`
	Files       int       `json:"files,omitempty"`
	Entries     int       `json:"entries"`
	Bytes       int64     `json:"bytes,omitempty"`
	Mode        string    `json:"mode,omitempty"` // restore only: rename or delete
	Targets     []string  `json:"targets,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewID returns a fresh ULID string.
func NewID(t time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// Record stores ev, filling ID and CreatedAt when unset.
func Record(db *sql.DB, ev *Event) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	if ev.ID == "" {
		ev.ID = NewID(ev.CreatedAt)
	}

	var targetsJSON sql.NullString
	if len(ev.Targets) > 0 {
		data, err := json.Marshal(ev.Targets)
		if err != nil {
			return err
		}
		targetsJSON = sql.NullString{String: string(data), Valid: true}
	}

	mode := sql.NullString{String: ev.Mode, Valid: ev.Mode != ""}

	_, err := db.Exec(`
		INSERT INTO events (
			id, kind, capsule, capsule_path, files, entries, bytes,
			mode, targets_json, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ev.ID, string(ev.Kind), ev.Capsule, ev.CapsulePath, ev.Files, ev.Entries, ev.Bytes,
		mode, targetsJSON, ev.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("recording %s event: %w", ev.Kind, err)
	}
	return nil
}

// List returns up to limit events, most recent first. A limit <= 0 returns all.
func List(db *sql.DB, limit int) ([]Event, error) {
	query := `
		SELECT id, kind, capsule, capsule_path, files, entries, bytes,
			mode, targets_json, created_at
		FROM events
		ORDER BY created_at DESC, rowid DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var (
			ev          Event
			kind        string
			mode        sql.NullString
			targetsJSON sql.NullString
			createdAt   int64
		)
		if err := rows.Scan(
			&ev.ID, &kind, &ev.Capsule, &ev.CapsulePath, &ev.Files, &ev.Entries, &ev.Bytes,
			&mode, &targetsJSON, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		ev.Kind = Kind(kind)
		ev.Mode = mode.String
		ev.CreatedAt = time.UnixMilli(createdAt)
		if targetsJSON.Valid {
			if err := json.Unmarshal([]byte(targetsJSON.String), &ev.Targets); err != nil {
				return nil, fmt.Errorf("decoding targets of %s: %w", ev.ID, err)
			}
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}

	return events, nil
}
