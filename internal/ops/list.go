package ops

import (
	"database/sql"

	"github.com/Ghasak/nvimTimeMachine.v2/internal/capsule"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/errors"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/journal"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/store"
)

// History limits
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 500
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	CapsuleDir string
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Dir      string            `json:"dir"`
	Capsules []capsule.Capsule `json:"capsules"`
}

// List returns the capsules in the capsule directory, oldest first. A
// missing directory lists as empty and is not created.
func List(input ListInput) (*ListOutput, error) {
	if input.CapsuleDir == "" {
		return nil, errors.NewInvalidRequest("capsule directory must not be empty")
	}

	out := &ListOutput{Dir: input.CapsuleDir, Capsules: []capsule.Capsule{}}

	s := store.New(input.CapsuleDir)
	if !s.Exists() {
		return out, nil
	}
	listing, err := s.List()
	if err != nil {
		return nil, err
	}
	out.Capsules = listing
	return out, nil
}

// HistoryInput contains parameters for the History operation.
type HistoryInput struct {
	Limit int // default: 20, max: 500
}

// HistoryOutput contains the result of the History operation.
type HistoryOutput struct {
	Events []journal.Event `json:"events"`
}

// History returns journal events, most recent first.
func History(database *sql.DB, input HistoryInput) (*HistoryOutput, error) {
	if database == nil {
		return nil, errors.NewInvalidRequest("journal is not available")
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	events, err := journal.List(database, limit)
	if err != nil {
		return nil, errors.NewIO("read", "journal", err)
	}
	return &HistoryOutput{Events: events}, nil
}
