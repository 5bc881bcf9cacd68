package ops

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/Ghasak/nvimTimeMachine.v2/internal/capsule"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/errors"
)

// Displacement describes what happened to one existing target directory.
type Displacement struct {
	Target  string `json:"target"`
	Backup  string `json:"backup,omitempty"` // set when renamed
	Removed bool   `json:"removed,omitempty"`
}

// BackupPath returns the sibling path target is renamed to at time now:
// the original name with the timestamp appended.
func BackupPath(target string, now time.Time) string {
	target = filepath.Clean(target)
	return filepath.Join(filepath.Dir(target), filepath.Base(target)+now.Format(capsule.TimestampLayout))
}

// Displace moves every existing target out of the way, either by renaming it
// to a timestamped sibling or by deleting it. Missing targets are skipped.
// Targets are handled in order and the first failure stops the pass; targets
// already displaced stay displaced. The returned slice always lists what was
// done.
func Displace(targets []string, byRename bool, now time.Time) ([]Displacement, error) {
	done := []Displacement{}
	for _, target := range targets {
		target = filepath.Clean(target)
		if _, err := os.Lstat(target); err != nil {
			if stderrors.Is(err, fs.ErrNotExist) {
				continue
			}
			return done, errors.NewIO("stat", target, err)
		}

		if byRename {
			backup := BackupPath(target, now)
			if _, err := os.Lstat(backup); err == nil {
				return done, errors.NewIO("rename", target, fs.ErrExist)
			}
			if err := os.Rename(target, backup); err != nil {
				return done, errors.NewIO("rename", target, err)
			}
			done = append(done, Displacement{Target: target, Backup: backup})
			continue
		}

		if err := os.RemoveAll(target); err != nil {
			return done, errors.NewIO("remove", target, err)
		}
		done = append(done, Displacement{Target: target, Removed: true})
	}
	return done, nil
}
