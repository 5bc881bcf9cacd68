package ops

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Ghasak/nvimTimeMachine.v2/internal/archive"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/capsule"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/errors"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/journal"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/logging"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/progress"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/prompt"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/store"
)

// Prompt titles used by the interactive restore.
const (
	SelectTitle  = "Select a capsule to restore"
	ConfirmTitle = "Backup existing Neovim directories (rename with timestamp)?"
)

// RestoreInput contains parameters for the Restore operation.
type RestoreInput struct {
	Capsule          capsule.Capsule
	Targets          capsule.SourceSet
	DisplaceByRename bool
	Now              func() time.Time // optional, default time.Now
	Progress         progress.Sink    // optional
	Log              *slog.Logger     // optional
	Journal          *sql.DB          // optional
}

// RestoreOutput contains the result of the Restore operation.
type RestoreOutput struct {
	Capsule   capsule.Capsule `json:"capsule"`
	Mode      string          `json:"mode"`
	Displaced []Displacement  `json:"displaced"`
	Entries   int             `json:"entries"`
	Files     int             `json:"files"`
	Bytes     int64           `json:"bytes"`
}

// Restore displaces the target directories and extracts the capsule over
// their common root. The capsule is opened and every entry name checked
// before anything on disk changes. Later failures leave the displaced
// directories and any extracted files as they are.
func Restore(input RestoreInput) (*RestoreOutput, error) {
	log := logging.OrDiscard(input.Log)
	prog := sink(input.Progress)

	if len(input.Targets) == 0 {
		return nil, errors.NewInvalidRequest("no target directories")
	}
	if input.Capsule.Path == "" {
		return nil, errors.NewInvalidRequest("no capsule selected")
	}

	path := input.Capsule.Path
	r, err := archive.Open(path)
	if err != nil {
		return nil, errors.NewArchive(path, err)
	}
	defer r.Close()

	for _, err := range r.Entries() {
		if err != nil {
			return nil, unsafeEntry(err)
		}
	}

	now := clock(input.Now)
	displaced, err := Displace(input.Targets, input.DisplaceByRename, now)
	for _, d := range displaced {
		log.Info("displaced target", "target", d.Target, "backup", d.Backup, "removed", d.Removed)
	}
	if err != nil {
		return nil, err
	}

	out := &RestoreOutput{
		Capsule:   input.Capsule,
		Mode:      ModeName(input.DisplaceByRename),
		Displaced: displaced,
	}

	x := &extractor{
		root: input.Targets.Root(),
		path: path,
		log:  log,
	}
	prog.Start(r.Len())
	for e, err := range r.Entries() {
		if err != nil {
			return nil, unsafeEntry(err)
		}
		n, err := x.extract(e)
		if err != nil {
			return nil, err
		}
		out.Entries++
		if !e.IsDir {
			out.Files++
			out.Bytes += n
		}
		prog.Advance(1)
	}
	prog.Finish("Restore complete: " + input.Capsule.Name)
	log.Info("capsule restored", "capsule", input.Capsule.Name, "entries", out.Entries, "files", out.Files)

	recordEvent(input.Journal, log, &journal.Event{
		Kind:        journal.KindRestore,
		Capsule:     input.Capsule.Name,
		CapsulePath: path,
		Files:       out.Files,
		Entries:     out.Entries,
		Bytes:       out.Bytes,
		Mode:        out.Mode,
		Targets:     input.Targets,
		CreatedAt:   now,
	})

	return out, nil
}

func unsafeEntry(err error) error {
	return &errors.CapsuleError{
		Code:    errors.ErrUnsafePath,
		Message: err.Error(),
		Err:     err,
	}
}

// extractor writes archive entries below root.
type extractor struct {
	root string
	path string
	log  *slog.Logger
}

// dest resolves an entry name below the root, refusing anything that would
// land outside it.
func (x *extractor) dest(name string) (string, error) {
	rel := filepath.FromSlash(name)
	if !filepath.IsLocal(rel) {
		return "", errors.NewUnsafePath(name)
	}
	dest := filepath.Join(x.root, rel)
	if !capsule.Within(x.root, dest) {
		return "", errors.NewUnsafePath(name)
	}
	return dest, nil
}

func (x *extractor) extract(e *archive.Entry) (int64, error) {
	dest, err := x.dest(e.Name)
	if err != nil {
		return 0, err
	}

	if e.IsDir {
		if err := os.MkdirAll(dest, permOr(e.Mode, defaultDirPerm)); err != nil {
			return 0, errors.NewIO("create directory", dest, err)
		}
		return 0, nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), defaultDirPerm); err != nil {
		return 0, errors.NewIO("create directory", filepath.Dir(dest), err)
	}

	src, err := e.Open()
	if err != nil {
		return 0, errors.NewArchive(x.path, fmt.Errorf("entry %s: %w", e.Name, err))
	}
	defer src.Close()

	dst, err := openFileNoFollow(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, permOr(e.Mode, defaultFilePerm))
	if err != nil {
		if errors.Is(err, errors.ErrUnsafePath) {
			return 0, err
		}
		return 0, errors.NewIO("create", dest, err)
	}

	n, err := io.Copy(dst, src)
	if err != nil {
		dst.Close()
		return n, errors.NewArchive(x.path, fmt.Errorf("entry %s: %w", e.Name, err))
	}
	if err := dst.Close(); err != nil {
		return n, errors.NewIO("close", dest, err)
	}
	x.log.Debug("restored file", "path", dest, "bytes", n)
	return n, nil
}

// SelectAndRestore is the interactive restore: list the capsule directory,
// let sel pick a capsule and choose rename or delete, then Restore. It never
// creates the capsule directory.
func SelectAndRestore(capsuleDir string, sel prompt.Selector, input RestoreInput) (*RestoreOutput, error) {
	s := store.New(capsuleDir)
	if !s.Exists() {
		return nil, errors.NewNoCapsules(capsuleDir)
	}
	listing, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(listing) == 0 {
		return nil, errors.NewNoCapsules(capsuleDir)
	}

	idx, err := sel.ChooseIndex(SelectTitle, listing.Names())
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(listing) {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("selection %d out of range", idx+1))
	}

	byRename, err := sel.Confirm(ConfirmTitle, true)
	if err != nil {
		return nil, err
	}

	input.Capsule = listing.Resolve(idx)
	input.DisplaceByRename = byRename
	return Restore(input)
}
