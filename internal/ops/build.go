package ops

import (
	"crypto/rand"
	"database/sql"
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Ghasak/nvimTimeMachine.v2/internal/archive"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/capsule"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/errors"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/journal"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/logging"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/progress"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/walk"
)

// BuildInput contains parameters for the Build operation.
type BuildInput struct {
	Sources    capsule.SourceSet
	CapsuleDir string
	App        string           // name prefix, default "nvim"
	Now        func() time.Time // optional, default time.Now
	Progress   progress.Sink    // optional
	Log        *slog.Logger     // optional
	Journal    *sql.DB          // optional
}

// BuildOutput contains the result of the Build operation.
type BuildOutput struct {
	Capsule capsule.Capsule `json:"capsule"`
	Files   int             `json:"files"`
	Entries int             `json:"entries"`
	Bytes   int64           `json:"bytes"`
}

// Build packs every regular file under the source directories into a new
// capsule. The archive is written to a temp file in the capsule directory
// and renamed into place only once finalized.
func Build(input BuildInput) (*BuildOutput, error) {
	log := logging.OrDiscard(input.Log)
	prog := sink(input.Progress)

	if len(input.Sources) == 0 {
		return nil, errors.NewInvalidRequest("no source directories")
	}
	if input.CapsuleDir == "" {
		return nil, errors.NewInvalidRequest("capsule directory must not be empty")
	}
	app := input.App
	if app == "" {
		app = capsule.DefaultApp
	}

	if err := os.MkdirAll(input.CapsuleDir, 0o755); err != nil {
		return nil, errors.NewIO("create capsule directory", input.CapsuleDir, err)
	}

	now := clock(input.Now)
	name := capsule.FileName(app, now)
	finalPath := filepath.Join(input.CapsuleDir, name)
	tempPath := filepath.Join(input.CapsuleDir, "."+name+"."+tempID(now)+".tmp")

	total := walk.Count(input.Sources...)
	prog.Start(total)
	log.Debug("packing capsule", "capsule", name, "files", total, "root", input.Sources.Root())

	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return nil, errors.NewIO("create temp capsule", tempPath, err)
	}

	// Clean up temp file on failure
	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	p := &packer{
		w:          archive.NewWriter(file),
		root:       input.Sources.Root(),
		capsuleDir: filepath.Clean(input.CapsuleDir),
		log:        log,
		prog:       prog,
	}
	for _, src := range input.Sources {
		if err := p.packSource(filepath.Clean(src)); err != nil {
			return nil, err
		}
	}

	if err := p.w.Close(); err != nil {
		return nil, errors.NewArchive(tempPath, err)
	}
	if err := file.Sync(); err != nil {
		return nil, errors.NewIO("sync temp capsule", tempPath, err)
	}
	// Close before rename (required on Windows; fine elsewhere).
	if err := file.Close(); err != nil {
		return nil, errors.NewIO("close temp capsule", tempPath, err)
	}
	file = nil

	// os.Rename would replace a symlink, but refuse anything unexpected at
	// the final name.
	if info, err := os.Lstat(finalPath); err == nil && !info.Mode().IsRegular() {
		return nil, errors.NewIO("finalize capsule", finalPath, fmt.Errorf("destination exists and is not a regular file"))
	}
	if err := os.Rename(tempPath, finalPath); err != nil {
		return nil, errors.NewIO("finalize capsule", finalPath, err)
	}
	success = true

	info, err := os.Stat(finalPath)
	if err != nil {
		return nil, errors.NewIO("stat capsule", finalPath, err)
	}

	out := &BuildOutput{
		Capsule: capsule.FromFileInfo(input.CapsuleDir, info),
		Files:   p.files,
		Entries: p.w.Len(),
		Bytes:   p.bytes,
	}
	prog.Finish("Capsule created: " + name)
	log.Info("capsule created", "capsule", name, "files", out.Files, "entries", out.Entries, "bytes", out.Bytes)

	recordEvent(input.Journal, log, &journal.Event{
		Kind:        journal.KindBuild,
		Capsule:     name,
		CapsulePath: finalPath,
		Files:       out.Files,
		Entries:     out.Entries,
		Bytes:       out.Bytes,
		Targets:     input.Sources,
		CreatedAt:   now,
	})

	return out, nil
}

// tempID returns a unique suffix for temp capsule names.
func tempID(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), ulid.Monotonic(rand.Reader, 0)).String()
}

// packer streams walked entries into an archive.
type packer struct {
	w          *archive.Writer
	root       string
	capsuleDir string
	log        *slog.Logger
	prog       progress.Sink

	files int
	bytes int64
}

func (p *packer) packSource(src string) error {
	info, err := os.Stat(src)
	if err != nil || !info.IsDir() {
		p.log.Debug("source directory missing", "target", src)
		return nil
	}

	// Record the source itself so an empty source directory survives a
	// round trip. A lone source is the root and has no name of its own.
	if src != p.root {
		if err := p.packDir(src); err != nil {
			return err
		}
	}

	for e := range walk.Tree(src, p.log) {
		if capsule.Within(p.capsuleDir, e.Path) {
			continue
		}
		if e.Dir {
			if err := p.packDir(e.Path); err != nil {
				return err
			}
			continue
		}
		if err := p.packFile(e.Path); err != nil {
			return err
		}
	}
	return nil
}

func (p *packer) rel(path string) (string, error) {
	rel, err := filepath.Rel(p.root, path)
	if err != nil {
		return "", errors.NewIO("relativize", path, err)
	}
	return rel, nil
}

func (p *packer) packDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		p.log.Debug("skipping unreadable entry", "path", path, "error", err)
		return nil
	}
	rel, err := p.rel(path)
	if err != nil {
		return err
	}
	if err := p.w.WriteDir(rel, info.Mode(), info.ModTime()); err != nil {
		return errors.NewArchive(path, err)
	}
	return nil
}

func (p *packer) packFile(path string) error {
	rel, err := p.rel(path)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) || stderrors.Is(err, fs.ErrPermission) {
			// Vanished or locked since the walk saw it.
			p.log.Debug("skipping unreadable entry", "path", path, "error", err)
			return nil
		}
		return errors.NewIO("open", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errors.NewIO("stat", path, err)
	}

	n, err := p.w.WriteFile(rel, f, info.Mode(), info.ModTime())
	if err != nil {
		return errors.NewArchive(path, err)
	}

	p.files++
	p.bytes += n
	p.prog.Advance(1)
	return nil
}
