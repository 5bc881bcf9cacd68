// Package walk enumerates the contents of source directories for packing.
//
// Entries that fail during traversal (unreadable directories and files,
// dangling symlinks, entries that vanish mid-walk) are skipped rather than
// aborting the walk. A root that is a symlink is walked through, and a
// symlink to a regular file counts as that file. Symlinked directories below
// the root are not descended into. Within a directory, entries come in
// lexical order, so two walks of an unchanged tree agree.
package walk

import (
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
)

// Entry is one node found under a walk root.
type Entry struct {
	// Path is the full path of the node
	Path string

	// Dir is true for directories, false for regular files
	Dir bool
}

// Tree yields every directory below root and every readable file under it.
// Paths are reported under root as given, even when root is a symlink. The
// root itself is not reported. A missing root yields nothing.
func Tree(root string, log *slog.Logger) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		real, err := filepath.EvalSymlinks(root)
		if err != nil {
			skip(log, root, err)
			return
		}
		_ = filepath.WalkDir(real, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				skip(log, path, err)
				if d != nil && d.IsDir() && path != real {
					return filepath.SkipDir
				}
				return nil
			}
			if path == real {
				return nil
			}

			e := Entry{Path: rebase(root, real, path)}
			switch {
			case d.IsDir():
				e.Dir = true
			case d.Type().IsRegular():
			case d.Type()&fs.ModeSymlink != 0:
				info, err := os.Stat(path)
				if err != nil {
					skip(log, path, err)
					return nil
				}
				if !info.Mode().IsRegular() {
					return nil
				}
			default:
				return nil
			}

			if !e.Dir {
				if err := readable(path); err != nil {
					skip(log, path, err)
					return nil
				}
			}

			if !yield(e) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

func skip(log *slog.Logger, path string, err error) {
	if log != nil {
		log.Debug("skipping unreadable entry", "path", path, "error", err)
	}
}

// rebase maps path, found under the resolved root real, back under root.
func rebase(root, real, path string) string {
	if root == real {
		return path
	}
	rel, err := filepath.Rel(real, path)
	if err != nil {
		return path
	}
	return filepath.Join(root, rel)
}

func readable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}

// Files yields the path of every readable file under each root, in root order.
func Files(log *slog.Logger, roots ...string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, root := range roots {
			for e := range Tree(root, log) {
				if e.Dir {
					continue
				}
				if !yield(e.Path) {
					return
				}
			}
		}
	}
}

// Count returns the number of readable files under roots. It performs its own
// full traversal.
func Count(roots ...string) int {
	n := 0
	for range Files(nil, roots...) {
		n++
	}
	return n
}
