package capsule

import (
	"os"
	"path/filepath"

	"github.com/Ghasak/nvimTimeMachine.v2/internal/errors"
)

// StateDirName is the directory under ~/.config holding the tool's own
// config and journal.
const StateDirName = "nvim-time-machine"

// RootContext carries the resolved home directory. It is built once at
// process start and passed to every component that needs a root.
type RootContext struct {
	Home string
}

// ResolveRoot looks up the user's home directory.
func ResolveRoot() (RootContext, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return RootContext{}, errors.NewEnvironment(err)
	}
	return RootContext{Home: home}, nil
}

// Resolve returns p unchanged if absolute, otherwise joined under Home.
func (r RootContext) Resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(r.Home, p)
}

// SourceSet returns the data, config and cache directories of app.
func (r RootContext) SourceSet(app string) SourceSet {
	return SourceSet{
		filepath.Join(r.Home, ".local", "share", app),
		filepath.Join(r.Home, ".config", app),
		filepath.Join(r.Home, ".cache", app),
	}
}

// StateDir returns the directory holding config.yaml and journal.db.
func (r RootContext) StateDir() string {
	return filepath.Join(r.Home, ".config", StateDirName)
}

// SourceSet is the ordered list of directories captured by a capsule and
// repopulated on restore.
type SourceSet []string

// Root returns the deepest directory that contains every entry of the set.
// Archive entry names are relative to it.
func (s SourceSet) Root() string {
	return CommonRoot(s...)
}

// CommonRoot returns the deepest common ancestor of paths. A single path is
// its own root.
func CommonRoot(paths ...string) string {
	if len(paths) == 0 {
		return ""
	}
	root := filepath.Clean(paths[0])
	for _, p := range paths[1:] {
		p = filepath.Clean(p)
		for !Within(root, p) {
			parent := filepath.Dir(root)
			if parent == root {
				break
			}
			root = parent
		}
	}
	return root
}

// Within reports whether p is base or lies below it.
func Within(base, p string) bool {
	rel, err := filepath.Rel(base, p)
	if err != nil {
		return false
	}
	return filepath.IsLocal(rel)
}
