// Package store lists and resolves capsules kept in the capsule directory.
package store

import (
	"errors"
	"io/fs"
	"os"
	"sort"

	"github.com/Ghasak/nvimTimeMachine.v2/internal/capsule"
	cerrors "github.com/Ghasak/nvimTimeMachine.v2/internal/errors"
)

// Store is the single well-known directory holding capsule archives.
type Store struct {
	Dir string
}

// New returns a Store rooted at dir.
func New(dir string) *Store {
	return &Store{Dir: dir}
}

// Listing is a chronologically ordered set of capsules.
type Listing []capsule.Capsule

// Exists reports whether the capsule directory is present. It never creates it.
func (s *Store) Exists() bool {
	info, err := os.Stat(s.Dir)
	return err == nil && info.IsDir()
}

// List returns every capsule in the directory, oldest modification time
// first, ties broken by name. A missing directory is created and treated as
// empty.
func (s *Store) List() (Listing, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(s.Dir, 0o755); err != nil {
			return nil, cerrors.NewIO("create capsule directory", s.Dir, err)
		}
		return Listing{}, nil
	}
	if err != nil {
		return nil, cerrors.NewIO("read capsule directory", s.Dir, err)
	}

	listing := Listing{}
	for _, ent := range entries {
		if !ent.Type().IsRegular() || !capsule.IsCapsuleFile(ent.Name()) {
			continue
		}
		info, err := ent.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		listing = append(listing, capsule.FromFileInfo(s.Dir, info))
	}

	sort.SliceStable(listing, func(i, j int) bool {
		a, b := listing[i], listing[j]
		if !a.ModTime.Equal(b.ModTime) {
			return a.ModTime.Before(b.ModTime)
		}
		return a.Name < b.Name
	})

	return listing, nil
}

// Resolve returns the capsule at a 0-based index. The index must come from
// a validated selection over this listing; out-of-range access panics.
func (l Listing) Resolve(index int) capsule.Capsule {
	return l[index]
}

// Names returns the capsule file names in listing order.
func (l Listing) Names() []string {
	names := make([]string, len(l))
	for i, c := range l {
		names[i] = c.Name
	}
	return names
}

// Latest returns the most recently modified capsule, if any.
func (l Listing) Latest() (capsule.Capsule, bool) {
	if len(l) == 0 {
		return capsule.Capsule{}, false
	}
	return l[len(l)-1], true
}
