package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"strings"
	"time"
)

// Reader iterates the entries of an existing capsule archive.
type Reader struct {
	rc *zip.ReadCloser
}

// Entry is one member of an archive.
type Entry struct {
	// Name is the sanitized, slash-separated path relative to the archive root
	Name string

	// IsDir is true for directory markers
	IsDir bool

	// Mode holds the permission bits recorded for the entry (may be zero)
	Mode fs.FileMode

	// Modified is the recorded modification time
	Modified time.Time

	file *zip.File
}

// Open opens an archive for reading. A missing file, a truncated file or a
// corrupt central directory all fail here.
func Open(path string) (*Reader, error) {
	rc, err := zip.OpenReader(path)
	if err != nil && !(errors.Is(err, zip.ErrInsecurePath) && rc != nil) {
		return nil, err
	}
	return &Reader{rc: rc}, nil
}

// Len returns the number of entries in the archive.
func (r *Reader) Len() int {
	return len(r.rc.File)
}

// Entries yields entries in container order. An entry whose declared name
// is unsafe is yielded as a nil entry with an error wrapping ErrUnsafePath.
func (r *Reader) Entries() iter.Seq2[*Entry, error] {
	return func(yield func(*Entry, error) bool) {
		for _, f := range r.rc.File {
			name, err := SanitizeName(f.Name)
			if err != nil {
				if !yield(nil, err) {
					return
				}
				continue
			}
			e := &Entry{
				Name:     name,
				IsDir:    strings.HasSuffix(f.Name, "/") || f.FileInfo().IsDir(),
				Mode:     f.Mode().Perm(),
				Modified: f.Modified,
				file:     f,
			}
			if !yield(e, nil) {
				return
			}
		}
	}
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.rc.Close()
}

// Open returns a reader over the entry's uncompressed contents. Reading
// verifies the entry checksum at EOF.
func (e *Entry) Open() (io.ReadCloser, error) {
	if e.IsDir {
		return nil, fmt.Errorf("entry %s is a directory", e.Name)
	}
	return e.file.Open()
}
