package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"time"
)

// Writer appends entries to a new capsule archive.
// Nothing is a valid archive until Close has written the central directory.
type Writer struct {
	zw    *zip.Writer
	count int
}

// NewWriter returns a Writer that writes a zip stream to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{zw: zip.NewWriter(w)}
}

// WriteFile appends a deflate-compressed file entry named name with the
// contents of r. It returns the number of uncompressed bytes written.
func (w *Writer) WriteFile(name string, r io.Reader, mode fs.FileMode, modTime time.Time) (int64, error) {
	clean, err := entryName(name)
	if err != nil {
		return 0, err
	}

	hdr := &zip.FileHeader{
		Name:     clean,
		Method:   zip.Deflate,
		Modified: modTime,
	}
	hdr.SetMode(mode.Perm())

	dst, err := w.zw.CreateHeader(hdr)
	if err != nil {
		return 0, fmt.Errorf("creating entry %s: %w", clean, err)
	}
	n, err := io.Copy(dst, r)
	if err != nil {
		return n, fmt.Errorf("writing entry %s: %w", clean, err)
	}
	w.count++
	return n, nil
}

// WriteDir appends a directory marker for name.
func (w *Writer) WriteDir(name string, mode fs.FileMode, modTime time.Time) error {
	clean, err := entryName(name)
	if err != nil {
		return err
	}

	hdr := &zip.FileHeader{
		Name:     clean + "/",
		Method:   zip.Store,
		Modified: modTime,
	}
	hdr.SetMode(fs.ModeDir | mode.Perm())

	if _, err := w.zw.CreateHeader(hdr); err != nil {
		return fmt.Errorf("creating directory entry %s: %w", clean, err)
	}
	w.count++
	return nil
}

// Len returns the number of entries written so far.
func (w *Writer) Len() int {
	return w.count
}

// Close writes the central directory. It does not close the underlying writer.
func (w *Writer) Close() error {
	if err := w.zw.Close(); err != nil {
		return fmt.Errorf("finalizing archive: %w", err)
	}
	return nil
}

// entryName validates an OS path relative to the archive root and returns
// its slash-separated form.
func entryName(name string) (string, error) {
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return SanitizeName(filepath.ToSlash(name))
}
