// Package archive reads and writes capsule archives.
//
// A capsule is a zip file whose entry names are slash-separated paths
// relative to a common root. Files are deflate-compressed; directories are
// stored as "name/" markers. Names are validated on write and sanitized on
// read so that no entry can address a location outside the root it is
// extracted into.
package archive

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrUnsafePath is returned for entry names that are absolute or contain
// ".." segments.
var ErrUnsafePath = errors.New("unsafe entry path")

// SanitizeName normalizes an entry name as declared in an archive.
// Backslashes become slashes, a leading drive marker ("C:") and leading
// separators are stripped, and "." segments are dropped. Names containing a
// ".." segment, or that reduce to nothing, are rejected.
func SanitizeName(raw string) (string, error) {
	name := strings.ReplaceAll(raw, `\`, "/")
	if len(name) >= 2 && name[1] == ':' && isDriveLetter(name[0]) {
		name = name[2:]
	}

	parts := strings.Split(name, "/")
	kept := parts[:0]
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			return "", fmt.Errorf("%w: %q", ErrUnsafePath, raw)
		}
		if strings.ContainsRune(part, 0) {
			return "", fmt.Errorf("%w: %q", ErrUnsafePath, raw)
		}
		kept = append(kept, part)
	}
	if len(kept) == 0 {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, raw)
	}
	return path.Join(kept...), nil
}

func isDriveLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
