package capsule

import (
	"io/fs"
	"path/filepath"
	"strings"
	"time"
)

// TimestampLayout is the YYYYMMDDHHMMSS stamp used in capsule names and
// displaced directory suffixes.
const TimestampLayout = "20060102150405"

// Ext is the extension that marks a file in the capsule directory as a capsule.
const Ext = ".zip"

// DefaultApp is the application whose directories are captured by default.
const DefaultApp = "nvim"

// Capsule is one archive file in the capsule directory.
type Capsule struct {
	// Path is the absolute path of the archive; it is the capsule's identity
	Path string `json:"path"`

	// Name is the base name of the archive file
	Name string `json:"name"`

	// CreatedAt is parsed from the timestamp in the name (zero if unparseable)
	CreatedAt time.Time `json:"created_at"`

	// ModTime is the filesystem modification time; capsules are ordered by it
	ModTime time.Time `json:"mod_time"`

	// Size is the archive size in bytes
	Size int64 `json:"size"`
}

// Prefix returns the file name prefix for capsules of app, e.g. "nvim_backup_".
func Prefix(app string) string {
	return app + "_backup_"
}

// FileName returns the capsule file name for app created at t.
func FileName(app string, t time.Time) string {
	return Prefix(app) + t.Format(TimestampLayout) + Ext
}

// IsCapsuleFile reports whether name carries the capsule extension.
func IsCapsuleFile(name string) bool {
	return filepath.Ext(name) == Ext
}

// ParseTimestamp extracts the creation time embedded in a capsule name.
// The stamp is the text between the last underscore and the extension,
// interpreted in local time.
func ParseTimestamp(name string) (time.Time, bool) {
	base := strings.TrimSuffix(filepath.Base(name), Ext)
	idx := strings.LastIndex(base, "_")
	if idx < 0 {
		return time.Time{}, false
	}
	stamp := base[idx+1:]
	if len(stamp) != len(TimestampLayout) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(TimestampLayout, stamp, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FromFileInfo constructs a Capsule from a directory and a file's info.
func FromFileInfo(dir string, info fs.FileInfo) Capsule {
	created, _ := ParseTimestamp(info.Name())
	return Capsule{
		Path:      filepath.Join(dir, info.Name()),
		Name:      info.Name(),
		CreatedAt: created,
		ModTime:   info.ModTime(),
		Size:      info.Size(),
	}
}
