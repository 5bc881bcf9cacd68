//go:build windows

package ops

import (
	"os"

	"github.com/Ghasak/nvimTimeMachine.v2/internal/errors"
)

// openFileNoFollow opens a file for writing.
// On Windows, O_NOFOLLOW is not available, so an existing symlink at path is
// refused up front instead.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return nil, errors.NewUnsafePath(path)
	}
	return os.OpenFile(path, flag, perm)
}
