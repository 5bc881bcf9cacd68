//go:build !windows

package ops

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/Ghasak/nvimTimeMachine.v2/internal/errors"
)

// openFileNoFollow opens a file for writing with O_NOFOLLOW so a symlink
// planted at an extraction or temp path is never written through.
// O_CLOEXEC prevents FD leaks across exec.
//
// Note: O_NOFOLLOW only protects the final component.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	fd, err := syscall.Open(path, flag|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, uint32(perm))
	if err != nil {
		if stderrors.Is(err, syscall.ELOOP) {
			return nil, errors.NewUnsafePath(path)
		}
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return os.NewFile(uintptr(fd), path), nil
}
