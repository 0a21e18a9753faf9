//go:build !windows

package publish

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/ygalaxyy/bookmarkbot/internal/errors"
)

// createNoFollow creates path for writing with O_NOFOLLOW on the final
// component. ValidateExportPath covers the directory components.
func createNoFollow(path string) (*os.File, error) {
	flag := os.O_CREATE | os.O_WRONLY | os.O_TRUNC | syscall.O_NOFOLLOW | syscall.O_CLOEXEC
	fd, err := syscall.Open(path, flag, 0600)
	if err != nil {
		if stderrors.Is(err, syscall.ELOOP) {
			return nil, errors.NewInvalidRequest("cannot write to symlink")
		}
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}
