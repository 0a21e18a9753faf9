//go:build windows

package publish

import "os"

// createNoFollow creates path for writing. Windows has no O_NOFOLLOW;
// ValidateExportPath has already rejected a symlinked target.
func createNoFollow(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
}
