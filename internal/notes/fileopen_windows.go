//go:build windows

package notes

import "os"

// openFileNoFollow opens path for writing. O_NOFOLLOW does not exist on
// Windows; Export still rejects symlinked export directories.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, flag, perm)
}
