//go:build !unix

package fileutil

import "os"

// OpenNoFollow opens path read-only. Platforms without O_NOFOLLOW may
// follow symlinks.
func OpenNoFollow(path string) (*os.File, error) {
	return os.Open(path)
}
