//go:build !windows

package validation

import (
	"golang.org/x/sys/unix"
)

// getDiskSpace returns total and free bytes for the filesystem containing path.
func getDiskSpace(path string) (total uint64, free uint64, err error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}

	// Bavail rather than Bfree: space available to unprivileged users
	total = uint64(stat.Blocks) * uint64(stat.Bsize)
	free = uint64(stat.Bavail) * uint64(stat.Bsize)
	return total, free, nil
}
