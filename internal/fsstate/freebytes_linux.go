//go:build linux

package fsstate

import (
	"fmt"
	"syscall"
)

// FreeBytes reports the number of free bytes available on the
// filesystem containing path, as seen by an unprivileged caller.
func FreeBytes(path string) (uint64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}
