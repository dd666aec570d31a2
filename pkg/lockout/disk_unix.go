//go:build !windows

package lockout

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// checkDiskSpace verifies sufficient disk space for log writes
func (l *Log) checkDiskSpace() error {
	var stat unix.Statfs_t
	if err := unix.Statfs(filepath.Dir(l.path), &stat); err != nil {
		// Don't block the write on a failed stat
		fmt.Fprintf(os.Stderr, "warning: failed to check disk space for lockout log: %v\n", err)
		return nil
	}

	available := stat.Bavail * uint64(stat.Bsize) //nolint:unconvert // Bsize is int64 on linux, uint32 on darwin
	if available < MinDiskSpace {
		return fmt.Errorf("lockout: insufficient disk space: only %d bytes available, need at least %d",
			available, MinDiskSpace)
	}
	return nil
}
