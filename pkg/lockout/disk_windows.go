//go:build windows

package lockout

import (
	"fmt"
	"path/filepath"

	"golang.org/x/sys/windows"
)

// checkDiskSpace verifies sufficient disk space for log writes
func (l *Log) checkDiskSpace() error {
	dir, err := windows.UTF16PtrFromString(filepath.Dir(l.path))
	if err != nil {
		return nil
	}
	var available, total, totalFree uint64
	if err := windows.GetDiskFreeSpaceEx(dir, &available, &total, &totalFree); err != nil {
		return nil
	}
	if available < MinDiskSpace {
		return fmt.Errorf("lockout: insufficient disk space: only %d bytes available, need at least %d",
			available, MinDiskSpace)
	}
	return nil
}
