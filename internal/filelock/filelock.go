// Package filelock provides advisory exclusive locks on sidecar lock files.
//
// The vault and log files are replaced by rename on every write, so the lock
// is taken on a separate "<path>.lock" file whose inode stays stable.
package filelock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Suffix is appended to a guarded path to name its lock file.
const Suffix = ".lock"

// ErrLocked indicates another process holds the lock.
var ErrLocked = errors.New("filelock: locked by another process")

// Lock is a held advisory lock. Release it with Unlock.
type Lock struct {
	path string
	f    *os.File
}

// Acquire takes an exclusive, non-blocking advisory lock guarding path.
// It returns ErrLocked if another process already holds it.
func Acquire(path string) (*Lock, error) {
	lockPath := path + Suffix
	if err := os.MkdirAll(filepath.Dir(lockPath), 0700); err != nil {
		return nil, fmt.Errorf("filelock: failed to create directory: %w", err)
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("filelock: failed to open %s: %w", lockPath, err)
	}

	if err := lockFile(f); err != nil {
		f.Close()
		return nil, err
	}

	return &Lock{path: lockPath, f: f}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Unlock releases the lock. It is safe to call more than once.
func (l *Lock) Unlock() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := unlockFile(l.f)
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	l.f = nil
	return err
}
