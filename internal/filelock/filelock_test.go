package filelock

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireAndUnlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.json")

	lock, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if lock.Path() != path+Suffix {
		t.Errorf("Path() = %s, want %s", lock.Path(), path+Suffix)
	}
	if _, err := os.Stat(lock.Path()); err != nil {
		t.Errorf("lock file not created: %v", err)
	}

	if err := lock.Unlock(); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	// Second unlock is a no-op
	if err := lock.Unlock(); err != nil {
		t.Errorf("second Unlock() error = %v", err)
	}

	// Re-acquirable after release
	again, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire() after Unlock error = %v", err)
	}
	defer again.Unlock()
}

func TestAcquireHeldLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credsafe.log")

	first, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer first.Unlock()

	// flock locks belong to the open file description, so a second
	// descriptor in the same process conflicts like another process would.
	if _, err := Acquire(path); !errors.Is(err, ErrLocked) {
		t.Errorf("Acquire() on held lock error = %v, want %v", err, ErrLocked)
	}
}

func TestAcquireCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "vault.json")

	lock, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer lock.Unlock()

	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Errorf("directory not created: %v", err)
	}
}

func TestUnlockNil(t *testing.T) {
	var l *Lock
	if err := l.Unlock(); err != nil {
		t.Errorf("nil Unlock() error = %v", err)
	}
}
