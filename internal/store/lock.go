package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// DirLock is a cross-process lock guarding one index directory. The lock
// file sits next to the directory, not inside it, so the directory can be
// wiped and recreated while the lock is held.
type DirLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewDirLock returns the lock for indexDir: <parent>/.<name>.lock.
func NewDirLock(indexDir string) *DirLock {
	clean := filepath.Clean(indexDir)
	lockPath := filepath.Join(filepath.Dir(clean), "."+filepath.Base(clean)+".lock")
	return &DirLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// TryLock acquires the lock without blocking. It returns false when another
// process holds it.
func (l *DirLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	l.locked = acquired
	return acquired, nil
}

// Unlock releases the lock. Calling it on an unlocked DirLock is a no-op.
func (l *DirLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *DirLock) Path() string {
	return l.path
}

// IsLocked reports whether this DirLock holds the lock.
func (l *DirLock) IsLocked() bool {
	return l.locked
}
