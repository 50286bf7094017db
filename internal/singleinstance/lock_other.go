//go:build !windows

package singleinstance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"quicknote/internal/ipc"
)

// Lock holds an exclusive flock on a file next to the channel socket. The
// kernel drops the lock when the owning process exits, however it exits.
type Lock struct {
	file *os.File
}

// TryLock attempts a non-blocking exclusive lock on path.
// Returns ErrAlreadyRunning if another holder has it.
func TryLock(path string) (*Lock, error) {
	if path == "" {
		return nil, errors.New("lock path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock %q: %w", path, err)
	}
	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrAlreadyRunning
		}
		return nil, fmt.Errorf("flock %q: %w", path, err)
	}
	return &Lock{file: file}, nil
}

// Release unlocks and closes the lock file. Safe to call on nil receiver and
// idempotent. The file itself is left in place so a concurrent starter never
// locks an unlinked inode.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	unlockErr := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil
	return errors.Join(unlockErr, closeErr)
}

// LockName returns the lock path guarding channel.
func LockName(channel string) string {
	return ipc.Address(channel) + ".lock"
}
