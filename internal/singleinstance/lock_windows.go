//go:build windows

package singleinstance

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sys/windows"
)

// Lock holds a Windows named mutex handle for single-instance enforcement.
// The kernel automatically releases the mutex when the owning process terminates.
type Lock struct {
	handle windows.Handle
}

// TryLock attempts to acquire a session-local named mutex.
// Returns ErrAlreadyRunning if another holder already has the mutex.
func TryLock(name string) (*Lock, error) {
	if name == "" {
		return nil, errors.New("mutex name is required")
	}
	nameUTF16, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, fmt.Errorf("invalid mutex name %q: %w", name, err)
	}
	h, err := windows.CreateMutex(nil, true, nameUTF16)
	if err == windows.ERROR_ALREADY_EXISTS {
		// Another holder owns the mutex. Close the duplicate handle.
		if h != 0 {
			windows.CloseHandle(h)
		}
		return nil, ErrAlreadyRunning
	}
	if err != nil {
		if h != 0 {
			windows.CloseHandle(h)
		}
		return nil, fmt.Errorf("CreateMutex %q: %w", name, err)
	}
	return &Lock{handle: h}, nil
}

// Release closes the mutex handle. Safe to call on nil receiver and idempotent.
func (l *Lock) Release() error {
	if l == nil || l.handle == 0 {
		return nil
	}
	err := windows.CloseHandle(l.handle)
	l.handle = 0
	return err
}

// LockName returns the mutex name guarding channel. Backslashes are not
// allowed after the namespace prefix.
func LockName(channel string) string {
	return `Local\` + strings.ReplaceAll(channel, `\`, "_") + "-lock"
}
