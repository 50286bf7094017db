//go:build !windows

package ipc

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Address maps a channel name to a unix socket path. Absolute paths are used
// as-is; other names live in $XDG_RUNTIME_DIR, or the temp dir when unset.
func Address(channel string) string {
	if filepath.IsAbs(channel) {
		return channel
	}
	base := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if base == "" {
		base = os.TempDir()
	}
	return filepath.Join(base, channel+".sock")
}

func dialChannel(address string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("unix", address, timeout)
}

// listenChannel binds the socket, removing a stale socket file left by an
// owner that exited without unlinking it. Callers must have probed the
// channel first: removal of a live socket would orphan its owner.
func listenChannel(address string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(address), 0o700); err != nil {
		return nil, fmt.Errorf("create socket dir: %w", err)
	}
	if err := removeStaleSocket(address); err != nil {
		return nil, err
	}
	listener, err := net.Listen("unix", address)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(address, 0o600); err != nil {
		slog.Warn("[ipc] failed to restrict socket permissions", "address", address, "error", err)
	}
	if ul, ok := listener.(*net.UnixListener); ok {
		// Close unlinks the socket file.
		ul.SetUnlinkOnClose(true)
	}
	return listener, nil
}

func removeStaleSocket(address string) error {
	info, err := os.Lstat(address)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat socket: %w", err)
	}
	if info.Mode()&os.ModeSocket == 0 {
		return fmt.Errorf("refusing to replace non-socket file %s", address)
	}
	slog.Debug("[ipc] removing stale socket", "address", address)
	if err := os.Remove(address); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	return nil
}
