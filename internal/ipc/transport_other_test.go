//go:build !windows

package ipc

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAddressResolution(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")

	if got := Address("/tmp/explicit.sock"); got != "/tmp/explicit.sock" {
		t.Fatalf("Address(abs) = %q, want unchanged", got)
	}
	if got, want := Address("QuickNoteInstance-bob"), "/run/user/1000/QuickNoteInstance-bob.sock"; got != want {
		t.Fatalf("Address(name) = %q, want %q", got, want)
	}

	t.Setenv("XDG_RUNTIME_DIR", "")
	if got, want := Address("x"), filepath.Join(os.TempDir(), "x.sock"); got != want {
		t.Fatalf("Address(name) without runtime dir = %q, want %q", got, want)
	}
}

func TestListenChannelRemovesStaleSocket(t *testing.T) {
	address := testChannel(t)

	// A listener that is closed without unlinking leaves a stale socket file.
	first, err := listenChannel(address)
	if err != nil {
		t.Fatalf("listenChannel() error = %v", err)
	}
	first.(interface{ SetUnlinkOnClose(bool) }).SetUnlinkOnClose(false)
	first.Close()
	if _, err := os.Lstat(address); err != nil {
		t.Fatalf("stale socket missing before rebind: %v", err)
	}

	second, err := listenChannel(address)
	if err != nil {
		t.Fatalf("listenChannel() over stale socket error = %v", err)
	}
	second.Close()
}

func TestListenChannelRefusesRegularFile(t *testing.T) {
	address := filepath.Join(t.TempDir(), "not-a-socket")
	if err := os.WriteFile(address, []byte("data"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := listenChannel(address); err == nil {
		t.Fatal("listenChannel() over regular file error = nil")
	}
}
