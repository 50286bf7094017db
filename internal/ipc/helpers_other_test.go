//go:build !windows

package ipc

import (
	"os"
	"path/filepath"
	"testing"
)

// testChannel returns a channel whose socket lives in a per-test directory.
// The directory name is kept short: unix socket paths are limited to about
// 104 bytes and t.TempDir() embeds the test name.
func testChannel(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "qn")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "qn.sock")
}
