//go:build windows

package ipc

import (
	"fmt"
	"testing"
	"time"
)

// testChannel returns a pipe name unique to the running test.
func testChannel(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("QuickNoteInstance-test-%d", time.Now().UnixNano())
}
