//go:build windows

package singleinstance

import (
	"fmt"
	"testing"
	"time"
)

func testChannel(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("QuickNoteInstance-test-%d", time.Now().UnixNano())
}
