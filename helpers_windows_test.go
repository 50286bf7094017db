//go:build windows

package main

import (
	"fmt"
	"testing"
	"time"
)

func testChannel(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("QuickNoteInstance-apptest-%d", time.Now().UnixNano())
}
