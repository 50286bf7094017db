// Package testutil holds helpers shared by package tests.
package testutil

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// CaptureLogBuffer routes the default slog logger into a buffer at level and
// restores the previous logger in t.Cleanup. Tests using it must not run in
// parallel with other tests that log.
func CaptureLogBuffer(t *testing.T, level slog.Level) *bytes.Buffer {
	t.Helper()
	originalLogger := slog.Default()
	var logBuf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{Level: level})))
	t.Cleanup(func() {
		slog.SetDefault(originalLogger)
	})
	return &logBuf
}

// RequireLogContains fails the test unless the captured log mentions want.
func RequireLogContains(t *testing.T, logBuf *bytes.Buffer, want string) {
	t.Helper()
	if !strings.Contains(logBuf.String(), want) {
		t.Fatalf("log = %q, want it to contain %q", logBuf.String(), want)
	}
}

// WriteFile writes content to path with owner-only permissions, creating
// parent directories as needed.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }
