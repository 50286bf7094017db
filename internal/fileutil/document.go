// Package fileutil reads and replaces the notepad's on-disk documents (the
// history log and the config) so that a crash during a save leaves the
// previous copy intact.
package fileutil

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// ErrTooLarge is wrapped when a document is over its size limit, on read or
// on save.
var ErrTooLarge = errors.New("document too large")

const (
	// A scanner or indexer holding the target open makes rename fail on
	// Windows for a few milliseconds. Delays double from replaceFirstDelay.
	replaceAttempts   = 6
	replaceFirstDelay = 10 * time.Millisecond
)

// Test seams.
var (
	renameFn    = os.Rename
	retryRename = runtime.GOOS == "windows"
)

// Document is one persisted file. Kind ("history", "config") prefixes its
// errors and selects its log tag. MaxBytes <= 0 disables the size limit.
type Document struct {
	Kind     string
	Path     string
	MaxBytes int64
}

// Read returns the document's bytes. A missing file yields an error
// wrapping os.ErrNotExist.
func (d Document) Read() ([]byte, error) {
	if d.Path == "" {
		return nil, fmt.Errorf("read %s: path required", d.kind())
	}
	f, err := os.Open(d.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", d.kind(), err)
	}
	defer f.Close()

	var r io.Reader = f
	if d.MaxBytes > 0 {
		r = io.LimitReader(f, d.MaxBytes+1)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", d.kind(), err)
	}
	if d.overLimit(len(raw)) {
		return nil, fmt.Errorf("read %s: %w: %s is over %d bytes", d.kind(), ErrTooLarge, filepath.Base(d.Path), d.MaxBytes)
	}
	return raw, nil
}

// Replace stages data in a hidden sibling file, flushes it and renames it
// over the document. Readers see either the old or the new content. The
// parent directory is created 0700 and the document ends up 0600.
func (d Document) Replace(data []byte) error {
	if d.Path == "" {
		return fmt.Errorf("save %s: path required", d.kind())
	}
	if d.overLimit(len(data)) {
		// Never write what Read would refuse.
		return fmt.Errorf("save %s: %w: %d bytes, limit %d", d.kind(), ErrTooLarge, len(data), d.MaxBytes)
	}

	staged, err := d.stage(data)
	if err != nil {
		return fmt.Errorf("save %s: %w", d.kind(), err)
	}
	if err := commitStaged(staged, d.Path); err != nil {
		d.discard(staged)
		return fmt.Errorf("save %s: replace %s: %w", d.kind(), filepath.Base(d.Path), err)
	}
	return nil
}

// stage writes data next to the document and returns the staging path.
func (d Document) stage(data []byte) (string, error) {
	dir := filepath.Dir(d.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}
	// Same directory, so the rename stays on one filesystem.
	f, err := os.CreateTemp(dir, "."+filepath.Base(d.Path)+".*.partial")
	if err != nil {
		return "", fmt.Errorf("create staging file: %w", err)
	}
	staged := f.Name()

	err = writeSynced(f, data)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close staging file: %w", closeErr)
	}
	if err != nil {
		d.discard(staged)
		return "", err
	}
	return staged, nil
}

func writeSynced(f *os.File, data []byte) error {
	if err := f.Chmod(0o600); err != nil {
		return fmt.Errorf("chmod staging file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write staging file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync staging file: %w", err)
	}
	return nil
}

func (d Document) discard(staged string) {
	if err := os.Remove(staged); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn(d.warnTag()+" failed to remove staging file", "path", staged, "error", err)
	}
}

func commitStaged(staged, target string) error {
	delay := replaceFirstDelay
	for attempt := 1; ; attempt++ {
		err := renameFn(staged, target)
		if err == nil || !retryRename || attempt == replaceAttempts {
			return err
		}
		time.Sleep(delay)
		delay *= 2
	}
}

func (d Document) overLimit(n int) bool {
	return d.MaxBytes > 0 && int64(n) > d.MaxBytes
}

func (d Document) kind() string {
	if d.Kind == "" {
		return "file"
	}
	return d.Kind
}

// warnTag is "[WARN-HISTORY]" for the history document, and so on.
func (d Document) warnTag() string {
	return "[WARN-" + strings.ToUpper(d.kind()) + "]"
}
