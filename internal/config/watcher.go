package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"

	"quicknote/internal/workerutil"
)

// DefaultWatchSettle coalesces the burst of events editors emit for a
// single save.
const DefaultWatchSettle = 150 * time.Millisecond

// Watcher reports changes to a single config file.
type Watcher struct {
	path     string
	fsw      *fsnotify.Watcher
	onChange func()
	coalesce func(func())

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopping atomic.Bool
	stopOnce sync.Once
}

// NewWatcher watches the directory containing path so that rename-based
// saves are seen too. onChange runs on a background goroutine after the
// file was written or recreated and no further event arrived for settle.
// settle <= 0 disables coalescing.
func NewWatcher(path string, settle time.Duration, onChange func()) (*Watcher, error) {
	if path == "" {
		return nil, errors.New("config path required")
	}
	if onChange == nil {
		return nil, errors.New("config watcher requires callback")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			slog.Debug("[WARN-CONFIG] failed to close watcher after add error", "error", closeErr)
		}
		return nil, fmt.Errorf("watch config dir %s: %w", dir, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		path:     filepath.Clean(path),
		fsw:      fsw,
		onChange: onChange,
		ctx:      ctx,
		cancel:   cancel,
	}
	if settle > 0 {
		w.coalesce = debounce.New(settle)
	}
	return w, nil
}

// Start begins delivering change notifications.
func (w *Watcher) Start() {
	slog.Debug("[DEBUG-CONFIG] watching config file", "path", w.path)
	workerutil.Supervise(w.ctx, &w.wg, workerutil.Worker{
		Name:     "config-watcher",
		Tag:      "[WARN-CONFIG]",
		Run:      w.loop,
		Stopping: w.stopping.Load,
	}, workerutil.RestartPolicy{})
}

// Stop closes the underlying watcher and waits for the loop to exit.
// Safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		w.stopping.Store(true)
		w.cancel()
		err = w.fsw.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			slog.Debug("[DEBUG-CONFIG] config file changed", "op", event.Op.String())
			w.notify()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("[WARN-CONFIG] config watcher error", "error", err)
		}
	}
}

func (w *Watcher) notify() {
	fire := func() {
		if w.stopping.Load() {
			return
		}
		w.onChange()
	}
	if w.coalesce == nil {
		fire()
		return
	}
	w.coalesce(fire)
}
