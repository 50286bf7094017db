package main

import (
	"path/filepath"
	"testing"

	"quicknote/internal/history"
)

type recordingFrontend struct {
	shown       []history.Snapshot
	activations int
	// activated, when set, receives a non-blocking signal per Activate.
	activated chan struct{}
}

func (f *recordingFrontend) ShowSnapshot(s history.Snapshot) { f.shown = append(f.shown, s) }

func (f *recordingFrontend) Activate() {
	f.activations++
	if f.activated != nil {
		select {
		case f.activated <- struct{}{}:
		default:
		}
	}
}

func (f *recordingFrontend) last(t *testing.T) history.Snapshot {
	t.Helper()
	if len(f.shown) == 0 {
		t.Fatal("frontend never received a snapshot")
	}
	return f.shown[len(f.shown)-1]
}

type fakeWatcher struct {
	started bool
	stopped int
}

func (w *fakeWatcher) Start()      { w.started = true }
func (w *fakeWatcher) Stop() error { w.stopped++; return nil }

// stubConfigWatcher replaces newConfigWatcherFn for the duration of the test.
func stubConfigWatcher(t *testing.T) *fakeWatcher {
	t.Helper()
	w := &fakeWatcher{}
	orig := newConfigWatcherFn
	newConfigWatcherFn = func(string, func()) (configWatcher, error) { return w, nil }
	t.Cleanup(func() { newConfigWatcherFn = orig })
	return w
}

// newTestApp builds an App whose files live in a temp dir and whose channel
// is private to the test.
func newTestApp(t *testing.T, frontend Frontend) (*App, string) {
	t.Helper()
	dir := t.TempDir()
	app := NewApp(frontend, AppOptions{
		ConfigPath: filepath.Join(dir, "config.yaml"),
		Overrides: ConfigOverrides{
			HistoryPath: filepath.Join(dir, "history.gz"),
			Channel:     testChannel(t),
		},
	})
	return app, dir
}

// startTestApp runs startup and registers shutdown.
func startTestApp(t *testing.T, app *App) {
	t.Helper()
	if err := app.startup(t.Context()); err != nil {
		t.Fatalf("startup() error = %v", err)
	}
	t.Cleanup(app.shutdown)
}

func texts(snaps []history.Snapshot) []string {
	out := make([]string, len(snaps))
	for i, s := range snaps {
		out[i] = s.Text
	}
	return out
}
