package main

import (
	"log/slog"
	"time"

	"github.com/bep/debounce"
)

// requestSave persists the store now, or after the configured quiet period
// when save debouncing is enabled.
func (a *App) requestSave() {
	if a.saveDebounce == nil {
		a.saveNow()
		return
	}
	a.savePending = true
	a.saveDebounce(func() {
		a.postEvent(appEvent{kind: eventFlush})
	})
}

func (a *App) flushPendingSave() {
	if !a.savePending {
		return
	}
	a.saveNow()
}

// saveNow writes the full envelope. Failures are logged and retried on the
// next mutation.
func (a *App) saveNow() {
	a.savePending = false
	if a.persister == nil {
		return
	}
	if err := a.persister.Save(a.store); err != nil {
		slog.Warn("[WARN-HISTORY] failed to save history", "path", a.persister.Path(), "error", err)
		return
	}
	slog.Debug("[DEBUG-HISTORY] history saved", "index", a.store.Index(), "len", a.store.Len())
}

// configureSaveDebounce switches between synchronous and debounced saves.
// A pending save is flushed before the mode changes.
func (a *App) configureSaveDebounce(interval time.Duration) {
	a.flushPendingSave()
	if interval <= 0 {
		a.saveDebounce = nil
		return
	}
	a.saveDebounce = debounce.New(interval)
}
