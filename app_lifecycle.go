package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"quicknote/internal/config"
	"quicknote/internal/history"
	"quicknote/internal/singleinstance"
)

// errAlreadyRunning reports that another instance owns the channel and was
// asked to activate. The caller exits without touching settings or history.
var errAlreadyRunning = errors.New("quicknote is already running")

const shutdownWaitTimeout = 5 * time.Second

type configWatcher interface {
	Start()
	Stop() error
}

// Test seams.
var (
	tryBecomeOwnerFn   = singleinstance.TryBecomeOwner
	newConfigWatcherFn = func(path string, onChange func()) (configWatcher, error) {
		w, err := config.NewWatcher(path, config.DefaultWatchSettle, onChange)
		if err != nil {
			return nil, err
		}
		return w, nil
	}
)

// startup decides instance ownership first and only then touches the config
// and history files. It returns errAlreadyRunning when another instance owns
// the channel.
func (a *App) startup(_ context.Context) error {
	// Read-only load: a second launch must not write settings.
	cfg, err := config.Load(a.configPath)
	if err != nil {
		slog.Warn("[WARN-CONFIG] failed to load config, using defaults", "path", a.configPath, "error", err)
		cfg = config.DefaultConfig()
	}
	a.overrides.apply(&cfg)
	a.applyLogLevel(cfg)

	coordinator, outcome := tryBecomeOwnerFn(cfg.Channel, func() {
		a.postEvent(appEvent{kind: eventActivate})
	}, singleinstance.Options{ProbeTimeout: cfg.ProbeTimeout()})
	if outcome == singleinstance.AlreadyRunning {
		return errAlreadyRunning
	}
	a.coordinator = coordinator
	a.started = true
	if coordinator.Degraded() {
		slog.Warn("[DEBUG-SINGLE] running without full single-instance protection")
	}

	if ensured, err := config.EnsureFile(a.configPath); err != nil {
		slog.Warn("[WARN-CONFIG] failed to write default config", "path", a.configPath, "error", err)
	} else {
		a.overrides.apply(&ensured)
		cfg = ensured
	}
	a.cfg = cfg

	a.persister = history.NewPersister(cfg.ResolvedHistoryPath())
	store, err := a.persister.Load(cfg.MaxHistorySize)
	if err != nil {
		// Corrupt or unreadable history is not fatal; start empty.
		slog.Warn("[WARN-HISTORY] failed to load history, starting empty", "path", a.persister.Path(), "error", err)
	}
	a.store = store
	slog.Info("[DEBUG-HISTORY] history loaded",
		"path", a.persister.Path(),
		"entries", store.Len(),
		"index", store.Index(),
		"maxSize", store.MaxSize(),
	)
	a.configureSaveDebounce(cfg.SaveDebounce())
	a.showCurrent()

	a.startConfigWatcher()
	return nil
}

func (a *App) startConfigWatcher() {
	watcher, err := newConfigWatcherFn(a.configPath, func() {
		a.postEvent(appEvent{kind: eventConfigChanged})
	})
	if err != nil {
		slog.Warn("[WARN-CONFIG] config watcher unavailable, changes need a restart", "error", err)
		return
	}
	watcher.Start()
	a.watcher = watcher
}

// shutdown flushes a pending save, stops background workers and releases
// instance ownership. Safe to call more than once.
func (a *App) shutdown() {
	if !a.started {
		return
	}
	a.shuttingDown.Store(true)

	if a.watcher != nil {
		if !waitWithTimeout(func() {
			if err := a.watcher.Stop(); err != nil {
				slog.Warn("[WARN-CONFIG] config watcher stop failed", "error", err)
			}
		}, shutdownWaitTimeout) {
			slog.Warn("[WARN-CONFIG] timed out stopping config watcher")
		}
		a.watcher = nil
	}

	a.flushPendingSave()

	if a.coordinator != nil {
		if !waitWithTimeout(func() {
			if err := a.coordinator.Release(); err != nil {
				slog.Warn("[DEBUG-SINGLE] instance release failed", "error", err)
			}
		}, shutdownWaitTimeout) {
			slog.Warn("[DEBUG-SINGLE] timed out releasing instance channel")
		}
		a.coordinator = nil
	}
	a.stopOnce.Do(func() { close(a.stopped) })
	a.started = false
}

func waitWithTimeout(waitFn func(), timeout time.Duration) bool {
	// Best effort timeout guard for shutdown paths. The waiting goroutine may
	// outlive timeout when waitFn blocks indefinitely, but this function is only
	// used during process shutdown where eventual completion is expected.
	done := make(chan struct{})
	go func() {
		waitFn()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
