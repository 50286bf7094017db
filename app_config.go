package main

import (
	"log/slog"

	"quicknote/internal/config"
)

// reloadConfig applies a changed config file at runtime. The history path
// and channel are fixed for the lifetime of the process; the capacity, the
// save debounce and the log level take effect immediately.
func (a *App) reloadConfig() {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		slog.Warn("[WARN-CONFIG] config reload failed, keeping current settings", "path", a.configPath, "error", err)
		return
	}
	a.overrides.apply(&cfg)

	if cfg.ResolvedHistoryPath() != a.cfg.ResolvedHistoryPath() || cfg.Channel != a.cfg.Channel {
		slog.Info("[DEBUG-CONFIG] history_path and channel changes apply after restart")
	}
	a.applyLogLevel(cfg)

	if cfg.MaxHistorySize != a.store.MaxSize() {
		dropped := a.store.SetMaxSize(cfg.MaxHistorySize)
		slog.Info("[DEBUG-HISTORY] max history size changed",
			"maxSize", cfg.MaxHistorySize,
			"dropped", dropped,
			"index", a.store.Index(),
		)
		if dropped > 0 {
			a.requestSave()
		}
	}
	if cfg.SaveDebounceMs != a.cfg.SaveDebounceMs {
		a.configureSaveDebounce(cfg.SaveDebounce())
	}

	cfg.HistoryPath = a.cfg.HistoryPath
	cfg.Channel = a.cfg.Channel
	a.cfg = cfg
}

func (a *App) applyLogLevel(cfg config.Config) {
	if a.logLevel != nil {
		a.logLevel.Set(cfg.SlogLevel())
	}
}
