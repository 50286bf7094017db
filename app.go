package main

import (
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"quicknote/internal/config"
	"quicknote/internal/history"
	"quicknote/internal/singleinstance"
)

// Frontend is the presentation side of the notepad. Both methods are called
// from the App event loop only.
type Frontend interface {
	// ShowSnapshot replaces the visible text and places the cursor.
	ShowSnapshot(s history.Snapshot)
	// Activate brings the window to the front.
	Activate()
}

// AppOptions carries command-line settings. Zero values defer to the config
// file.
type AppOptions struct {
	ConfigPath string
	Overrides  ConfigOverrides
	// LogLevel, when set, is updated whenever the config is (re)loaded.
	LogLevel *slog.LevelVar
}

// ConfigOverrides take precedence over the config file, including after a
// reload.
type ConfigOverrides struct {
	HistoryPath    string
	Channel        string
	MaxHistorySize int
	LogLevel       string
}

// apply overwrites cfg fields with every non-zero override.
// MUTATES: cfg is directly modified.
func (o ConfigOverrides) apply(cfg *config.Config) {
	if p := strings.TrimSpace(o.HistoryPath); p != "" {
		cfg.HistoryPath = p
	}
	if ch := strings.TrimSpace(o.Channel); ch != "" {
		cfg.Channel = ch
	}
	if o.MaxHistorySize != 0 {
		cfg.MaxHistorySize = o.MaxHistorySize
	}
	if lvl := strings.TrimSpace(o.LogLevel); lvl != "" {
		cfg.LogLevel = lvl
	}
	config.Normalize(cfg)
}

// App wires the history store, its persistence and the single-instance
// coordinator to a Frontend.
//
// Everything except postEvent runs on the goroutine that calls Run (or, in
// tests, the calling goroutine). history.Store is not safe for concurrent
// use and is never touched from the activation or watcher goroutines.
type App struct {
	configPath string
	overrides  ConfigOverrides
	logLevel   *slog.LevelVar
	cfg        config.Config

	frontend    Frontend
	store       *history.Store
	persister   *history.Persister
	coordinator *singleinstance.Coordinator
	watcher     configWatcher

	// visible is what the frontend shows. It outlives Clear, which drops
	// the log but leaves the text in place.
	visible history.Snapshot

	// Save scheduling. saveDebounce is nil when saves are synchronous.
	saveDebounce func(func())
	savePending  bool

	events       chan appEvent
	stopped      chan struct{}
	stopOnce     sync.Once
	started      bool
	shuttingDown atomic.Bool
}

// NewApp creates an App bound to frontend. startup must be called before
// any history operation.
func NewApp(frontend Frontend, opts AppOptions) *App {
	configPath := strings.TrimSpace(opts.ConfigPath)
	if configPath == "" {
		configPath = config.DefaultPath()
	}
	return &App{
		configPath: configPath,
		overrides:  opts.Overrides,
		logLevel:   opts.LogLevel,
		cfg:        config.DefaultConfig(),
		frontend:   frontend,
		store:      history.NewStore(config.DefaultMaxHistorySize),
		events:     make(chan appEvent, eventQueueSize),
		stopped:    make(chan struct{}),
	}
}
