// Command quicknote is a single-instance notepad whose every edit is kept in
// a persistent, bounded undo/redo history.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"quicknote/internal/config"
	"quicknote/internal/ipc"
)

// Build information, set via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := newCLIApp(os.Stdin, os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newCLIApp(stdin io.Reader, stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "quicknote",
		Usage:     "single-instance notepad with persistent undo history",
		Version:   fmt.Sprintf("%s (commit: %s)", Version, Commit),
		Flags:     globalFlags(),
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: stderr,
		Before: func(c *cli.Context) error {
			level := new(slog.LevelVar)
			level.Set(config.ParseLogLevel(c.String("log-level")))
			c.App.Metadata["logLevel"] = level
			installLogger(c.App.ErrWriter, level)
			return nil
		},
		Action: runNotepad,
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "ask a running instance to come to the front",
				Action: runShow,
			},
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "config file path",
			EnvVars: []string{"QUICKNOTE_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "history",
			Usage:   "history file path (overrides history_path)",
			EnvVars: []string{"QUICKNOTE_HISTORY"},
		},
		&cli.StringFlag{
			Name:  "channel",
			Usage: "instance channel name or socket path (overrides channel)",
			// QUICKNOTE_CHANNEL is validated inside the ipc package.
		},
		&cli.IntFlag{
			Name:    "max-history",
			Usage:   "maximum number of snapshots kept (1..99999)",
			EnvVars: []string{"QUICKNOTE_MAX_HISTORY"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "debug, info, warn or error",
			EnvVars: []string{"QUICKNOTE_LOG_LEVEL"},
		},
	}
}

// installLogger sends slog output to w, tagged with a per-process instance
// id so records from concurrent launches can be told apart.
func installLogger(w io.Writer, level *slog.LevelVar) {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler).With("instance", uuid.NewString()))
}

func appOptionsFromContext(c *cli.Context) AppOptions {
	opts := AppOptions{
		ConfigPath: c.String("config"),
		Overrides: ConfigOverrides{
			HistoryPath:    c.String("history"),
			Channel:        c.String("channel"),
			MaxHistorySize: c.Int("max-history"),
			LogLevel:       c.String("log-level"),
		},
	}
	if level, ok := c.App.Metadata["logLevel"].(*slog.LevelVar); ok {
		opts.LogLevel = level
	}
	return opts
}

func runNotepad(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	console := newConsoleFrontend(c.App.Writer)
	app := NewApp(console, appOptionsFromContext(c))
	if err := app.startup(ctx); err != nil {
		if errors.Is(err, errAlreadyRunning) {
			slog.Info("[DEBUG-SINGLE] another instance is already running, exiting")
			return nil
		}
		return err
	}
	defer app.shutdown()

	if err := app.Run(ctx, console.Requests(ctx, c.App.Reader)); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runShow(c *cli.Context) error {
	opts := appOptionsFromContext(c)
	path := opts.ConfigPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		slog.Warn("[WARN-CONFIG] failed to load config, using defaults", "path", path, "error", err)
		cfg = config.DefaultConfig()
	}
	opts.Overrides.apply(&cfg)

	channel := cfg.Channel
	if channel == "" {
		channel = ipc.DefaultChannelName()
	}
	if !ipc.Probe(channel, cfg.ProbeTimeout()) {
		return cli.Exit("no running instance", 1)
	}
	fmt.Fprintln(c.App.Writer, "activated running instance")
	return nil
}
