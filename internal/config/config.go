// Package config loads and saves the quicknote settings file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"quicknote/internal/fileutil"
)

const (
	maxConfigFileBytes int64 = 1 << 20 // 1MB

	appDirName = "quicknote"

	// DefaultMaxHistorySize matches the historical settings default.
	DefaultMaxHistorySize = 9999
	MinMaxHistorySize     = 1
	MaxMaxHistorySize     = 99999

	DefaultProbeTimeoutMs = 500
	minProbeTimeoutMs     = 50
	maxProbeTimeoutMs     = 5000

	maxSaveDebounceMs = 10000

	DefaultLogLevel = "info"
)

var userHomeDirFn = os.UserHomeDir

var validLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

// Config is the on-disk settings document.
type Config struct {
	MaxHistorySize int    `yaml:"max_history_size" json:"max_history_size"`
	HistoryPath    string `yaml:"history_path" json:"history_path"`
	Channel        string `yaml:"channel" json:"channel"`
	ProbeTimeoutMs int    `yaml:"probe_timeout_ms" json:"probe_timeout_ms"`
	SaveDebounceMs int    `yaml:"save_debounce_ms" json:"save_debounce_ms"`
	LogLevel       string `yaml:"log_level" json:"log_level"`
}

// DefaultConfig returns the settings used when no file exists.
func DefaultConfig() Config {
	return Config{
		MaxHistorySize: DefaultMaxHistorySize,
		ProbeTimeoutMs: DefaultProbeTimeoutMs,
		LogLevel:       DefaultLogLevel,
	}
}

// ProbeTimeout returns the probe timeout as a duration.
func (c Config) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutMs) * time.Millisecond
}

// SaveDebounce returns the save debounce interval. Zero means saves are
// synchronous.
func (c Config) SaveDebounce() time.Duration {
	return time.Duration(c.SaveDebounceMs) * time.Millisecond
}

// ResolvedHistoryPath returns HistoryPath, or DefaultHistoryPath when unset.
func (c Config) ResolvedHistoryPath() string {
	if p := strings.TrimSpace(c.HistoryPath); p != "" {
		return p
	}
	return DefaultHistoryPath()
}

// SlogLevel maps LogLevel to a slog level. Unknown values map to Info.
func (c Config) SlogLevel() slog.Level {
	return ParseLogLevel(c.LogLevel)
}

// ParseLogLevel maps a level name to a slog level. Unknown values map to Info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// DefaultPath resolves the config file path: $XDG_CONFIG_HOME, then
// ~/.config, then os.TempDir() if the home directory cannot be resolved.
func DefaultPath() string {
	return filepath.Join(baseDir("XDG_CONFIG_HOME", ".config"), appDirName, "config.yaml")
}

// DefaultHistoryPath resolves the history file path: $XDG_DATA_HOME, then
// ~/.local/share, then os.TempDir().
func DefaultHistoryPath() string {
	return filepath.Join(baseDir("XDG_DATA_HOME", filepath.Join(".local", "share")), appDirName, "history.gz")
}

func baseDir(envVar, homeRelative string) string {
	if base := strings.TrimSpace(os.Getenv(envVar)); base != "" && filepath.IsAbs(base) {
		return base
	}
	home, err := userHomeDirFn()
	if err != nil || home == "" {
		// Keep the path resolvable even in restricted environments.
		slog.Warn("[WARN-CONFIG] using temp dir as fallback", "env", envVar, "error", err)
		return os.TempDir()
	}
	return filepath.Join(home, homeRelative)
}

// Load reads the config file. A missing or empty file yields defaults.
// Out-of-range values are clamped with a warning; a parse error returns
// defaults together with the error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, errors.New("config path required")
	}

	raw, err := document(path).Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		slog.Warn("[WARN-CONFIG] failed to parse config, using defaults", "path", path, "error", err)
		return DefaultConfig(), fmt.Errorf("parse config: %w", err)
	}
	Normalize(&cfg)
	return cfg, nil
}

// EnsureFile writes the default config if missing and returns the loaded
// config.
func EnsureFile(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		if _, err := Save(path, cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// Save normalizes cfg and writes it atomically. It returns the config that
// was actually written.
func Save(path string, cfg Config) (Config, error) {
	if strings.TrimSpace(path) == "" {
		return cfg, errors.New("config path required")
	}
	Normalize(&cfg)

	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return cfg, fmt.Errorf("save config: marshal: %w", err)
	}
	if err := document(path).Replace(raw); err != nil {
		return cfg, err
	}
	slog.Debug("[DEBUG-CONFIG] config saved", "path", path)
	return cfg, nil
}

// Normalize clamps numeric settings into their allowed ranges and resets an
// unknown log level.
// MUTATES: cfg is directly modified.
func Normalize(cfg *Config) {
	cfg.MaxHistorySize = clampInt("max_history_size", cfg.MaxHistorySize, MinMaxHistorySize, MaxMaxHistorySize)
	cfg.ProbeTimeoutMs = clampInt("probe_timeout_ms", cfg.ProbeTimeoutMs, minProbeTimeoutMs, maxProbeTimeoutMs)
	cfg.SaveDebounceMs = clampInt("save_debounce_ms", cfg.SaveDebounceMs, 0, maxSaveDebounceMs)

	cfg.HistoryPath = strings.TrimSpace(cfg.HistoryPath)
	cfg.Channel = strings.TrimSpace(cfg.Channel)

	level := strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if _, ok := validLogLevels[level]; !ok {
		if level != "" {
			slog.Warn("[WARN-CONFIG] unknown log_level, using default", "value", cfg.LogLevel, "default", DefaultLogLevel)
		}
		level = DefaultLogLevel
	}
	cfg.LogLevel = level
}

func clampInt(field string, value, lo, hi int) int {
	switch {
	case value < lo:
		slog.Warn("[WARN-CONFIG] value below minimum, clamped", "field", field, "value", value, "min", lo)
		return lo
	case value > hi:
		slog.Warn("[WARN-CONFIG] value above maximum, clamped", "field", field, "value", value, "max", hi)
		return hi
	default:
		return value
	}
}

func document(path string) fileutil.Document {
	return fileutil.Document{Kind: "config", Path: path, MaxBytes: maxConfigFileBytes}
}
