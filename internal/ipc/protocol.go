// Package ipc implements the local rendezvous channel used for
// single-instance activation. The protocol carries no payload: a successful
// connection is the "activate" signal.
package ipc

import (
	"log/slog"
	"os"
	"os/user"
	"regexp"
	"strings"
)

const (
	// channelEnvVar overrides the default channel name.
	channelEnvVar = "QUICKNOTE_CHANNEL"
	// defaultChannelPrefix keeps the historical "QuickNoteInstance" channel name.
	defaultChannelPrefix = "QuickNoteInstance-"
)

var (
	channelNamePattern  = regexp.MustCompile(`^QuickNoteInstance-[A-Za-z0-9._-]{1,128}$`)
	invalidChannelRunes = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)
)

// sanitizeChannelSegment normalizes username-like values used in channel
// names.
func sanitizeChannelSegment(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return invalidChannelRunes.ReplaceAllString(value, "_")
}

// DefaultChannelName returns the per-user channel name. If QUICKNOTE_CHANNEL
// is set and passes pattern validation, its value is used instead.
func DefaultChannelName() string {
	if v, ok := trustedChannelFromEnv(); ok {
		return v
	}
	return defaultChannelPrefix + sanitizeChannelSegment(currentUsername())
}

func currentUsername() string {
	for _, key := range []string{"USER", "USERNAME"} {
		if name := strings.TrimSpace(os.Getenv(key)); name != "" {
			return name
		}
	}
	if current, err := user.Current(); err == nil {
		return current.Username
	}
	return ""
}

func trustedChannelFromEnv() (string, bool) {
	value := strings.TrimSpace(os.Getenv(channelEnvVar))
	if value == "" {
		return "", false
	}
	if !channelNamePattern.MatchString(value) {
		slog.Warn("[ipc] QUICKNOTE_CHANNEL rejected: value does not match allowed pattern", "value", value)
		return "", false
	}
	return value, true
}
