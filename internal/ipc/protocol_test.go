package ipc

import (
	"strings"
	"testing"
)

func TestDefaultChannelNameHonorsTrustedEnvOverride(t *testing.T) {
	t.Setenv(channelEnvVar, "QuickNoteInstance-ci_channel")

	if got := DefaultChannelName(); got != "QuickNoteInstance-ci_channel" {
		t.Fatalf("DefaultChannelName() = %q, want trusted env override", got)
	}
}

func TestDefaultChannelNameRejectsUntrustedEnvOverride(t *testing.T) {
	t.Setenv(channelEnvVar, "../../etc/other-app")
	t.Setenv("USER", "unit-tester")

	got := DefaultChannelName()
	if got != defaultChannelPrefix+"unit-tester" {
		t.Fatalf("DefaultChannelName() = %q, want per-user default", got)
	}
}

func TestDefaultChannelNameSanitizesUsername(t *testing.T) {
	t.Setenv(channelEnvVar, "")
	t.Setenv("USER", `DOMAIN\unit user!`)

	got := DefaultChannelName()
	want := defaultChannelPrefix + "DOMAIN_unit_user_"
	if got != want {
		t.Fatalf("DefaultChannelName() = %q, want %q", got, want)
	}
}

func TestDefaultChannelNameFallbackWhenUsernameEmpty(t *testing.T) {
	t.Setenv(channelEnvVar, "")
	t.Setenv("USER", "")
	t.Setenv("USERNAME", "")

	got := DefaultChannelName()

	// user.Current() may succeed (returning the OS user) or fail (returning
	// "unknown"); either way the suffix must not be empty.
	if !strings.HasPrefix(got, defaultChannelPrefix) {
		t.Fatalf("DefaultChannelName() = %q, want prefix %q", got, defaultChannelPrefix)
	}
	if strings.TrimPrefix(got, defaultChannelPrefix) == "" {
		t.Fatalf("DefaultChannelName() = %q, suffix after prefix must not be empty", got)
	}
}

func TestSanitizeChannelSegment(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "alice", want: "alice"},
		{name: "domain user", input: "DOMAIN\\user", want: "DOMAIN_user"},
		{name: "email", input: "user@domain.com", want: "user_domain.com"},
		{name: "empty", input: "", want: "unknown"},
		{name: "whitespace", input: "  ", want: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeChannelSegment(tt.input); got != tt.want {
				t.Fatalf("sanitizeChannelSegment(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
