//go:build windows

package ipc

import (
	"errors"
	"fmt"
	"net"
	"os/user"
	"regexp"
	"strings"
	"time"

	"github.com/Microsoft/go-winio"
)

const pipePrefix = `\\.\pipe\`

// Address maps a channel name to a Named Pipe path.
func Address(channel string) string {
	if strings.HasPrefix(strings.ToLower(channel), strings.ToLower(pipePrefix)) {
		return channel
	}
	return pipePrefix + channel
}

func dialChannel(address string, timeout time.Duration) (net.Conn, error) {
	return winio.DialPipe(address, &timeout)
}

// listenChannel creates a Named Pipe listener restricted to the current
// user. Pipes are kernel objects released with their owner, so there is no
// stale binding to remove.
func listenChannel(address string) (net.Listener, error) {
	securityDescriptor, err := pipeSecurityDescriptor()
	if err != nil {
		return nil, err
	}
	return winio.ListenPipe(address, &winio.PipeConfig{
		SecurityDescriptor: securityDescriptor,
		MessageMode:        false,
	})
}

var validSIDPattern = regexp.MustCompile(`^S-1(-\d+)+$`)

func pipeSecurityDescriptor() (string, error) {
	current, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("resolve current user: %w", err)
	}
	sid := strings.TrimSpace(current.Uid)
	if sid == "" {
		return "", errors.New("current user SID is unavailable")
	}
	if !validSIDPattern.MatchString(sid) {
		return "", fmt.Errorf("current user SID has unexpected format: %s", sid)
	}
	// SDDL: D:P = protected DACL (no inheritance)
	// (A;;GA;;;SY) = full access for SYSTEM
	// (A;;GA;;;%s) = full access for current user SID
	return fmt.Sprintf("D:P(A;;GA;;;SY)(A;;GA;;;%s)", sid), nil
}
