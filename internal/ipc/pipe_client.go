package ipc

import (
	"errors"
	"log/slog"
	"net"
	"time"
)

// DefaultProbeTimeout bounds the liveness probe so a second launch never
// hangs on an unresponsive owner.
const DefaultProbeTimeout = 500 * time.Millisecond

// Probe connects to channel and closes the connection right away. It reports
// true when an owner accepted the connection, which is also the activation
// signal for that owner. Timeouts and refusals report false.
func Probe(channel string, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	address := Address(channel)
	conn, err := dialChannel(address, timeout)
	if err != nil {
		slog.Debug("[ipc] probe found no owner", "address", address, "error", err, "connectionError", IsConnectionError(err))
		return false
	}
	if closeErr := conn.Close(); closeErr != nil {
		slog.Debug("[ipc] failed to close probe connection", "error", closeErr)
	}
	return true
}

// IsConnectionError returns true when the error indicates that the channel
// owner is absent or unreachable (dial/connect failures).
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial" || opErr.Op == "open"
	}
	return false
}
