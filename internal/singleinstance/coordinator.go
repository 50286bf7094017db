// Package singleinstance keeps at most one notepad process running per user
// and forwards "show yourself" requests from later launches to it.
package singleinstance

import (
	"errors"
	"log/slog"
	"time"

	"quicknote/internal/ipc"
)

// ErrAlreadyRunning is returned by TryLock when another instance holds the lock.
var ErrAlreadyRunning = errors.New("another instance is already running")

// Outcome is the result of TryBecomeOwner.
type Outcome int

const (
	// Owner means this process owns the channel (possibly degraded).
	Owner Outcome = iota
	// AlreadyRunning means another instance owns the channel and has been
	// signalled; the caller must exit without further startup work.
	AlreadyRunning
)

func (o Outcome) String() string {
	switch o {
	case Owner:
		return "owner"
	case AlreadyRunning:
		return "already-running"
	default:
		return "unknown"
	}
}

// Options tunes the ownership probe.
type Options struct {
	// ProbeTimeout bounds each connection attempt. 0 means
	// ipc.DefaultProbeTimeout.
	ProbeTimeout time.Duration
}

type activationServer interface {
	Start() error
	Stop() error
	Address() string
}

// Test seams.
var (
	probeFn               = ipc.Probe
	tryLockFn             = TryLock
	newActivationServerFn = func(channel string, onActivate func()) activationServer {
		return ipc.NewActivationServer(channel, onActivate)
	}
)

// Coordinator is the ownership held by the running instance.
type Coordinator struct {
	channel  string
	lock     *Lock
	server   activationServer
	degraded bool
}

// TryBecomeOwner decides whether this process is the single instance for
// channel. onActivation runs on a background goroutine for every later
// launch attempt.
//
// The returned Coordinator is nil when the outcome is AlreadyRunning.
func TryBecomeOwner(channel string, onActivation func(), opts Options) (*Coordinator, Outcome) {
	if channel == "" {
		channel = ipc.DefaultChannelName()
	}
	timeout := opts.ProbeTimeout
	if timeout <= 0 {
		timeout = ipc.DefaultProbeTimeout
	}

	// A successful connection is itself the activation signal.
	if probeFn(channel, timeout) {
		slog.Info("[DEBUG-SINGLE] another instance is already running, signaled activation", "channel", channel)
		return nil, AlreadyRunning
	}

	c := &Coordinator{channel: channel}

	lock, err := tryLockFn(LockName(channel))
	switch {
	case errors.Is(err, ErrAlreadyRunning):
		// The owner holds the lock but did not answer in time. Signal it again
		// with a longer wait so the activation is not lost.
		if !probeFn(channel, 4*timeout) {
			slog.Warn("[DEBUG-SINGLE] owner holds the instance lock but does not answer", "channel", channel)
		}
		return nil, AlreadyRunning
	case err != nil:
		slog.Warn("[DEBUG-SINGLE] instance lock unavailable, proceeding without OS lock", "error", err)
		c.degraded = true
	default:
		c.lock = lock
	}

	server := newActivationServerFn(channel, onActivation)
	if err := server.Start(); err != nil {
		// Degraded mode: no cross-instance protection for this session.
		slog.Warn("[DEBUG-SINGLE] failed to bind instance channel, running standalone", "channel", channel, "error", err)
		c.degraded = true
	} else {
		c.server = server
		slog.Debug("[DEBUG-SINGLE] instance channel bound", "address", server.Address())
	}
	return c, Owner
}

// Channel returns the channel name this coordinator guards.
func (c *Coordinator) Channel() string {
	if c == nil {
		return ""
	}
	return c.channel
}

// Degraded reports whether single-instance protection is incomplete because
// the channel could not be bound or the OS lock could not be taken.
func (c *Coordinator) Degraded() bool {
	return c != nil && c.degraded
}

// Release stops listening and releases the instance lock. Safe to call on a
// nil receiver and more than once.
func (c *Coordinator) Release() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.server != nil {
		errs = append(errs, c.server.Stop())
		c.server = nil
	}
	if c.lock != nil {
		errs = append(errs, c.lock.Release())
		c.lock = nil
	}
	return errors.Join(errs...)
}
