package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"quicknote/internal/workerutil"
)

// maxConsecutiveAcceptErrors is the point after which accept failures are
// treated as possibly permanent and the loop starts to back off.
const maxConsecutiveAcceptErrors = 10

// ActivationServer owns the channel and turns every accepted connection into
// an activation callback.
type ActivationServer struct {
	channel    string
	address    string
	onActivate func()

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	listener net.Listener
	started  bool
	stopping atomic.Bool
	wg       sync.WaitGroup
}

// NewActivationServer constructs a server for channel. onActivate runs on
// the accept goroutine once per accepted connection.
func NewActivationServer(channel string, onActivate func()) *ActivationServer {
	ctx, cancel := context.WithCancel(context.Background())
	if channel == "" {
		channel = DefaultChannelName()
	}
	return &ActivationServer{
		channel:    channel,
		address:    Address(channel),
		onActivate: onActivate,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Address returns the resolved listen address.
func (s *ActivationServer) Address() string {
	return s.address
}

// Start binds the channel and begins accepting connections.
func (s *ActivationServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("activation server already started")
	}
	if s.onActivate == nil {
		return errors.New("activation server requires callback")
	}

	listener, err := listenChannel(s.address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.address, err)
	}

	s.listener = listener
	s.started = true
	workerutil.Supervise(s.ctx, &s.wg, workerutil.Worker{
		Name:     "ipc-accept",
		Tag:      "[ipc]",
		Run:      s.acceptLoop,
		Stopping: s.stopping.Load,
	}, workerutil.RestartPolicy{})
	return nil
}

// Stop closes the listener and waits for the accept loop to exit.
func (s *ActivationServer) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.stopping.Store(true)
	s.cancel()
	listener := s.listener
	s.listener = nil
	s.mu.Unlock()

	var closeErr error
	if listener != nil {
		if err := listener.Close(); err != nil {
			slog.Warn("[ipc] failed to close listener during shutdown", "error", err)
			closeErr = err
		}
	}
	s.wg.Wait()
	return closeErr
}

func (s *ActivationServer) acceptLoop(ctx context.Context) {
	consecutiveErrors := 0
	for {
		s.mu.Lock()
		listener := s.listener
		s.mu.Unlock()
		if listener == nil {
			return
		}

		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			consecutiveErrors++
			if consecutiveErrors > maxConsecutiveAcceptErrors {
				slog.Warn("[ipc] accept loop: repeated failures, possible permanent error", "error", err, "count", consecutiveErrors)
				time.Sleep(500 * time.Millisecond)
			} else {
				slog.Debug("[ipc] accept error", "error", err)
			}
			continue
		}
		consecutiveErrors = 0

		// The connection itself is the signal; nothing is read or written.
		if closeErr := conn.Close(); closeErr != nil {
			slog.Debug("[ipc] failed to close activation connection", "error", closeErr)
		}
		slog.Debug("[ipc] activation request received", "address", s.address)
		s.onActivate()
	}
}
