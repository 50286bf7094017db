// Package workerutil supervises the notepad's background loops (the
// activation accept loop and the config watcher): a panic is logged under
// the owner's tag and the loop is restarted with backoff.
package workerutil

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

const (
	defaultFirstDelay = 100 * time.Millisecond
	defaultMaxDelay   = 5 * time.Second
	defaultMaxRuns    = 10
	defaultTag        = "[DEBUG-PANIC]"
)

// Worker is a long-lived loop owned by a component.
type Worker struct {
	// Name identifies the loop in logs ("ipc-accept", "config-watcher").
	Name string
	// Tag is the owner's log prefix, e.g. "[ipc]".
	Tag string
	Run func(ctx context.Context)
	// Stopping reports that the owner is shutting down. A panic seen while
	// stopping ends the worker instead of restarting it.
	Stopping func() bool
}

// RestartPolicy bounds restarts after a panic. Zero fields select 100ms,
// 5s and 10 runs. MaxRuns of 1 disables restarts.
type RestartPolicy struct {
	FirstDelay time.Duration
	MaxDelay   time.Duration
	MaxRuns    int

	// OnPanic is called after each recovered panic with the 1-based run.
	OnPanic func(run int)
	// OnGiveUp is called once when the last allowed run panicked.
	OnGiveUp func(runs int)
}

func (p RestartPolicy) withDefaults(tag string) RestartPolicy {
	if p.FirstDelay <= 0 {
		p.FirstDelay = defaultFirstDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = defaultMaxDelay
	}
	if p.MaxRuns <= 0 {
		p.MaxRuns = defaultMaxRuns
	}
	if p.MaxDelay < p.FirstDelay {
		slog.Warn(tag+" restart MaxDelay below FirstDelay, using FirstDelay", "firstDelay", p.FirstDelay, "maxDelay", p.MaxDelay)
		p.MaxDelay = p.FirstDelay
	}
	return p
}

// Supervise runs w in a goroutine tracked by wg until it returns normally,
// ctx is cancelled, or it has panicked MaxRuns times.
func Supervise(ctx context.Context, wg *sync.WaitGroup, w Worker, policy RestartPolicy) {
	if w.Tag == "" {
		w.Tag = defaultTag
	}
	policy = policy.withDefaults(w.Tag)
	wg.Go(func() {
		supervise(ctx, w, policy)
	})
}

func supervise(ctx context.Context, w Worker, p RestartPolicy) {
	delay := p.FirstDelay
	for run := 1; ; run++ {
		if !w.runGuarded(ctx) || ctx.Err() != nil {
			return
		}
		if w.Stopping != nil && w.Stopping() {
			slog.Info(w.Tag+" worker panicked during shutdown, not restarting", "worker", w.Name)
			return
		}
		if p.OnPanic != nil {
			p.OnPanic(run)
		}
		if run >= p.MaxRuns {
			slog.Error(w.Tag+" worker keeps panicking, giving up", "worker", w.Name, "runs", run)
			if p.OnGiveUp != nil {
				p.OnGiveUp(run)
			}
			return
		}

		slog.Warn(w.Tag+" restarting worker", "worker", w.Name, "run", run, "delay", delay)
		if !sleepContext(ctx, delay) {
			return
		}
		delay = nextBackoff(delay, p.MaxDelay)
	}
}

// runGuarded reports whether Run panicked.
func (w Worker) runGuarded(ctx context.Context) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error(w.Tag+" worker recovered from panic",
				"worker", w.Name,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			panicked = true
		}
	}()
	w.Run(ctx)
	return false
}

// sleepContext reports false when ctx ended before d elapsed.
func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// nextBackoff doubles current, capped at maxDelay and guarded against
// overflow.
func nextBackoff(current, maxDelay time.Duration) time.Duration {
	if current <= 0 {
		return defaultFirstDelay
	}
	next := current * 2
	if current >= maxDelay || next > maxDelay || next < current {
		return maxDelay
	}
	return next
}
