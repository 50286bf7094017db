package main

import (
	"context"
	"log/slog"
)

// eventQueueSize bounds activation, flush and reload notifications queued
// before Run drains them.
const eventQueueSize = 16

// RequestKind identifies a user action coming from the frontend.
type RequestKind int

const (
	// RequestSetText replaces the whole text and cursor.
	RequestSetText RequestKind = iota
	// RequestAppend appends Text to the current text and moves the cursor
	// to the end.
	RequestAppend
	// RequestMoveCursor keeps the text and moves the cursor to Cursor.
	RequestMoveCursor
	RequestUndo
	RequestRedo
	RequestClearHistory
	// RequestShow redisplays the visible text.
	RequestShow
	RequestQuit
)

func (k RequestKind) String() string {
	switch k {
	case RequestSetText:
		return "set-text"
	case RequestAppend:
		return "append"
	case RequestMoveCursor:
		return "move-cursor"
	case RequestUndo:
		return "undo"
	case RequestRedo:
		return "redo"
	case RequestClearHistory:
		return "clear-history"
	case RequestShow:
		return "show"
	case RequestQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Request is a user action delivered to Run.
type Request struct {
	Kind   RequestKind
	Text   string
	Cursor int
}

type appEventKind int

const (
	eventActivate appEventKind = iota
	eventFlush
	eventConfigChanged
)

type appEvent struct {
	kind appEventKind
}

// postEvent queues ev for the event loop. It is the only App method that is
// safe to call from other goroutines. Events posted after shutdown are
// dropped.
func (a *App) postEvent(ev appEvent) {
	if a.shuttingDown.Load() {
		slog.Debug("[EVENT] event dropped during shutdown", "kind", ev.kind)
		return
	}
	select {
	case a.events <- ev:
	case <-a.stopped:
		slog.Debug("[EVENT] event dropped after shutdown", "kind", ev.kind)
	}
}

// handleEvent runs on the event loop.
func (a *App) handleEvent(ev appEvent) {
	switch ev.kind {
	case eventActivate:
		a.onActivation()
	case eventFlush:
		a.flushPendingSave()
	case eventConfigChanged:
		a.reloadConfig()
	default:
		slog.Warn("[EVENT] unknown event kind", "kind", ev.kind)
	}
}

// handleRequest runs on the event loop. It reports false when the user asked
// to quit.
func (a *App) handleRequest(req Request) bool {
	switch req.Kind {
	case RequestSetText:
		a.OnTextOrCursorChanged(req.Text, req.Cursor)
	case RequestAppend:
		text := a.visible.Text + req.Text
		a.OnTextOrCursorChanged(text, len([]rune(text)))
	case RequestMoveCursor:
		cursor := min(max(req.Cursor, 0), len([]rune(a.visible.Text)))
		if cursor == a.visible.Cursor {
			// The editor did not change; after Clear the store has no
			// current entry to compare against.
			return true
		}
		a.OnTextOrCursorChanged(a.visible.Text, cursor)
	case RequestUndo:
		a.OnUndoRequested()
	case RequestRedo:
		a.OnRedoRequested()
	case RequestClearHistory:
		a.OnClearHistoryRequested()
	case RequestShow:
		a.showSnapshot(a.visible)
	case RequestQuit:
		return false
	default:
		slog.Warn("[EVENT] unknown request kind", "kind", req.Kind)
	}
	return true
}

// Run drains requests and internal events until ctx is cancelled, requests
// is closed or a RequestQuit arrives.
func (a *App) Run(ctx context.Context, requests <-chan Request) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req, ok := <-requests:
			if !ok {
				return nil
			}
			if !a.handleRequest(req) {
				return nil
			}
		case ev := <-a.events:
			a.handleEvent(ev)
		}
	}
}
