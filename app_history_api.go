package main

import (
	"log/slog"

	"quicknote/internal/history"
)

// OnTextOrCursorChanged records the editor state. Unchanged states are
// ignored; a recorded state is persisted.
func (a *App) OnTextOrCursorChanged(text string, cursor int) {
	a.visible = history.NewSnapshot(text, cursor)
	if a.store.Record(text, cursor) == history.Unchanged {
		return
	}
	slog.Debug("[DEBUG-HISTORY] snapshot recorded", "index", a.store.Index(), "len", a.store.Len())
	a.requestSave()
}

// OnUndoRequested moves one step back and shows that state. It is a no-op at
// the oldest entry.
func (a *App) OnUndoRequested() {
	snap, ok := a.store.Undo()
	if !ok {
		slog.Debug("[DEBUG-HISTORY] undo ignored at oldest entry", "index", a.store.Index())
		return
	}
	a.showSnapshot(snap)
	a.requestSave()
}

// OnRedoRequested moves one step forward and shows that state. It is a no-op
// at the newest entry.
func (a *App) OnRedoRequested() {
	snap, ok := a.store.Redo()
	if !ok {
		slog.Debug("[DEBUG-HISTORY] redo ignored at newest entry", "index", a.store.Index())
		return
	}
	a.showSnapshot(snap)
	a.requestSave()
}

// OnClearHistoryRequested drops every entry and saves right away. The
// visible text is left as is.
func (a *App) OnClearHistoryRequested() {
	a.store.Clear()
	slog.Info("[DEBUG-HISTORY] history cleared")
	a.saveNow()
}

func (a *App) onActivation() {
	slog.Debug("[DEBUG-SINGLE] activation requested by another launch")
	if a.frontend != nil {
		a.frontend.Activate()
	}
}

func (a *App) showCurrent() {
	snap, _ := a.store.Current()
	a.showSnapshot(snap)
}

func (a *App) showSnapshot(snap history.Snapshot) {
	a.visible = snap
	if a.frontend != nil {
		a.frontend.ShowSnapshot(snap)
	}
}
