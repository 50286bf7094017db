package history

import (
	"errors"
	"log/slog"
	"os"

	"quicknote/internal/fileutil"
)

// maxHistoryFileBytes bounds the compressed file read at startup.
const maxHistoryFileBytes int64 = 64 << 20

// Persister binds a Store to a file path.
type Persister struct {
	path string
}

// NewPersister returns a Persister for path.
func NewPersister(path string) *Persister {
	return &Persister{path: path}
}

// Path returns the history file path.
func (p *Persister) Path() string { return p.path }

// Load reads the history file into a new store with the given capacity.
//
// A missing or empty file yields an empty store and a nil error. A read or
// decode failure yields an empty store and the error; callers log it and
// continue. The persisted index is clamped into the valid range.
func (p *Persister) Load(maxSize int) (*Store, error) {
	store := NewStore(maxSize)
	if p.path == "" {
		return store, errors.New("history path required")
	}

	raw, err := p.document().Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("[DEBUG-HISTORY] no history file, starting empty", "path", p.path)
			return store, nil
		}
		return store, err
	}
	if len(raw) == 0 {
		return store, nil
	}

	env, err := Decode(raw)
	if err != nil {
		return store, err
	}
	store.Restore(env.History, env.State.CurrentIndex)
	if store.Index() != env.State.CurrentIndex || store.Len() != len(env.History) {
		slog.Warn("[DEBUG-HISTORY] persisted history adjusted on load",
			"path", p.path,
			"entries", len(env.History),
			"kept", store.Len(),
			"persistedIndex", env.State.CurrentIndex,
			"index", store.Index(),
		)
	}
	return store, nil
}

// Save writes the full log and current index of store to disk.
func (p *Persister) Save(store *Store) error {
	if store == nil {
		return errors.New("history store is nil")
	}
	if p.path == "" {
		return errors.New("history path required")
	}
	data, err := Encode(Envelope{
		History: store.Snapshots(),
		State:   State{CurrentIndex: store.Index()},
	})
	if err != nil {
		return err
	}
	if err := p.document().Replace(data); err != nil {
		return err
	}
	slog.Debug("[DEBUG-HISTORY] history saved", "path", p.path, "entries", store.Len(), "index", store.Index())
	return nil
}

func (p *Persister) document() fileutil.Document {
	return fileutil.Document{Kind: "history", Path: p.path, MaxBytes: maxHistoryFileBytes}
}
