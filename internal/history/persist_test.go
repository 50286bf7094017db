package history

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestPersisterSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.gz")
	p := NewPersister(path)

	store := NewStore(10)
	store.Record("a", 1)
	store.Record("ab", 2)
	store.Record("abc", 3)
	store.Undo()

	if err := p.Save(store); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := p.Load(10)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(loaded.Snapshots(), store.Snapshots()) {
		t.Fatalf("loaded snapshots = %+v, want %+v", loaded.Snapshots(), store.Snapshots())
	}
	if loaded.Index() != 1 {
		t.Fatalf("loaded Index() = %d, want 1", loaded.Index())
	}
	// The redo tail survives a restart.
	if got, ok := loaded.Redo(); !ok || got.Text != "abc" {
		t.Fatalf("Redo() after load = %+v, %v; want abc", got, ok)
	}
}

func TestPersisterSaveUsesPrivateMode(t *testing.T) {
	if os.PathSeparator == '\\' {
		t.Skip("file modes are not enforced on Windows")
	}
	path := filepath.Join(t.TempDir(), "history.gz")
	store := NewStore(5)
	store.Record("secret", 6)
	if err := NewPersister(path).Save(store); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if mode := info.Mode().Perm(); mode != 0o600 {
		t.Fatalf("file mode = %o, want 600", mode)
	}
}

func TestPersisterLoadMissingOrEmpty(t *testing.T) {
	dir := t.TempDir()
	emptyPath := filepath.Join(dir, "empty.gz")
	if err := os.WriteFile(emptyPath, nil, 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	for _, path := range []string{filepath.Join(dir, "missing.gz"), emptyPath} {
		store, err := NewPersister(path).Load(5)
		if err != nil {
			t.Fatalf("Load(%s) error = %v, want nil", filepath.Base(path), err)
		}
		if store.Len() != 0 || store.Index() != -1 {
			t.Fatalf("Load(%s) Len()/Index() = %d/%d, want 0/-1", filepath.Base(path), store.Len(), store.Index())
		}
	}
}

func TestPersisterLoadCorruptFileYieldsEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.gz")
	if err := os.WriteFile(path, []byte{0x1f, 0x8b, 0x08, 0x00, 0xde, 0xad}, 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	store, err := NewPersister(path).Load(5)
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("Load() error = %v, want ErrDecode", err)
	}
	if store == nil {
		t.Fatal("Load() returned nil store on decode failure")
	}
	if store.Len() != 0 || store.Index() != -1 {
		t.Fatalf("Len()/Index() = %d/%d, want 0/-1", store.Len(), store.Index())
	}
}

func TestPersisterLoadClampsOutOfRangeIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.gz")
	data, err := Encode(Envelope{
		History: []Snapshot{{"a", 1}, {"b", 1}},
		State:   State{CurrentIndex: 17},
	})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	store, err := NewPersister(path).Load(5)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if store.Index() != 1 {
		t.Fatalf("Index() = %d, want 1", store.Index())
	}
	if cur, _ := store.Current(); cur.Text != "b" {
		t.Fatalf("Current() = %+v, want b", cur)
	}
}

func TestPersisterLoadAppliesSmallerCapacity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.gz")
	big := NewStore(10)
	for _, text := range []string{"a", "b", "c", "d"} {
		big.Record(text, 0)
	}
	p := NewPersister(path)
	if err := p.Save(big); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	store, err := p.Load(2)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := texts(store.Snapshots()); !reflect.DeepEqual(got, []string{"c", "d"}) {
		t.Fatalf("texts = %v, want [c d]", got)
	}
	if store.Index() != 1 {
		t.Fatalf("Index() = %d, want 1", store.Index())
	}
}

func TestPersisterSaveOverwritesPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.gz")
	p := NewPersister(path)
	store := NewStore(5)
	store.Record("first", 5)
	if err := p.Save(store); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	store.Clear()
	if err := p.Save(store); err != nil {
		t.Fatalf("Save() after Clear error = %v", err)
	}

	loaded, err := p.Load(5)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Len() != 0 || loaded.Index() != -1 {
		t.Fatalf("Len()/Index() = %d/%d, want 0/-1", loaded.Len(), loaded.Index())
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("directory has %d entries, want only the history file (temp files leaked?)", len(entries))
	}
}

func TestPersisterRejectsEmptyPathAndNilStore(t *testing.T) {
	if err := NewPersister("").Save(NewStore(1)); err == nil {
		t.Fatal("Save() with empty path error = nil")
	}
	if err := NewPersister(filepath.Join(t.TempDir(), "h.gz")).Save(nil); err == nil {
		t.Fatal("Save(nil) error = nil")
	}
	store, err := NewPersister("").Load(3)
	if err == nil {
		t.Fatal("Load() with empty path error = nil")
	}
	if store == nil || store.Len() != 0 {
		t.Fatal("Load() with empty path must still return an empty store")
	}
}
