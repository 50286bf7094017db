// Package history implements the persistent undo/redo log of the notepad:
// a bounded in-memory store of text snapshots, the compressed on-disk codec,
// and the file binding that loads and saves it.
package history

import (
	"log/slog"
	"strings"
)

const (
	// DefaultMaxSize matches the default "max history" setting.
	DefaultMaxSize = 9999

	// noIndex is the current index of an empty store.
	noIndex = -1
)

// Snapshot is one recorded editing state: the full text and the cursor
// position inside it.
type Snapshot struct {
	Text   string `json:"text"`
	Cursor int    `json:"cursor"`
}

// NewSnapshot returns a Snapshot with a non-negative cursor. Invalid UTF-8
// in text becomes U+FFFD, which is what the codec would write anyway.
func NewSnapshot(text string, cursor int) Snapshot {
	return Snapshot{Text: strings.ToValidUTF8(text, "\uFFFD"), Cursor: max(cursor, 0)}
}

// RecordOutcome reports whether Record changed the log.
type RecordOutcome int

const (
	// Unchanged means the candidate equalled the current snapshot.
	Unchanged RecordOutcome = iota
	// Recorded means a snapshot was appended and the log must be saved.
	Recorded
)

func (o RecordOutcome) String() string {
	if o == Recorded {
		return "recorded"
	}
	return "unchanged"
}

// Store is the bounded undo/redo log plus the position of the displayed
// snapshot inside it.
//
// Invariants: Len() <= MaxSize(); an empty store has Index() == -1,
// otherwise 0 <= Index() < Len().
//
// Not safe for concurrent use; the app drives it from a single event loop.
type Store struct {
	log     snapshotRing
	index   int
	maxSize int
}

// NewStore creates an empty store. maxSize <= 0 is treated as 1, which keeps
// only the latest state.
func NewStore(maxSize int) *Store {
	maxSize = normalizeMaxSize(maxSize)
	return &Store{
		log:     newSnapshotRing(maxSize),
		index:   noIndex,
		maxSize: maxSize,
	}
}

func normalizeMaxSize(maxSize int) int {
	if maxSize < 1 {
		slog.Debug("[DEBUG-HISTORY] max history size out of range, using 1", "value", maxSize)
		return 1
	}
	return maxSize
}

// Len returns the number of stored snapshots.
func (s *Store) Len() int { return s.log.len() }

// Index returns the current position, or -1 when the store is empty.
func (s *Store) Index() int { return s.index }

// MaxSize returns the capacity of the log.
func (s *Store) MaxSize() int { return s.maxSize }

// Current returns the snapshot at the current index.
func (s *Store) Current() (Snapshot, bool) {
	if s.index < 0 || s.index >= s.log.len() {
		return Snapshot{}, false
	}
	return s.log.at(s.index), true
}

// Snapshots returns a copy of the log, oldest first.
func (s *Store) Snapshots() []Snapshot {
	return s.log.snapshot()
}

// Record appends (text, cursor) as a new snapshot unless it equals the
// snapshot at the current index. Any redo tail after the current index is
// discarded; when the log is full the oldest snapshot is evicted.
func (s *Store) Record(text string, cursor int) RecordOutcome {
	candidate := NewSnapshot(text, cursor)
	if current, ok := s.Current(); ok && current == candidate {
		return Unchanged
	}

	// Branch point: a new edit after undo drops the redo tail.
	s.log.truncate(s.index + 1)
	s.index++

	if s.log.len()+1 > s.maxSize {
		s.log.popFront()
		s.index--
	}
	s.log.push(candidate)
	return Recorded
}

// Undo moves one step back and returns the snapshot to display. It reports
// false and leaves the store untouched when there is no earlier state.
func (s *Store) Undo() (Snapshot, bool) {
	if s.index <= 0 {
		return Snapshot{}, false
	}
	s.index--
	return s.log.at(s.index), true
}

// Redo moves one step forward and returns the snapshot to display. It
// reports false when the current snapshot is already the newest.
func (s *Store) Redo() (Snapshot, bool) {
	if s.index >= s.log.len()-1 {
		return Snapshot{}, false
	}
	s.index++
	return s.log.at(s.index), true
}

// Clear empties the log.
func (s *Store) Clear() {
	s.log.reset(s.maxSize)
	s.index = noIndex
}

// SetMaxSize changes the capacity. When shrinking, the oldest snapshots are
// dropped and the index keeps pointing at the same logical entry, or at the
// oldest kept one if its entry was dropped. It returns the number of
// dropped snapshots.
func (s *Store) SetMaxSize(maxSize int) int {
	maxSize = normalizeMaxSize(maxSize)
	if maxSize == s.maxSize {
		return 0
	}
	entries := s.log.snapshot()
	s.maxSize = maxSize
	return s.restore(entries, s.index)
}

// Restore replaces the log with snaps and positions it at index. Only the
// newest MaxSize() snapshots are kept and index is clamped into the valid
// range, so the result always satisfies the store invariants.
func (s *Store) Restore(snaps []Snapshot, index int) {
	s.restore(snaps, index)
}

func (s *Store) restore(snaps []Snapshot, index int) int {
	s.log.reset(s.maxSize)
	if len(snaps) == 0 {
		s.index = noIndex
		return 0
	}

	dropped := max(len(snaps)-s.maxSize, 0)
	for _, snap := range snaps[dropped:] {
		s.log.push(NewSnapshot(snap.Text, snap.Cursor))
	}
	s.index = clampIndex(index-dropped, s.log.len())
	return dropped
}

func clampIndex(index, length int) int {
	if length == 0 {
		return noIndex
	}
	return min(max(index, 0), length-1)
}
