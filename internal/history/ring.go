package history

// minRingAlloc is the initial backing size. The ring grows by doubling up to
// its limit so a large max history setting does not allocate up front.
const minRingAlloc = 16

// snapshotRing is a bounded circular buffer of Snapshot. Eviction of the
// oldest entry moves head instead of shifting the backing array.
//
// Not safe for concurrent use.
type snapshotRing struct {
	buf   []Snapshot // backing array, len(buf) <= limit
	head  int        // index of the oldest entry
	count int        // number of valid entries (0..limit)
	limit int        // logical capacity
}

// newSnapshotRing allocates a ring with the given capacity.
// Capacity values <= 0 are clamped to 1 to prevent modulo-by-zero panics.
func newSnapshotRing(limit int) snapshotRing {
	if limit < 1 {
		limit = 1
	}
	return snapshotRing{
		buf:   make([]Snapshot, min(limit, minRingAlloc)),
		limit: limit,
	}
}

func (r *snapshotRing) len() int { return r.count }

func (r *snapshotRing) full() bool { return r.count >= r.limit }

// at returns the i-th entry in chronological order. i must be in [0, len).
func (r *snapshotRing) at(i int) Snapshot {
	return r.buf[(r.head+i)%len(r.buf)]
}

// push appends s. Callers evict with popFront first when the ring is full.
func (r *snapshotRing) push(s Snapshot) {
	if r.full() {
		r.popFront()
	}
	if r.count == len(r.buf) {
		r.grow()
	}
	r.buf[(r.head+r.count)%len(r.buf)] = s
	r.count++
}

// popFront drops the oldest entry.
func (r *snapshotRing) popFront() {
	if r.count == 0 {
		return
	}
	r.buf[r.head] = Snapshot{}
	r.head = (r.head + 1) % len(r.buf)
	r.count--
}

// truncate keeps the first n entries and drops the rest.
func (r *snapshotRing) truncate(n int) {
	if n < 0 {
		n = 0
	}
	for r.count > n {
		r.count--
		r.buf[(r.head+r.count)%len(r.buf)] = Snapshot{}
	}
}

// grow doubles the backing array (capped at limit) and linearizes entries.
func (r *snapshotRing) grow() {
	size := min(max(len(r.buf)*2, minRingAlloc), r.limit)
	if size <= len(r.buf) {
		return
	}
	next := make([]Snapshot, size)
	r.copyTo(next)
	r.buf = next
	r.head = 0
}

// snapshot returns a newly allocated slice containing all entries in
// chronological order (oldest first).
func (r *snapshotRing) snapshot() []Snapshot {
	out := make([]Snapshot, r.count)
	r.copyTo(out)
	return out
}

func (r *snapshotRing) copyTo(dst []Snapshot) {
	if r.count == 0 {
		return
	}
	bufCap := len(r.buf)
	first := min(bufCap-r.head, r.count)
	copy(dst, r.buf[r.head:r.head+first])
	if rest := r.count - first; rest > 0 {
		copy(dst[first:], r.buf[:rest])
	}
}

// reset drops all entries and applies a new limit.
func (r *snapshotRing) reset(limit int) {
	*r = newSnapshotRing(limit)
}
