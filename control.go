package fiberrt

import (
	"sync/atomic"
)

// control is the per-fiber atomic lifecycle/ownership word described in
// SPEC_FULL.md §3. It is a signed 64-bit value:
//
//	idleControl    (0)  — sitting in the free-list pool.
//	queuedControl  (-1) — present in a run queue, runnable.
//	parkedControl  (-2) — suspended, stack quiescent, safe to resume.
//	parkingControl (-3) — reserved sentinel, never committed (see below).
//	doneControl    (-4) — completed; stack quiescent; joiners may reclaim.
//	owned(wid)     (wid+1, always >= 1) — stack exclusively held by worker wid.
//
// At most one worker may observe ownedControl(wid) for a given fiber at a
// time; every other transition is a compare-and-swap so concurrent workers
// never both believe they own the same stack.
//
// parkingControl is carried only for documentation/debug-printing
// completeness — an artifact of a legacy protocol this implementation does
// not use operationally. No code path ever stores it (SPEC_FULL.md §9 Open
// Question).
const (
	idleControl    int64 = 0
	queuedControl  int64 = -1
	parkedControl  int64 = -2
	parkingControl int64 = -3
	doneControl    int64 = -4
)

// ownedControl returns the control-word value meaning "exclusively owned by
// worker wid". wid must be >= 0.
func ownedControl(wid int) int64 {
	return int64(wid) + 1
}

// ownerOf returns (workerID, true) if c represents exclusive ownership.
func ownerOf(c int64) (int, bool) {
	if c >= 1 {
		return int(c - 1), true
	}
	return -1, false
}

func controlString(c int64) string {
	switch c {
	case idleControl:
		return "IDLE"
	case queuedControl:
		return "QUEUED"
	case parkedControl:
		return "PARKED"
	case parkingControl:
		return "PARKING"
	case doneControl:
		return "DONE"
	default:
		if wid, ok := ownerOf(c); ok {
			return "OWNED(" + itoa(wid) + ")"
		}
		return "INVALID"
	}
}

// itoa avoids pulling in strconv for this one hot-path-adjacent helper.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// controlWord is a cache-line padded atomic control word, mirroring the
// scheduler-lifecycle fastState in state.go but carrying the fiber control-word
// encoding (signed, with an embedded worker id rather than a small enum).
type controlWord struct { // betteralign:ignore
	_ [64]byte //nolint:unused
	v atomic.Int64
	_ [56]byte //nolint:unused
}

func (c *controlWord) init() {
	c.v.Store(idleControl)
}

func (c *controlWord) Load() int64 {
	return c.v.Load()
}

func (c *controlWord) Store(v int64) {
	c.v.Store(v)
}

func (c *controlWord) CAS(from, to int64) bool {
	return c.v.CompareAndSwap(from, to)
}

// tryAcquire attempts QUEUED -> OWNED(wid). Returns false if the fiber was
// already claimed by another worker, or stolen/dropped as a stale entry.
func (c *controlWord) tryAcquire(wid int) bool {
	return c.v.CompareAndSwap(queuedControl, ownedControl(wid))
}

// isOwnedBy reports whether the control word currently reflects exclusive
// ownership by worker wid.
func (c *controlWord) isOwnedBy(wid int) bool {
	return c.v.Load() == ownedControl(wid)
}
