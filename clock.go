package fiberrt

import "time"

// clockStart anchors clockNowNanos() to a monotonic reading taken at
// package init, so the returned values are small and comparable without
// risking the precision loss of converting an absolute wall-clock time to
// nanoseconds.
var clockStart = time.Now()

// clockNowNanos returns a monotonic nanosecond timestamp. SPEC_FULL.md §10
// names this as the second REDESIGN FLAG: Go exposes no portable, cheap
// cycle counter ("rdtsc-equivalent"); time.Now() is itself backed by a VDSO
// call on Linux/Darwin and is cheap enough for heartbeat/stall comparisons,
// which only need relative ordering, not cycle-accurate timing.
func clockNowNanos() int64 {
	return int64(time.Since(clockStart))
}

func clockNow() time.Time {
	return time.Now()
}
