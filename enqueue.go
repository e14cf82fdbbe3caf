package fiberrt

import "time"

// orphanThreshold is how stale a worker's heartbeat must be before a freshly
// unparked fiber affine to it is diverted to the global queue instead
// (SPEC_FULL.md §4.5 point 2's "orphan" escape hatch).
const orphanThreshold = 50 * time.Millisecond

// enqueueUnparked implements the affinity-aware enqueue used whenever a
// fiber transitions PARKED -> QUEUED, per SPEC_FULL.md §4.5. It always
// wakes one sleeping worker after enqueueing; SPEC_FULL.md's "skip the
// wake if we pushed to our own local queue" case is a pure micro-
// optimization for the single caller who happens to already be the
// affine worker mid-commit, and is intentionally not tracked separately
// here — an extra wake of an already-running worker is a no-op, never a
// correctness issue.
func enqueueUnparked(f *Fiber) {
	s := globalSched()

	preferred := int(f.lastWorkerID.Load())
	var w *worker
	s.workersMu.RLock()
	if preferred >= 0 && preferred < len(s.workers) {
		w = s.workers[preferred]
	}
	s.workersMu.RUnlock()

	if w == nil || s.heartbeatStale(w, orphanThreshold) || w.inbox.Overloaded() {
		s.log.inbox("diverting unparked fiber to global queue (no affinity/stale/overloaded)", preferred)
		s.global.Push(f)
		s.wakeOne()
		return
	}

	if !w.inbox.Push(f) {
		s.log.inbox("inbox full, falling back to global queue", w.id)
		s.global.Push(f)
	} else {
		s.log.inbox("pushed unparked fiber to affine worker inbox", w.id)
	}
	s.wakeOne()
}
