package fiberrt

import (
	"sync/atomic"
	"time"
)

// Park-before-commit protocol (SPEC_FULL.md §4.4). Two halves:
//
//   - Park/ParkIf run INSIDE the fiber body (as methods on *Fiber, since
//     every fiber entry point receives its own *Fiber): they record the
//     park condition, set the yield destination, and block on the
//     coroutine's checkpoint. Control returns to the worker loop holding a
//     now-quiescent stack.
//   - commitYield runs in the WORKER immediately after coroutine.Resume
//     returns: it inspects the destination the fiber recorded and performs
//     the actual control-word transition, including the Dekker interlock
//     that closes the lost-wakeup window against a racing Unpark.

// Park unconditionally parks the current fiber, recording reason for
// diagnostics (DEBUG_STALL / stall dumps, SPEC_FULL.md §4.8).
func (f *Fiber) Park(reason string) {
	f.parkWithFlag(nil, false, reason)
}

// ParkIf parks the current fiber unless/until *flag no longer equals
// expected. Fast paths below avoid ever touching the coroutine when no
// suspension is actually needed.
func (f *Fiber) ParkIf(flag *atomic.Bool, expected bool, reason string) {
	f.parkWithFlag(flag, expected, reason)
}

func (f *Fiber) parkWithFlag(flag *atomic.Bool, expected bool, reason string) {
	// Fast path: an unparker already beat us to it.
	if f.pendingUnpark.CompareAndSwap(true, false) {
		return
	}
	// Fast path: the condition has already changed.
	if flag != nil && flag.Load() != expected {
		return
	}

	f.parkFlag = flag
	f.parkExpected = expected
	f.parkReason = reason
	f.destYield = yieldPark
	f.co.checkpoint()

	f.parkFlag = nil
	f.parkReason = ""
}

// commitYield runs on the worker goroutine immediately after Resume
// returns with control still OWNED(wid). It is the only place a fiber's
// control word leaves OWNED.
func (w *worker) commitYield(f *Fiber) {
	if f.done.Load() {
		f.control.Store(doneControl)
		f.touch()
		w.sched.pending.Add(-1)
		f.releaseJoiners()
		return
	}

	dest := f.destYield
	f.destYield = yieldNone

	switch dest {
	case yieldPark:
		w.commitPark(f)
	case yieldLocal:
		f.control.Store(queuedControl)
		f.touch()
		if !w.local.Push(f) {
			w.sched.global.Push(f)
		}
	case yieldGlobal:
		f.control.Store(queuedControl)
		f.touch()
		w.sched.global.Push(f)
	case yieldSleep:
		f.control.Store(queuedControl)
		f.touch()
		w.sched.sleepQ.Push(f)
	default:
		// Should not happen for a fiber that hasn't finished: the
		// coroutine either yielded with a destination or it is done.
		// Treat as an invariant violation rather than silently dropping
		// the fiber.
		f.sched.fatal(&FatalError{Message: "fiberrt: coroutine suspended without a recorded yield destination"})
	}
}

// commitPark performs the PARKED commit and the Dekker post-commit
// re-check described in SPEC_FULL.md §4.4.
func (w *worker) commitPark(f *Fiber) {
	// Re-check pendingUnpark: an Unpark may have raced us between the
	// fiber's fast-path check and this commit.
	if f.pendingUnpark.CompareAndSwap(true, false) {
		f.control.Store(queuedControl)
		f.touch()
		w.sched.global.Push(f)
		w.sched.wakeOne()
		return
	}
	if f.parkFlag != nil && f.parkFlag.Load() != f.parkExpected {
		f.control.Store(queuedControl)
		f.touch()
		w.sched.global.Push(f)
		w.sched.wakeOne()
		return
	}

	if !f.control.CAS(ownedControl(w.id), parkedControl) {
		f.sched.fatal(&FatalError{Message: "fiberrt: control word changed under a worker's exclusive ownership"})
		return
	}
	f.touch()
	f.parkedAt = clockNow()
	w.sched.parked.Add(1)
	w.sched.log.park("fiber committed to parked", f.ID(), f.parkReason)

	// Post-commit Dekker step (seq_cst via atomic ops): swap pendingUnpark
	// again now that PARKED is visible. If an Unpark raced us right at the
	// CAS above, it will have observed OWNED and set pendingUnpark instead
	// of advancing control — this is where we notice and undo the park.
	if f.pendingUnpark.CompareAndSwap(true, false) {
		if f.control.CAS(parkedControl, queuedControl) {
			w.sched.parked.Add(-1)
			w.sched.global.Push(f)
			w.sched.wakeOne()
		}
		return
	}
	if f.parkFlag != nil && f.parkFlag.Load() != f.parkExpected {
		if f.control.CAS(parkedControl, queuedControl) {
			w.sched.parked.Add(-1)
			w.sched.global.Push(f)
			w.sched.wakeOne()
		}
	}
}

// Unpark CAS-moves f from PARKED to QUEUED and enqueues it with affinity
// (see enqueue.go); if f is not currently PARKED, it instead sets the
// pendingUnpark latch so a park attempt already in flight bails out
// (SPEC_FULL.md §4.4).
func Unpark(h FiberHandle) {
	f, ok := globalSched().resolve(h)
	if !ok {
		return
	}
	UnparkFiber(f)
}

// UnparkFiber is the handle-free form of Unpark, for callers that already
// hold the *Fiber; Unpark (and through it join's wake-on-completion path)
// calls it once the handle is resolved.
func UnparkFiber(f *Fiber) {
	if f.control.CAS(parkedControl, queuedControl) {
		s := globalSched()
		s.parked.Add(-1)
		if !f.parkedAt.IsZero() {
			s.stats.recordParkToUnpark(s.cfg, clockNow().Sub(f.parkedAt))
			f.parkedAt = time.Time{}
		}
		f.touch()
		enqueueUnparked(f)
		return
	}

	c := f.control.Load()
	if c == doneControl {
		return
	}
	if _, owned := ownerOf(c); owned || c == queuedControl {
		f.pendingUnpark.Store(true)
	}
}

// ClearPendingUnpark clears a latched-but-not-yet-consumed unpark, used by
// callers that want to cancel a pending wake (e.g. a timed-out condition
// wait) before it causes a spurious re-enqueue.
func ClearPendingUnpark(h FiberHandle) {
	if f, ok := globalSched().resolve(h); ok {
		f.pendingUnpark.Store(false)
	}
}
