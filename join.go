package fiberrt

import (
	"runtime"
	"sync"
	"time"
)

// Join tuning constants (SPEC_FULL.md §4.7).
const (
	joinFastSpinIters  = 1024
	joinYieldSpinIters = 32
)

// Join waits for the fiber identified by h to complete and returns its
// result. caller, if non-nil, is the currently executing fiber (the
// join happens in fiber context and parks rather than blocking the OS
// thread); pass nil from a plain goroutine (thread context), which may
// spin and ultimately block on a condition variable instead
// (SPEC_FULL.md §4.7).
func Join(caller *Fiber, h FiberHandle) (any, error) {
	s := globalSched()
	if s == nil {
		return nil, ErrNotRunning
	}
	f, ok := s.resolve(h)
	if !ok {
		return nil, ErrNotRunning
	}
	if caller != nil && caller == f {
		return nil, ErrJoinSelf
	}

	if f.done.Load() {
		waitDoneControl(f)
		return f.result, firstPanic(f)
	}

	if caller == nil {
		for i := 0; i < joinFastSpinIters; i++ {
			if f.done.Load() {
				waitDoneControl(f)
				return f.result, firstPanic(f)
			}
		}
		for i := 0; i < joinYieldSpinIters; i++ {
			runtime.Gosched()
			if f.done.Load() {
				waitDoneControl(f)
				return f.result, firstPanic(f)
			}
		}
	}

	f.joinWaiters.Add(1)
	defer f.joinWaiters.Add(-1)

	if f.done.Load() {
		waitDoneControl(f)
		return f.result, firstPanic(f)
	}

	s.log.join("join: target not yet complete, blocking", f.ID())
	if caller != nil {
		joinFiberContext(caller, f)
	} else {
		joinThreadContext(f)
	}

	waitDoneControl(f)
	return f.result, firstPanic(f)
}

// PollDone reports whether the fiber has finished, without blocking.
func PollDone(h FiberHandle) bool {
	s := globalSched()
	if s == nil {
		return false
	}
	f, ok := s.resolve(h)
	if !ok {
		return true
	}
	return f.done.Load()
}

func firstPanic(f *Fiber) error {
	if f.panicVal == nil {
		return nil
	}
	if err, ok := f.panicVal.(error); ok {
		return WrapError("fiberrt: fiber panicked", err)
	}
	return WrapError("fiberrt: fiber panicked", &FatalError{Message: "non-error panic value"})
}

// joinFiberContext registers caller as the single park-based waiter and
// parks it on f.done, never burning a worker's thread on a spin wait.
func joinFiberContext(caller *Fiber, f *Fiber) {
	f.joinMu.Lock()
	if f.done.Load() {
		f.joinMu.Unlock()
		return
	}
	f.hasWaiter = true
	f.singleWaiter = caller.Handle()
	f.joinMu.Unlock()

	caller.ParkIf(&f.done, false, "join")
}

// joinThreadContext lazily initializes a mutex+condvar pair on f and waits
// on it, so a plain (non-fiber) goroutine can block without spinning.
func joinThreadContext(f *Fiber) {
	f.joinMu.Lock()
	if f.done.Load() {
		f.joinMu.Unlock()
		return
	}
	if f.joinCondInit.CompareAndSwap(false, true) {
		f.joinCond = sync.NewCond(&f.joinMu)
	}
	cond := f.joinCond
	// joinMu is released around wakeOne and re-acquired for the wait; the
	// done flag is re-checked under joinMu before every cond.Wait, and the
	// completion broadcast is taken under the same joinMu, so a completion
	// in between is not missed.
	f.joinMu.Unlock()

	globalSched().wakeOne()

	f.joinMu.Lock()
	for !f.done.Load() {
		cond.Wait()
	}
	f.joinMu.Unlock()
}

// releaseJoiners runs on the coroutine-exit path (commitYield, once done is
// observed) and wakes whichever join mechanism is in play.
func (f *Fiber) releaseJoiners() {
	f.joinMu.Lock()
	waiter := FiberHandle{}
	hasWaiter := f.hasWaiter
	if hasWaiter {
		waiter = f.singleWaiter
		f.hasWaiter = false
	}
	cond := f.joinCond
	f.joinMu.Unlock()

	if hasWaiter {
		Unpark(waiter)
	}
	if cond != nil {
		f.joinMu.Lock()
		cond.Broadcast()
		f.joinMu.Unlock()
	}
}

// waitDoneControl spins briefly until the owning worker has released
// control to DONE, so a joiner never reads Result while a worker is still
// writing it (the fiber body sets Result before its coroutine sets done,
// and the worker commits control=DONE after observing done).
func waitDoneControl(f *Fiber) {
	for i := 0; i < joinFastSpinIters; i++ {
		if f.control.Load() == doneControl {
			return
		}
	}
	for f.control.Load() != doneControl {
		time.Sleep(time.Microsecond)
	}
}
