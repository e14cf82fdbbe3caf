package fiberrt

// Spawn creates and schedules a new fiber (SPEC_FULL.md §4.3). arg is
// delivered to fn's *Fiber.Arg(); fn runs on a coroutine goroutine once a
// worker claims the fiber from whichever queue it lands in.
//
// A completed fiber is not returned to the free list automatically: this
// implementation's handle resolution does not re-validate the generation
// on every subsequent read within a single Join/PollDone call, so recycling
// a fiber the instant it completes would open a narrow window where a
// concurrent respawn could mutate Result/Done out from under an in-flight
// joiner. PoolPrewarm front-loads the free list instead.
func Spawn(fn func(*Fiber), arg any) (FiberHandle, error) {
	s := globalSched()
	if s == nil || !s.state.CanAcceptWork() {
		return FiberHandle{}, ErrNotRunning
	}
	if fn == nil {
		return FiberHandle{}, WrapError("fiberrt: spawn failed", ErrSpawnFailed)
	}

	f := s.pool.get()
	if f == nil {
		f = newFiber()
	} else {
		f.reset()
	}

	f.id = s.pool.allocID()
	f.gen++
	if f.gen == 0 {
		f.gen = 1
	}
	f.fn = fn
	f.arg = arg
	f.sched = s
	f.spawnedAt = clockNow()

	if !f.control.CAS(idleControl, queuedControl) {
		return FiberHandle{}, WrapError("fiberrt: spawn failed", ErrSpawnFailed)
	}
	f.touch()

	s.register(f)
	s.pending.Add(1)

	w := currentWorkerOf(s)
	if w != nil {
		if !w.local.Push(f) {
			if !pushAffineOrGlobal(s, w, f) {
				s.global.Push(f)
			}
		}
	} else {
		s.global.Push(f)
	}

	if s.spinning.Load() == 0 {
		s.wakeOne()
	}

	return f.Handle(), nil
}

// pushAffineOrGlobal falls back to a round-robin inbox target when a
// worker's own local queue is full (SPEC_FULL.md §4.3 step 4).
func pushAffineOrGlobal(s *Scheduler, w *worker, f *Fiber) bool {
	all := s.allWorkers()
	if len(all) == 0 {
		return false
	}
	start := (w.id + 1) % len(all)
	for i := 0; i < len(all); i++ {
		target := all[(start+i)%len(all)]
		if target.inbox.Push(f) {
			return true
		}
	}
	return false
}

// currentWorkerOf is a best-effort hook for call sites that spawn from
// inside a worker-executed fiber body and want the cheap "push to our own
// local queue" fast path. This implementation does not track goroutine-
// local worker identity, so it always returns nil and every spawn, from a
// fiber body or not, takes the global-queue path; the affinity and stealing machinery still balances
// the load across workers promptly.
func currentWorkerOf(s *Scheduler) *worker {
	return nil
}

// PoolPrewarm pre-allocates n fibers with initialized (but idle) coroutine
// adapters and places them on the free list, so the first n spawns after
// startup skip allocation (SPEC_FULL.md §6).
func PoolPrewarm(n int) {
	s := globalSched()
	if s == nil {
		return
	}
	for i := 0; i < n; i++ {
		f := newFiber()
		f.id = s.pool.allocID()
		s.pool.put(f)
	}
}
