// Package fiberrt provides a user-space M:N fiber scheduler: a runtime that
// multiplexes a large number of cooperatively scheduled coroutines (fibers)
// onto a small pool of OS worker threads, with work stealing, cross-fiber
// joining, timer-based sleep, and adaptive scaling under CPU-bound load.
//
// # Architecture
//
// The scheduler is a process-wide singleton ([Init], [Shutdown]). Each
// [Fiber] carries an atomic control word ([controlWord]) that simultaneously
// encodes its lifecycle state (queued, parked, done) and, while running,
// which worker exclusively owns its stack. Workers ([worker]) drain four
// kinds of queues in priority order: a per-worker local deque, a per-worker
// inbox, a global MPMC ring with mutex-guarded overflow, and a sleep queue
// walked by the monitor goroutine ([sysmon]).
//
// Suspension uses a yield-before-commit protocol: a parking fiber yields to
// its worker first, and only once its stack is quiescent does the worker's
// trampoline commit the PARKED state, re-checking a pending-unpark latch
// under sequential consistency to close the lost-wakeup window (see
// [park.go] for the Dekker-style interlock).
//
// # Platform Support
//
// The wake primitive that lets a sleeping worker be woken without a lost
// wakeup is implemented natively on Linux (eventfd + epoll_wait with a
// timeout); all other platforms use a portable condition-variable fallback
// with identical snapshot/check/wait semantics.
//
// # Thread Safety
//
// - [Spawn], [Unpark], [Join], and [SetNumWorkers] are safe to call from any goroutine.
// - [Current] and [InContext] answer from inside a fiber's own entry
// function, identifying it by its backing goroutine rather than a threaded
// context.Context.
// - The global run queue is lock-free on the fast path (CAS ring) and
// falls back to a mutex-guarded overflow list only once the ring is full.
// - A fiber's stack is never executed by two workers concurrently: the
// control word's OWNED state is exclusive by construction.
//
// # Execution Model
//
// Each worker, per iteration: injects a global-queue pop periodically for
// fairness, collects a batch from local/inbox/global queues in that order,
// falls back to stealing half of another worker's local queue, executes
// what it found, and — finding nothing — spins, then yields, then sleeps
// on the wake primitive. A monitor goroutine ([sysmon]) drains the sleep
// queue, detects stalled workers and spawns rate-limited replacement
// workers for them, and detects deadlock (all workers asleep with fibers
// still parked) after a persistence window, aborting the process unless
// told not to.
//
// # Usage
//
//	if err := fiberrt.Init(fiberrt.WithWorkers(8)); err != nil {
//		log.Fatal(err)
//	}
//	defer fiberrt.Shutdown()
//
//	h, err := fiberrt.Spawn(func(f *fiberrt.Fiber) {
//		fmt.Println("hello from a fiber")
//	}, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if _, err := fiberrt.Join(nil, h); err != nil {
//		log.Fatal(err)
//	}
//
// # Error Types
//
//   - [ErrSpawnFailed]: spawn could not allocate or enqueue a fiber.
//   - [ErrNotRunning]: the scheduler has not been initialized or was shut down.
//   - [ErrAlreadyRunning]: [Init] was called while a scheduler is already active.
//   - [ErrJoinSelf]: a fiber attempted to join itself.
//   - [FatalError]: an invariant violation in the coroutine primitive; fatal.
//   - [DeadlockError]: reported via the diagnostic dump just before process exit.
//
// All error types implement the standard [error] interface; [FatalError] and
// [DeadlockError] also provide an Unwrap method for use with [errors.Unwrap].
package fiberrt
