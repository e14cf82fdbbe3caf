package fiberrt

import (
	"sync"
	"sync/atomic"
	"time"
)

// yieldDest is written by a fiber just before it suspends, and read exactly
// once by the worker trampoline once the coroutine goroutine has parked
// (SPEC_FULL.md §4.4).
type yieldDest int32

const (
	yieldNone yieldDest = iota
	yieldPark
	yieldLocal
	yieldGlobal
	yieldSleep
)

// FiberHandle is an opaque, stable reference to a fiber: an index into the
// scheduler's fiber table plus a generation counter, so a handle obtained
// before a fiber completes and is recycled can never be mistaken for its
// pool-reused successor (closing the ABA hazard noted in SPEC_FULL.md §9).
type FiberHandle struct {
	index int32
	gen   uint32
}

// Valid reports whether h was ever populated by Spawn.
func (h FiberHandle) Valid() bool {
	return h.gen != 0
}

// Fiber is a single cooperatively scheduled unit of work: user entry point,
// atomic control word, join bookkeeping, and affinity/diagnostic metadata
// (SPEC_FULL.md §3).
type Fiber struct { // betteralign:ignore
	id     uint64
	gen    uint32
	index  int32
	fn     func(*Fiber)
	arg    any
	result any

	control controlWord
	co      *coroutine

	done     atomic.Bool
	panicVal any

	pendingUnpark atomic.Bool
	destYield     yieldDest
	parkReason    string
	parkFlag      *atomic.Bool
	parkExpected  bool

	sleepDeadline time.Time

	spawnedAt  time.Time
	parkedAt   time.Time
	firstRunRecorded atomic.Bool // true once the spawn-to-first-run sample has been recorded

	lastWorkerID atomic.Int32
	lastTransition atomic.Int64 // monotonic nanos since package init, via clockNowNanos

	// join synchronisation
	joinMu      sync.Mutex
	joinWaiters atomic.Int32
	singleWaiter FiberHandle
	hasWaiter    bool
	joinCond     *sync.Cond
	joinCondInit atomic.Bool

	next     *Fiber // intrusive link; no queue links through it (overflow and sleep queues are slices), cleared on reset
	poolNext *Fiber // fiberPool intrusive link

	sched *Scheduler
}

// newFiber allocates a brand-new fiber with no handle-table slot yet
// (index == -1 signals "unregistered" to Scheduler.register).
func newFiber() *Fiber {
	f := &Fiber{index: -1}
	f.control.init()
	f.co = newCoroutine()
	f.lastWorkerID.Store(-1)
	return f
}

// Handle returns the stable handle for this fiber.
func (f *Fiber) Handle() FiberHandle {
	return FiberHandle{index: f.index, gen: f.gen}
}

// ID returns a monotonically assigned identifier, stable across pool reuse,
// intended for diagnostics only.
func (f *Fiber) ID() uint64 {
	return f.id
}

// Arg returns the value passed to Spawn.
func (f *Fiber) Arg() any {
	return f.arg
}

// SetResult records the value a joiner will receive from Join. Call it
// before returning from the entry function; the scheduler does not publish
// a result on panic (Join instead returns the recovered panic as an error).
func (f *Fiber) SetResult(v any) {
	f.result = v
}

// reset clears all per-run state before a pooled fiber is reused, leaving
// id/index/control/co untouched (control is reset explicitly by the caller
// once the new fn/arg are published, per SPEC_FULL.md §4.3 step 1-2).
func (f *Fiber) reset() {
	f.fn = nil
	f.arg = nil
	f.result = nil
	f.done.Store(false)
	f.panicVal = nil
	f.pendingUnpark.Store(false)
	f.destYield = yieldNone
	f.parkReason = ""
	f.parkFlag = nil
	f.parkExpected = false
	f.sleepDeadline = time.Time{}
	f.spawnedAt = time.Time{}
	f.parkedAt = time.Time{}
	f.firstRunRecorded.Store(false)
	f.lastWorkerID.Store(-1)
	f.joinWaiters.Store(0)
	f.hasWaiter = false
	f.singleWaiter = FiberHandle{}
	f.next = nil
	if f.co != nil {
		f.co.reset()
	}
}

// touch records that the fiber just transitioned, for sysmon stall
// diagnostics (SPEC_FULL.md §4.8).
func (f *Fiber) touch() {
	f.lastTransition.Store(clockNowNanos())
}

func (f *Fiber) stalledSince() time.Duration {
	last := f.lastTransition.Load()
	if last == 0 {
		return 0
	}
	return time.Duration(clockNowNanos() - last)
}
