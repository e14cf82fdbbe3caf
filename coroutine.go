package fiberrt

import "sync/atomic"

// coroutineStatus mirrors the consumed "coroutine primitive" contract of
// SPEC_FULL.md §6.
type coroutineStatus int32

const (
	coroutineFresh coroutineStatus = iota
	coroutineSuspended
	coroutineRunning
	coroutineDead
)

// coroutine is the Go-native adapter satisfying the external coroutine
// primitive contract (here start/Resume/checkpoint/Status/Destroy) that SPEC_FULL.md §9
// names as the one REDESIGN FLAG: Go has no portable, public API for
// register-level stack switching, so instead of context-switching a single
// OS stack, this hands off between two already-running goroutines over a
// pair of unbuffered rendezvous channels. No teacher file does this — the
// teacher's "tasks" are plain closures that never suspend mid-body — so
// this is the standard idiomatic Go generator pattern.
//
// The backing goroutine runs the fiber's entry function exactly once; every
// suspension point inside the body (park/yield/sleep, see checkpoint
// below) blocks that goroutine on resumeCh after signalling yieldCh.
// Resume unblocks it by sending on resumeCh and then waits on yieldCh for
// the *next* suspension or the body's natural return. Once the entry
// function returns, that goroutine exits for good; reset() (§4.10's pool
// reuse path) launches a fresh one on the next start() rather than
// resurrecting the old one.
type coroutine struct {
	status   atomic.Int32
	resumeCh chan struct{}
	yieldCh  chan struct{}
	started  atomic.Bool
}

func newCoroutine() *coroutine {
	c := &coroutine{
		resumeCh: make(chan struct{}),
		yieldCh:  make(chan struct{}),
	}
	c.status.Store(int32(coroutineFresh))
	return c
}

// Status reports the coroutine's current lifecycle state.
func (c *coroutine) Status() coroutineStatus {
	return coroutineStatus(c.status.Load())
}

// start launches the backing goroutine, which immediately begins executing
// entry(f). Resume calls it once per run: on the first resume after
// newCoroutine or reset(), and each call launches a new goroutine.
func (c *coroutine) start(f *Fiber, entry func(*Fiber)) {
	c.started.Store(true)
	c.status.Store(int32(coroutineRunning))
	go func() {
		setCurrentFiber(f)
		defer func() {
			clearCurrentFiber()
			if r := recover(); r != nil {
				f.panicVal = r
			}
			f.done.Store(true)
			c.status.Store(int32(coroutineDead))
			c.yieldCh <- struct{}{}
		}()
		entry(f)
	}()
}

// Resume runs the coroutine until its next suspension point or natural
// completion. On the very first call for a freshly reset coroutine it
// launches the backing goroutine; on subsequent calls it wakes the
// goroutine from wherever checkpoint() parked it.
func (c *coroutine) Resume(f *Fiber, entry func(*Fiber)) {
	if !c.started.Load() {
		c.start(f, entry)
	} else {
		c.status.Store(int32(coroutineRunning))
		c.resumeCh <- struct{}{}
	}
	<-c.yieldCh
	if c.Status() != coroutineDead {
		c.status.Store(int32(coroutineSuspended))
	}
}

// checkpoint is called from inside the fiber body (via Fiber helpers in
// park.go/yield.go) at every suspension point. It blocks the coroutine
// goroutine until the next Resume.
func (c *coroutine) checkpoint() {
	c.yieldCh <- struct{}{}
	<-c.resumeCh
}

// Destroy marks the coroutine dead. It does not signal or stop a backing
// goroutine still blocked in checkpoint — reset() is used for the
// pool-reuse path instead.
func (c *coroutine) Destroy() {
	c.status.Store(int32(coroutineDead))
}

// reset prepares a coroutine for reuse from the pool. The previous
// goroutine, if started, has already sent its final yieldCh signal from
// its deferred cleanup and exited — start() launches a brand new goroutine
// for the next entry; only the channel pair is reused.
func (c *coroutine) reset() {
	c.started.Store(false)
	c.status.Store(int32(coroutineFresh))
}
