package fiberrt

import "sync/atomic"

// fiberPool is a Treiber-stack lock-free free list of reusable fiber tasks.
// Grounded on the CAS-loop idioms the teacher applies throughout
// ingress.go's ring claim protocol, applied here to the standard Go
// lock-free free-list shape (SPEC_FULL.md §4.10).
type fiberPool struct {
	top      atomic.Pointer[Fiber]
	nextID   atomic.Uint64
	released atomic.Int64 // diagnostic counter, not load-bearing
}

func newFiberPool() *fiberPool {
	return &fiberPool{}
}

// get pops a fiber from the free list, or returns nil if empty (caller must
// allocate a fresh one).
func (p *fiberPool) get() *Fiber {
	for {
		top := p.top.Load()
		if top == nil {
			return nil
		}
		next := top.poolNext
		if p.top.CompareAndSwap(top, next) {
			top.poolNext = nil
			return top
		}
	}
}

// put pushes a completed, reset fiber back onto the free list.
func (p *fiberPool) put(f *Fiber) {
	for {
		top := p.top.Load()
		f.poolNext = top
		if p.top.CompareAndSwap(top, f) {
			p.released.Add(1)
			return
		}
	}
}

// allocID assigns a stable, monotonically increasing fiber ID. Stable
// across pool reuse, used only for diagnostics (stall dumps, stats).
func (p *fiberPool) allocID() uint64 {
	return p.nextID.Add(1)
}
