package fiberrt

import "sync/atomic"

// inboxCapacity is the fixed size of each worker's inbox ring. Smaller than
// the local queue: the inbox exists only to steer affinity-targeted work to
// a specific worker (SPEC_FULL.md §4.5), not to hold a worker's main backlog.
const inboxCapacity = 64

// inboxOverloadThreshold is the occupancy at or above which enqueueUnparked treats a
// worker's inbox as overloaded and divert new affinity-targeted work to the
// global queue instead (SPEC_FULL.md §4.5 point 2).
const inboxOverloadThreshold = inboxCapacity

// inboxQueue is a per-worker bounded MPMC ring: any worker may push
// (targeting this worker by affinity hint); only the owner normally pops,
// but the same claim protocol as localQueue makes concurrent pop/steal
// safe if ever needed. Unlike the local queue, a full inbox is not an
// error — the caller falls back to the global queue (SPEC_FULL.md §4.2).
type inboxQueue struct { // betteralign:ignore
	_    [sizeOfCacheLine]byte
	buf  [inboxCapacity]atomic.Pointer[Fiber]
	head atomic.Uint64
	_    [ringHeadPadSize]byte
	tail atomic.Uint64
}

func newInboxQueue() *inboxQueue {
	return &inboxQueue{}
}

// Push attempts to enqueue a fiber from any worker. Returns false if full.
func (q *inboxQueue) Push(f *Fiber) bool {
	for {
		tail := q.tail.Load()
		head := q.head.Load()
		if tail-head >= inboxCapacity {
			return false
		}
		if !q.tail.CompareAndSwap(tail, tail+1) {
			continue
		}
		idx := tail % inboxCapacity
		q.buf[idx].Store(f)
		return true
	}
}

func (q *inboxQueue) Pop() (*Fiber, bool) {
	for {
		head := q.head.Load()
		tail := q.tail.Load()
		if head >= tail {
			return nil, false
		}
		if !q.head.CompareAndSwap(head, head+1) {
			continue
		}
		idx := head % inboxCapacity
		// Spin briefly: a producer may have claimed the tail slot but not
		// yet stored the fiber pointer when we claimed the matching head.
		var f *Fiber
		for spins := 0; spins < 1<<20; spins++ {
			f = q.buf[idx].Swap(nil)
			if f != nil {
				break
			}
		}
		if f == nil {
			continue
		}
		return f, true
	}
}

func (q *inboxQueue) Len() int {
	tail := q.tail.Load()
	head := q.head.Load()
	if tail <= head {
		return 0
	}
	return int(tail - head)
}

func (q *inboxQueue) IsEmpty() bool {
	return q.Len() == 0
}

func (q *inboxQueue) Overloaded() bool {
	return q.Len() >= inboxOverloadThreshold
}
