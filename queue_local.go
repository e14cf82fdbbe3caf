package fiberrt

import "sync/atomic"

// localQueueCapacity is the fixed size of each worker's local run queue.
// Power of 2 for cheap modular indexing.
const localQueueCapacity = 256

// localQueue is a per-worker fixed-capacity ring: single-producer (the
// owning worker pushes), multi-consumer (the owner pops; other workers
// steal). Grounded on the teacher's ingress.go MicrotaskRing slot-claim
// protocol (CAS the index, then swap the slot), generalized here so either
// the owner or a thief can win the claim — SPEC_FULL.md §4.2.
type localQueue struct { // betteralign:ignore
	_    [sizeOfCacheLine]byte
	buf  [localQueueCapacity]atomic.Pointer[Fiber]
	head atomic.Uint64
	_    [ringHeadPadSize]byte
	tail atomic.Uint64
}

func newLocalQueue() *localQueue {
	return &localQueue{}
}

// Push enqueues a fiber. Must only be called by the owning worker. Returns
// false if the queue is full (caller should fall back to the inbox/global
// queue per SPEC_FULL.md §4.5/§4.6).
func (q *localQueue) Push(f *Fiber) bool {
	tail := q.tail.Load()
	head := q.head.Load()
	if tail-head >= localQueueCapacity {
		return false
	}
	idx := tail % localQueueCapacity
	q.buf[idx].Store(f)
	q.tail.Store(tail + 1)
	return true
}

// claim attempts to take exactly one fiber, CAS-claiming the head index
// first so concurrent owner-pop and thief-steal calls never both return
// the same fiber.
func (q *localQueue) claim() (*Fiber, bool) {
	for {
		head := q.head.Load()
		tail := q.tail.Load()
		if head >= tail {
			return nil, false
		}
		if !q.head.CompareAndSwap(head, head+1) {
			continue
		}
		idx := head % localQueueCapacity
		f := q.buf[idx].Swap(nil)
		if f == nil {
			// Stale/racing slot; keep trying rather than returning a nil fiber.
			continue
		}
		return f, true
	}
}

// Pop is called only by the owning worker, but is safe against concurrent
// Steal calls from other workers.
func (q *localQueue) Pop() (*Fiber, bool) {
	return q.claim()
}

// Steal takes exactly one fiber from another worker's local queue.
func (q *localQueue) Steal() (*Fiber, bool) {
	return q.claim()
}

// StealBatch takes up to half of the queue's current contents (at least
// one if any are present), appending them to dst and returning the count
// taken. Grounded on SPEC_FULL.md §4.2's "steal up to half in one shot".
func (q *localQueue) StealBatch(dst []*Fiber) int {
	n := q.Len() / 2
	if n < 1 {
		n = 1
	}
	if n > len(dst) {
		n = len(dst)
	}
	taken := 0
	for taken < n {
		f, ok := q.claim()
		if !ok {
			break
		}
		dst[taken] = f
		taken++
	}
	return taken
}

// Len returns an approximate current length; racy under concurrent push/pop.
func (q *localQueue) Len() int {
	tail := q.tail.Load()
	head := q.head.Load()
	if tail <= head {
		return 0
	}
	return int(tail - head)
}

func (q *localQueue) IsEmpty() bool {
	return q.Len() == 0
}
