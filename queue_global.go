package fiberrt

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Global queue tuning constants, grounded on the teacher's ingress.go
// MicrotaskRing (ring sizing, overflow compaction thresholds) and
// ChunkedIngress (overflow storage shape).
const (
	// globalRingSize is the fixed size of the global ring buffer. Must be a
	// power of 2 for cheap modular indexing.
	globalRingSize = 4096

	// ringSeqSkip is the sentinel for "empty slot", chosen to avoid
	// ambiguity with legitimate sequence-number wraparound at 0.
	ringSeqSkip = uint64(1) << 63

	// globalOverflowInitCap is the initial capacity of the overflow slice.
	globalOverflowInitCap = 1024

	// globalOverflowCompactThreshold triggers a compaction copy once this
	// many items have been consumed from the head of the overflow slice.
	globalOverflowCompactThreshold = 512

	ringHeadPadSize = sizeOfCacheLine - sizeOfAtomicInt64
)

// globalQueue is the scheduler-wide MPMC run queue: a lock-free ring with a
// mutex-guarded overflow list for when the ring is saturated. Directly
// grounded on the teacher's ingress.go MicrotaskRing, generalized from MPSC
// (single consumer) to MPMC: both producers (tail) and consumers (head)
// claim slots via CAS, since any worker may pop from the global queue
// (SPEC_FULL.md §4.2).
//
// Algorithm (per slot): Push writes data, then validity, then sequence
// (release barriers in that order); Pop checks sequence/validity (acquire),
// claims the slot with a head CAS, then reads — only the CAS winner ever
// reads a given slot, so concurrent poppers never double-deliver a fiber.
type globalQueue struct { // betteralign:ignore
	_      [sizeOfCacheLine]byte
	buffer [globalRingSize]*Fiber
	valid  [globalRingSize]atomic.Bool
	seq    [globalRingSize]atomic.Uint64
	head   atomic.Uint64
	_      [ringHeadPadSize]byte
	tail   atomic.Uint64
	tailSeq atomic.Uint64

	overflowMu      sync.Mutex
	overflow        []*Fiber
	overflowHead    int
	overflowPending atomic.Bool
}

func newGlobalQueue() *globalQueue {
	q := &globalQueue{}
	for i := range q.seq {
		q.seq[i].Store(ringSeqSkip)
	}
	return q
}

// Push enqueues a fiber. Always succeeds (the overflow list is unbounded).
func (q *globalQueue) Push(f *Fiber) {
	if q.overflowPending.Load() {
		q.overflowMu.Lock()
		if len(q.overflow)-q.overflowHead > 0 {
			q.overflow = append(q.overflow, f)
			q.overflowMu.Unlock()
			return
		}
		q.overflowMu.Unlock()
	}

	for {
		tail := q.tail.Load()
		head := q.head.Load()
		if tail-head >= globalRingSize {
			break // ring full, fall through to overflow
		}
		if q.tail.CompareAndSwap(tail, tail+1) {
			seq := q.tailSeq.Add(1)
			idx := tail % globalRingSize
			q.buffer[idx] = f
			q.valid[idx].Store(true)
			q.seq[idx].Store(seq)
			return
		}
	}

	q.overflowMu.Lock()
	if q.overflow == nil {
		q.overflow = make([]*Fiber, 0, globalOverflowInitCap)
	}
	q.overflow = append(q.overflow, f)
	q.overflowPending.Store(true)
	q.overflowMu.Unlock()
}

// Pop removes and returns a fiber, or nil if the queue is empty. Safe to
// call concurrently from any number of workers.
func (q *globalQueue) Pop() *Fiber {
	for {
		head := q.head.Load()
		tail := q.tail.Load()
		if head >= tail {
			break
		}

		idx := head % globalRingSize
		seq := q.seq[idx].Load()
		if seq == ringSeqSkip || !q.valid[idx].Load() {
			// Producer claimed this tail slot but hasn't published yet.
			runtime.Gosched()
			continue
		}

		if !q.head.CompareAndSwap(head, head+1) {
			// Another consumer (or us, retried) already claimed this slot.
			continue
		}

		f := q.buffer[idx]
		q.buffer[idx] = nil
		q.valid[idx].Store(false)
		q.seq[idx].Store(ringSeqSkip)
		if f == nil {
			continue
		}
		return f
	}

	if !q.overflowPending.Load() {
		return nil
	}

	q.overflowMu.Lock()
	defer q.overflowMu.Unlock()

	count := len(q.overflow) - q.overflowHead
	if count == 0 {
		q.overflowPending.Store(false)
		return nil
	}

	f := q.overflow[q.overflowHead]
	q.overflow[q.overflowHead] = nil
	q.overflowHead++

	if q.overflowHead > len(q.overflow)/2 && q.overflowHead > globalOverflowCompactThreshold {
		copy(q.overflow, q.overflow[q.overflowHead:])
		q.overflow = q.overflow[:len(q.overflow)-q.overflowHead]
		q.overflowHead = 0
	}
	if q.overflowHead >= len(q.overflow) {
		q.overflowPending.Store(false)
	}

	return f
}

// Length returns the approximate total number of fibers queued (ring +
// overflow). Racy under concurrent modification; used for diagnostics only.
func (q *globalQueue) Length() int {
	head := q.head.Load()
	tail := q.tail.Load()
	ringCount := 0
	if tail > head {
		ringCount = int(tail - head)
	}

	q.overflowMu.Lock()
	overflowCount := len(q.overflow) - q.overflowHead
	q.overflowMu.Unlock()

	return ringCount + overflowCount
}

func (q *globalQueue) IsEmpty() bool {
	return q.Length() == 0
}
