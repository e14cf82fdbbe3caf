package fiberrt

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalQueue_PushPopOrder(t *testing.T) {
	q := newLocalQueue()
	fibers := make([]*Fiber, 4)
	for i := range fibers {
		fibers[i] = &Fiber{id: uint64(i)}
		require.True(t, q.Push(fibers[i]))
	}
	assert.Equal(t, 4, q.Len())

	for i := range fibers {
		f, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, uint64(i), f.id)
	}
	_, ok := q.Pop()
	assert.False(t, ok)
}

func TestLocalQueue_FullPushFails(t *testing.T) {
	q := newLocalQueue()
	for i := 0; i < localQueueCapacity; i++ {
		require.True(t, q.Push(&Fiber{id: uint64(i)}))
	}
	assert.False(t, q.Push(&Fiber{id: 999}))
}

func TestLocalQueue_StealBatchTakesHalf(t *testing.T) {
	q := newLocalQueue()
	for i := 0; i < 10; i++ {
		require.True(t, q.Push(&Fiber{id: uint64(i)}))
	}
	dst := make([]*Fiber, 10)
	taken := q.StealBatch(dst)
	assert.Equal(t, 5, taken)
	assert.Equal(t, 5, q.Len())
}

func TestLocalQueue_ConcurrentPopAndStealNeverDuplicate(t *testing.T) {
	q := newLocalQueue()
	const n = 200
	for i := 0; i < n; i++ {
		require.True(t, q.Push(&Fiber{id: uint64(i)}))
	}

	seen := make([]int32, n)
	var seenMu sync.Mutex
	mark := func(f *Fiber) {
		seenMu.Lock()
		seen[f.id]++
		seenMu.Unlock()
	}

	var wg sync.WaitGroup
	drain := func() {
		defer wg.Done()
		for {
			f, ok := q.claim()
			if !ok {
				return
			}
			mark(f)
		}
	}
	wg.Add(4)
	for i := 0; i < 4; i++ {
		go drain()
	}
	wg.Wait()

	for i, count := range seen {
		assert.Equalf(t, int32(1), count, "fiber %d delivered %d times", i, count)
	}
}
