package fiberrt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawn_NotRunningWhenNoScheduler(t *testing.T) {
	installGlobalScheduler(t, nil)
	_, err := Spawn(func(*Fiber) {}, nil)
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestSpawn_NilFnRejected(t *testing.T) {
	s := newTestScheduler(t, 1)
	installGlobalScheduler(t, s)

	_, err := Spawn(nil, nil)
	require.Error(t, err)
}

func TestSpawn_PushesToGlobalQueueAndRegisters(t *testing.T) {
	s := newTestScheduler(t, 1)
	installGlobalScheduler(t, s)

	h, err := Spawn(func(fb *Fiber) { fb.SetResult("ok") }, "argval")
	require.NoError(t, err)
	assert.True(t, h.Valid())

	f, ok := s.resolve(h)
	require.True(t, ok)
	assert.Equal(t, "argval", f.Arg())
	assert.Equal(t, queuedControl, f.control.Load())
	assert.EqualValues(t, 1, s.pending.Load())

	got := s.global.Pop()
	require.NotNil(t, got)
	assert.Same(t, f, got)
}

func TestSpawn_GenerationAdvancesOnReuseFromPool(t *testing.T) {
	s := newTestScheduler(t, 1)
	installGlobalScheduler(t, s)

	h1, err := Spawn(func(fb *Fiber) {}, nil)
	require.NoError(t, err)
	f1, ok := s.resolve(h1)
	require.True(t, ok)
	gen1 := f1.gen

	// Simulate completion and recycling back onto the free list.
	f1.done.Store(true)
	f1.control.Store(idleControl)
	s.pool.put(f1)

	h2, err := Spawn(func(fb *Fiber) {}, nil)
	require.NoError(t, err)
	f2, ok := s.resolve(h2)
	require.True(t, ok)

	assert.Same(t, f1, f2) // same slot, recycled from the pool
	assert.Greater(t, f2.gen, gen1)
	assert.NotEqual(t, h1, h2)
}

func TestPoolPrewarm_FrontLoadsFreeList(t *testing.T) {
	s := newTestScheduler(t, 1)
	installGlobalScheduler(t, s)

	PoolPrewarm(3)

	got := s.pool.get()
	require.NotNil(t, got)
	// PoolPrewarm allocates bare fibers that have never been registered.
	assert.EqualValues(t, -1, got.index)
}

func TestPoolPrewarm_NoopWithoutScheduler(t *testing.T) {
	installGlobalScheduler(t, nil)
	PoolPrewarm(3) // must not panic
}

func TestPushAffineOrGlobal_FallsBackToInboxRoundRobin(t *testing.T) {
	s := newTestScheduler(t, 2)
	w0 := s.workers[0]
	f := newTestFiber(s)

	ok := pushAffineOrGlobal(s, w0, f)
	require.True(t, ok)
	assert.Equal(t, 1, s.workers[1].inbox.Len())
}
