package fiberrt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitShutdown_FullLifecycle(t *testing.T) {
	require.False(t, Active())

	err := Init(WithWorkers(2), WithSysmon(false))
	require.NoError(t, err)
	t.Cleanup(func() { Shutdown() })

	assert.True(t, Active())
	assert.Equal(t, 2, GetNumWorkers())

	h, err := Spawn(func(fb *Fiber) { fb.SetResult("hello") }, nil)
	require.NoError(t, err)

	v, joinErr := Join(nil, h)
	require.NoError(t, joinErr)
	assert.Equal(t, "hello", v)

	Shutdown()
	assert.False(t, Active())
}

func TestInit_ReturnsErrAlreadyRunningOnSecondCall(t *testing.T) {
	require.NoError(t, Init(WithWorkers(1), WithSysmon(false)))
	t.Cleanup(func() { Shutdown() })

	err := Init(WithWorkers(1))
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestShutdown_NoopWithoutRunningScheduler(t *testing.T) {
	require.False(t, Active())
	Shutdown() // must not panic
}

func TestGetNumWorkers_ZeroWithoutScheduler(t *testing.T) {
	require.False(t, Active())
	assert.Equal(t, 0, GetNumWorkers())
}

func TestScheduler_HeartbeatStaleReportsFalseForFreshWorker(t *testing.T) {
	s := newTestScheduler(t, 1)
	w := s.workers[0]
	w.heartbeat.Store(clockNowNanos())
	assert.False(t, s.heartbeatStale(w, time.Second))
}

func TestScheduler_HeartbeatStaleReportsTrueWhenPastThreshold(t *testing.T) {
	s := newTestScheduler(t, 1)
	w := s.workers[0]
	w.heartbeat.Store(clockNowNanos() - int64(time.Second) - 1)
	assert.True(t, s.heartbeatStale(w, time.Second))
}

func TestScheduler_HeartbeatStaleFalseWhenNeverSet(t *testing.T) {
	s := newTestScheduler(t, 1)
	w := s.workers[0]
	assert.False(t, s.heartbeatStale(w, time.Nanosecond))
}

func TestScheduler_ResolveRejectsStaleGeneration(t *testing.T) {
	s := newTestScheduler(t, 1)
	f := newTestFiber(s)
	h := f.Handle()

	f.gen++ // simulate a pool-reuse bump without the handle being refreshed
	_, ok := s.resolve(h)
	assert.False(t, ok)
}

func TestScheduler_ResolveRejectsOutOfRangeIndex(t *testing.T) {
	s := newTestScheduler(t, 1)
	_, ok := s.resolve(FiberHandle{index: 99, gen: 1})
	assert.False(t, ok)
}

func TestSetNumWorkers_NoopWithoutRunningScheduler(t *testing.T) {
	require.False(t, Active())
	SetNumWorkers(4) // must not panic
}

func TestSetNumWorkers_GrowsPool(t *testing.T) {
	require.NoError(t, Init(WithWorkers(1), WithSysmon(false)))
	t.Cleanup(func() { Shutdown() })

	require.Equal(t, 1, GetNumWorkers())
	SetNumWorkers(4)
	assert.Equal(t, 4, GetNumWorkers())

	// the grown pool still executes a spawned fiber to completion.
	h, err := Spawn(func(fb *Fiber) { fb.SetResult("ok") }, nil)
	require.NoError(t, err)
	v, joinErr := Join(nil, h)
	require.NoError(t, joinErr)
	assert.Equal(t, "ok", v)
}

func TestSetNumWorkers_ClampsToAtLeastOne(t *testing.T) {
	require.NoError(t, Init(WithWorkers(2), WithSysmon(false)))
	t.Cleanup(func() { Shutdown() })

	SetNumWorkers(0)
	assert.Equal(t, 1, GetNumWorkers())
}

func TestSetNumWorkers_ClampsToMaxWorkers(t *testing.T) {
	require.NoError(t, Init(WithWorkers(1), WithSysmon(false)))
	t.Cleanup(func() { Shutdown() })

	SetNumWorkers(maxWorkers + 10)
	assert.Equal(t, maxWorkers, GetNumWorkers())
}

func TestSetNumWorkers_ShrinkMarksTailWorkersForRetirement(t *testing.T) {
	require.NoError(t, Init(WithWorkers(4), WithSysmon(false)))
	t.Cleanup(func() { Shutdown() })

	s := globalSched()
	SetNumWorkers(2)

	s.workersMu.RLock()
	defer s.workersMu.RUnlock()
	require.Len(t, s.workers, 4) // shrink only marks; removal happens once the worker actually exits
	assert.False(t, s.workers[0].retireRequested.Load())
	assert.False(t, s.workers[1].retireRequested.Load())
	assert.True(t, s.workers[2].retireRequested.Load())
	assert.True(t, s.workers[3].retireRequested.Load())
}
