package fiberrt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYieldLocal_CommitRequeuesOntoWorkerLocalQueue(t *testing.T) {
	s := newTestScheduler(t, 1)
	w := s.workers[0]
	f := newTestFiber(s)

	stage := 0
	f.fn = func(fb *Fiber) {
		stage = 1
		fb.YieldLocal()
		stage = 2
	}

	w.execute(f)
	assert.Equal(t, 1, stage)
	assert.Equal(t, queuedControl, f.control.Load())
	assert.Equal(t, 1, w.local.Len())

	// Resuming the requeued fiber runs it to completion.
	got, ok := w.local.Pop()
	require.True(t, ok)
	w.execute(got)
	assert.Equal(t, 2, stage)
	assert.True(t, f.done.Load())
}

func TestYieldGlobal_CommitRequeuesOntoGlobalQueue(t *testing.T) {
	s := newTestScheduler(t, 1)
	w := s.workers[0]
	f := newTestFiber(s)
	f.fn = func(fb *Fiber) {
		fb.YieldGlobal()
	}

	w.execute(f)
	assert.Equal(t, queuedControl, f.control.Load())

	got := s.global.Pop()
	require.NotNil(t, got)
	assert.Same(t, f, got)
}

func TestSleepMS_CommitMovesFiberToSleepQueue(t *testing.T) {
	s := newTestScheduler(t, 1)
	w := s.workers[0]
	f := newTestFiber(s)
	f.fn = func(fb *Fiber) {
		fb.SleepMS(30)
	}

	w.execute(f)
	assert.Equal(t, queuedControl, f.control.Load())
	assert.Equal(t, 1, s.sleepQ.Len())
	assert.True(t, f.sleepDeadline.After(time.Now().Add(-time.Second)))

	var drained []*Fiber
	n := s.sleepQ.Drain(f.sleepDeadline.Add(time.Millisecond), &drained)
	require.Equal(t, 1, n)
	assert.Same(t, f, drained[0])
}
