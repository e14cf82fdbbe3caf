package fiberrt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSleepQueue_DrainOnlyExpired(t *testing.T) {
	q := newSleepQueue()
	now := time.Now()

	expired := &Fiber{id: 1, sleepDeadline: now.Add(-time.Millisecond)}
	notYet := &Fiber{id: 2, sleepDeadline: now.Add(time.Hour)}
	q.Push(expired)
	q.Push(notYet)
	require.Equal(t, 2, q.Len())

	var drained []*Fiber
	n := q.Drain(now, &drained)
	require.Equal(t, 1, n)
	require.Len(t, drained, 1)
	assert.Equal(t, uint64(1), drained[0].id)
	assert.Equal(t, 1, q.Len())
}

func TestSleepQueue_DrainNoneWhenEmpty(t *testing.T) {
	q := newSleepQueue()
	var drained []*Fiber
	assert.Equal(t, 0, q.Drain(time.Now(), &drained))
	assert.Empty(t, drained)
}
