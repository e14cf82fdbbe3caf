package fiberrt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControlWord_InitIsIdle(t *testing.T) {
	var c controlWord
	c.init()
	require.Equal(t, idleControl, c.Load())
}

func TestControlWord_TryAcquire(t *testing.T) {
	var c controlWord
	c.init()
	c.Store(queuedControl)

	assert.True(t, c.tryAcquire(3))
	assert.Equal(t, ownedControl(3), c.Load())
	assert.True(t, c.isOwnedBy(3))
	assert.False(t, c.isOwnedBy(4))

	// a second acquire attempt on an already-owned word must fail
	assert.False(t, c.tryAcquire(4))
}

func TestOwnerOf(t *testing.T) {
	wid, ok := ownerOf(ownedControl(7))
	require.True(t, ok)
	assert.Equal(t, 7, wid)

	_, ok = ownerOf(queuedControl)
	assert.False(t, ok)
	_, ok = ownerOf(idleControl)
	assert.False(t, ok)
	_, ok = ownerOf(doneControl)
	assert.False(t, ok)
}

func TestControlString(t *testing.T) {
	assert.Equal(t, "IDLE", controlString(idleControl))
	assert.Equal(t, "QUEUED", controlString(queuedControl))
	assert.Equal(t, "PARKED", controlString(parkedControl))
	assert.Equal(t, "DONE", controlString(doneControl))
	assert.Equal(t, "OWNED(2)", controlString(ownedControl(2)))
}

func TestItoa(t *testing.T) {
	cases := map[int]string{0: "0", 7: "7", -7: "-7", 123: "123", -456: "-456"}
	for n, want := range cases {
		assert.Equal(t, want, itoa(n))
	}
}
