package fiberrt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiberPool_GetEmptyReturnsNil(t *testing.T) {
	p := newFiberPool()
	assert.Nil(t, p.get())
}

func TestFiberPool_PutThenGetLIFO(t *testing.T) {
	p := newFiberPool()
	a := &Fiber{id: 1}
	b := &Fiber{id: 2}
	p.put(a)
	p.put(b)

	got := p.get()
	require.NotNil(t, got)
	assert.Equal(t, uint64(2), got.id)

	got = p.get()
	require.NotNil(t, got)
	assert.Equal(t, uint64(1), got.id)

	assert.Nil(t, p.get())
}

func TestFiberPool_AllocIDMonotonic(t *testing.T) {
	p := newFiberPool()
	first := p.allocID()
	second := p.allocID()
	assert.Less(t, first, second)
}
