package fiberrt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFastState_InitIsAwake(t *testing.T) {
	s := newFastState()
	assert.Equal(t, stateAwake, s.Load())
}

func TestFastState_TryTransitionSucceedsOnMatch(t *testing.T) {
	s := newFastState()
	assert.True(t, s.TryTransition(stateAwake, stateRunning))
	assert.Equal(t, stateRunning, s.Load())
}

func TestFastState_TryTransitionFailsOnMismatch(t *testing.T) {
	s := newFastState()
	assert.False(t, s.TryTransition(stateRunning, stateSleeping))
	assert.Equal(t, stateAwake, s.Load())
}

func TestFastState_TransitionAnyTriesEachCandidate(t *testing.T) {
	s := newFastState()
	s.Store(stateSleeping)
	ok := s.TransitionAny([]schedState{stateRunning, stateSleeping}, stateTerminating)
	assert.True(t, ok)
	assert.Equal(t, stateTerminating, s.Load())
}

func TestFastState_CanAcceptWork(t *testing.T) {
	s := newFastState()
	assert.True(t, s.CanAcceptWork())
	s.Store(stateTerminating)
	assert.False(t, s.CanAcceptWork())
	s.Store(stateTerminated)
	assert.False(t, s.CanAcceptWork())
}

func TestFastState_IsTerminalAndIsRunning(t *testing.T) {
	s := newFastState()
	assert.False(t, s.IsTerminal())
	assert.False(t, s.IsRunning())

	s.Store(stateRunning)
	assert.True(t, s.IsRunning())

	s.Store(stateTerminated)
	assert.True(t, s.IsTerminal())
	assert.False(t, s.IsRunning())
}

func TestSchedState_String(t *testing.T) {
	assert.Equal(t, "Awake", stateAwake.String())
	assert.Equal(t, "Running", stateRunning.String())
	assert.Equal(t, "Sleeping", stateSleeping.String())
	assert.Equal(t, "Terminating", stateTerminating.String())
	assert.Equal(t, "Terminated", stateTerminated.String())
	assert.Equal(t, "Unknown", schedState(99).String())
}
