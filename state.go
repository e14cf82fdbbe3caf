package fiberrt

import (
	"sync/atomic"
)

// schedState represents the lifecycle of the process-wide scheduler.
//
// State Machine:
//
//	stateAwake (0) → stateRunning (3)        [Init()]
//	stateRunning (3) → stateSleeping (2)     [all workers idle, CAS]
//	stateRunning (3) → stateTerminating (4)  [Shutdown()]
//	stateSleeping (2) → stateRunning (3)     [work arrives, CAS]
//	stateSleeping (2) → stateTerminating (4) [Shutdown()]
//	stateTerminating (4) → stateTerminated (1) [shutdown complete]
//	stateTerminated (1) → (terminal)
//
// Use TryTransition (CAS) for the reversible states (Running, Sleeping); use
// Store only for the one-way move into Terminating/Terminated.
//
// The Running <-> Sleeping edges are permitted by this type, but nothing in
// the scheduler currently stores stateSleeping: worker idleness is tracked
// by the sleeping counter instead, and the state stays Running until Shutdown.
type schedState uint64

const (
	stateAwake       schedState = 0
	stateTerminated  schedState = 1
	stateSleeping    schedState = 2
	stateRunning     schedState = 3
	stateTerminating schedState = 4
)

func (s schedState) String() string {
	switch s {
	case stateAwake:
		return "Awake"
	case stateRunning:
		return "Running"
	case stateSleeping:
		return "Sleeping"
	case stateTerminating:
		return "Terminating"
	case stateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// fastState is a lock-free state machine with cache-line padding, used for
// the scheduler-wide lifecycle. Pure atomic CAS, no mutex.
type fastState struct { // betteralign:ignore
	_ [64]byte      //nolint:unused
	v atomic.Uint64
	_ [56]byte //nolint:unused
}

func newFastState() *fastState {
	s := &fastState{}
	s.v.Store(uint64(stateAwake))
	return s
}

func (s *fastState) Load() schedState {
	return schedState(s.v.Load())
}

func (s *fastState) Store(state schedState) {
	s.v.Store(uint64(state))
}

func (s *fastState) TryTransition(from, to schedState) bool {
	return s.v.CompareAndSwap(uint64(from), uint64(to))
}

func (s *fastState) TransitionAny(validFrom []schedState, to schedState) bool {
	for _, from := range validFrom {
		if s.v.CompareAndSwap(uint64(from), uint64(to)) {
			return true
		}
	}
	return false
}

func (s *fastState) IsTerminal() bool {
	return s.Load() == stateTerminated
}

func (s *fastState) IsRunning() bool {
	state := s.Load()
	return state == stateRunning || state == stateSleeping
}

func (s *fastState) CanAcceptWork() bool {
	state := s.Load()
	return state == stateAwake || state == stateRunning || state == stateSleeping
}
