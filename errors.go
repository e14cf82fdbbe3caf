// Package fiberrt error taxonomy: sentinel values for expected failures plus
// structured types, with cause-chain support, for invariant violations.
package fiberrt

import (
	"errors"
	"fmt"
)

// ErrNotRunning is returned when an API is called before [Init] or after
// [Shutdown] has completed.
var ErrNotRunning = errors.New("fiberrt: scheduler not running")

// ErrAlreadyRunning is returned by [Init] when called on an already-running
// scheduler.
var ErrAlreadyRunning = errors.New("fiberrt: scheduler already running")

// ErrSpawnFailed wraps the underlying cause of a rejected [Spawn]: either
// allocation failure or an unexpected control-word state on a pooled fiber.
var ErrSpawnFailed = errors.New("fiberrt: spawn failed")

// ErrJoinSelf is returned when a fiber attempts to join itself, which would
// deadlock deterministically.
var ErrJoinSelf = errors.New("fiberrt: fiber cannot join itself")

// FatalError represents a scheduler invariant violation — a coroutine
// primitive observed in a state its contract forbids, or a control-word CAS
// that should have been uncontested failing. These are not meant to be
// recovered from; the scheduler panics after logging one.
type FatalError struct {
	Cause   error
	Message string
}

func (e *FatalError) Error() string {
	if e.Message == "" {
		return "fiberrt: fatal scheduler invariant violation"
	}
	return e.Message
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *FatalError) Unwrap() error {
	return e.Cause
}

// ParkedFiberInfo is one entry of a DeadlockError's parked-fiber list.
type ParkedFiberInfo struct {
	FiberID uint64
	Reason  string
}

// FiberStateInfo is one entry of a DeadlockError's all-fibers list.
type FiberStateInfo struct {
	FiberID uint64
	Control string
}

// DeadlockError is emitted in the diagnostic dump sysmon produces once the
// "all workers asleep, fibers still parked" condition has persisted past the
// detection window. It is informational: by the time a caller could observe
// it, the process is already exiting (unless DEADLOCK_ABORT=0).
type DeadlockError struct {
	Cause          error
	SleepingCount  int
	ParkedCount    int
	TotalWorkers   int
	PersistedSince string
	QueueDepths    QueueDepth
	ParkedFibers   []ParkedFiberInfo
	AllFibers      []FiberStateInfo
}

func (e *DeadlockError) Error() string {
	return fmt.Sprintf(
		"fiberrt: deadlock detected (sleeping=%d parked=%d total=%d since=%s)",
		e.SleepingCount, e.ParkedCount, e.TotalWorkers, e.PersistedSince,
	)
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *DeadlockError) Unwrap() error {
	return e.Cause
}

// WrapError wraps an error with a message and optional cause chain. The
// result satisfies errors.Is(result, cause) == true.
func WrapError(message string, cause error) error {
	return fmt.Errorf("%s: %w", message, cause)
}
