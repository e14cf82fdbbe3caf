package fiberrt

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// currentFiber maps a coroutine's backing goroutine ID to the *Fiber it is
// running, so Current/InContext can answer from inside the fiber body
// without threading a context.Context through every call (SPEC_FULL.md §6).
// This works because coroutine.start (coroutine.go) dedicates one goroutine
// to a fiber for that fiber's entire lifetime: the goroutine ID is a stable
// key for as long as the fiber is running, including across every
// park/unpark suspension, since checkpoint() blocks that same goroutine
// rather than handing the body to a different one.
//
// github.com/joeycumines/goroutineid, the teacher's own dependency for this
// exact problem, ships no retrievable source in this tree (only a go.mod,
// pulled in transitively by an internal test module, never imported by the
// teacher's own packages) — so this parses runtime.Stack's header line
// instead, the documented portable technique for recovering the calling
// goroutine's ID without cgo or //go:linkname.
var currentFiberMap sync.Map // int64 goroutine id -> *Fiber

func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	// "goroutine 123 [running]:\n..."
	const prefix = "goroutine "
	if !bytes.HasPrefix(b, []byte(prefix)) {
		return -1
	}
	b = b[len(prefix):]
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return -1
	}
	return id
}

func setCurrentFiber(f *Fiber) {
	currentFiberMap.Store(goroutineID(), f)
}

func clearCurrentFiber() {
	currentFiberMap.Delete(goroutineID())
}

// Current returns the handle of the fiber running on the calling goroutine,
// if any. It is only meaningful when called from inside a fiber's entry
// function (or something it calls synchronously) — a worker loop, sysmon,
// or a plain application goroutine is never "in" a fiber context.
func Current() (FiberHandle, bool) {
	v, ok := currentFiberMap.Load(goroutineID())
	if !ok {
		return FiberHandle{}, false
	}
	return v.(*Fiber).Handle(), true
}

// InContext reports whether the calling goroutine is currently executing
// inside a fiber body.
func InContext() bool {
	_, ok := currentFiberMap.Load(goroutineID())
	return ok
}
