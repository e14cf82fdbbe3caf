//go:build !linux

package fiberrt

// wakeGroup on non-Linux platforms is the portable condvar-backed
// primitive; see wake.go and DESIGN.md for why no kqueue/self-pipe variant
// is implemented here.
type wakeGroup = condWakeGroup

func newWakeGroup() *wakeGroup {
	return newCondWakeGroup()
}
