//go:build linux

package fiberrt

import (
	"time"

	"golang.org/x/sys/unix"
)

// wakeGroup is the Linux wake primitive: an eventfd drained/armed through
// epoll with a timeout. Grounded on the teacher's wakeup_linux.go eventfd
// plumbing fused with the epoll_wait-with-timeout pattern from its (removed)
// poller_linux.go FastPoller, repurposed here from "wake the I/O-poll" to
// "wake a sleeping worker" per SPEC_FULL.md §4.1.
//
// Waiters must snapshot the counter, check their condition, then call
// WaitTimeout against that snapshot; producers must publish their work
// before calling WakeOne/WakeAll. That ordering is what makes the wake
// lossless — see worker.go's idle for the protocol that depends on it.
type wakeGroup struct {
	counter  atomicCounter
	fd       int
	epollFD  int
	fallback *condWakeGroup // used only if eventfd/epoll setup fails
}

func newWakeGroup() *wakeGroup {
	w := &wakeGroup{fd: -1}

	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		w.fallback = newCondWakeGroup()
		return w
	}
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		_ = unix.Close(fd)
		w.fallback = newCondWakeGroup()
		return w
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		_ = unix.Close(fd)
		_ = unix.Close(epfd)
		w.fallback = newCondWakeGroup()
		return w
	}

	w.fd = fd
	w.epollFD = epfd
	return w
}

func (w *wakeGroup) Snapshot() uint64 {
	if w.fallback != nil {
		return w.fallback.Snapshot()
	}
	return w.counter.Load()
}

func (w *wakeGroup) WakeOne() { w.wake() }
func (w *wakeGroup) WakeAll() { w.wake() }

func (w *wakeGroup) wake() {
	if w.fallback != nil {
		w.fallback.WakeAll()
		return
	}
	w.counter.Add(1)
	var buf [8]byte
	buf[0] = 1
	_, _ = unix.Write(w.fd, buf[:])
}

// WaitTimeout blocks until the counter no longer equals expected, or d
// elapses. Returns true if woken by a counter change, false on timeout.
func (w *wakeGroup) WaitTimeout(expected uint64, d time.Duration) bool {
	if w.fallback != nil {
		return w.fallback.WaitTimeout(expected, d)
	}
	if w.counter.Load() != expected {
		return true
	}

	events := make([]unix.EpollEvent, 1)
	timeoutMS := int(d.Milliseconds())
	if timeoutMS <= 0 {
		timeoutMS = 1
	}
	n, _ := unix.EpollWait(w.epollFD, events, timeoutMS)
	if n > 0 {
		var buf [8]byte
		for {
			if _, err := unix.Read(w.fd, buf[:]); err != nil {
				break
			}
		}
	}
	return w.counter.Load() != expected
}

func (w *wakeGroup) Close() {
	if w.fallback != nil {
		w.fallback.Close()
		return
	}
	if w.fd >= 0 {
		_ = unix.Close(w.fd)
	}
	if w.epollFD > 0 {
		_ = unix.Close(w.epollFD)
	}
}
