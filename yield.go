package fiberrt

import "time"

// YieldLocal cooperatively suspends the fiber and re-enqueues it onto the
// local queue of whichever worker resumes this commit (SPEC_FULL.md §4.9).
func (f *Fiber) YieldLocal() {
	f.destYield = yieldLocal
	f.co.checkpoint()
}

// YieldGlobal cooperatively suspends the fiber and re-enqueues it onto the
// global queue, which can redistribute it to any worker.
func (f *Fiber) YieldGlobal() {
	f.destYield = yieldGlobal
	f.co.checkpoint()
}

// SleepMS suspends the fiber for at least ms milliseconds. sysmon's
// periodic sleep-queue drain re-enqueues it once the deadline passes
// (SPEC_FULL.md §4.9).
func (f *Fiber) SleepMS(ms uint32) {
	f.sleepDeadline = clockNow().Add(time.Duration(ms) * time.Millisecond)
	f.destYield = yieldSleep
	f.co.checkpoint()
}
