package fiberrt

import (
	"runtime"
	"time"
)

// sysmon tuning constants (SPEC_FULL.md §4.8).
const (
	sysmonTickInterval   = time.Millisecond
	sysmonStallScanEvery = 2 * time.Second

	// heartbeatStallThreshold is how long a worker may go without
	// completing a batch before sysmon considers it stalled and spawns a
	// replacement.
	heartbeatStallThreshold = 2 * time.Second

	// replacementIdleTimeout is how long a replacement worker may sit idle
	// before retiring itself (worker.go's shouldRetire).
	replacementIdleTimeout = 2 * time.Second

	// deadlockPersistenceWindow is how long the "every worker asleep, and
	// at least one fiber parked" condition must hold
	// continuously before it is reported as a deadlock (SPEC_FULL.md §4.8
	// deadlock detection — avoids false positives from a momentary all-idle window).
	deadlockPersistenceWindow = 1 * time.Second

	// stallScanThreshold is how long a fiber may sit OWNED by a worker
	// without the worker completing a batch before sysmon logs a stall
	// record for it (SPEC_FULL.md §4.8 point 2).
	stallScanThreshold = 5 * time.Second
)

// deadlockExitHook is invoked when a deadlock persists past the detection
// window and cfg.deadlockAbort is set. Swappable for tests (SPEC_FULL.md
// §10 REDESIGN FLAG on testability), so a test can assert detection fired
// without actually terminating the process.
var deadlockExitHook = func() { osExit(124) }

// runSysmon is the system monitor goroutine: drains the sleep queue even if
// every worker is asleep, periodically scans for stalled workers and spawns
// rate-limited replacements, retires idle replacements, and checks for
// persisted deadlock (SPEC_FULL.md §4.8).
func (s *Scheduler) runSysmon() {
	defer s.sysmonWG.Done()

	ticker := time.NewTicker(sysmonTickInterval)
	defer ticker.Stop()

	lastStallScan := clockNow()

	for {
		select {
		case <-s.sysmonStop:
			return
		case <-ticker.C:
		}

		now := clockNow()

		var drained []*Fiber
		if n := s.sleepQ.Drain(now, &drained); n > 0 {
			s.requeueWoken(drained, now)
			s.wakeOne()
		}

		s.sampleQueueDepth()

		if now.Sub(lastStallScan) >= sysmonStallScanEvery {
			lastStallScan = now
			s.scanForStalls(now)
			s.scanStalledFibers()
			s.retireIdleReplacements()
			s.pruneRetiredBaseWorkers()
		}

		s.checkDeadlock()
	}
}

// requeueWoken pushes fibers drained from the sleep queue directly onto the
// global queue (SPEC_FULL.md §4.2). A slept fiber was left QUEUED the whole
// time it waited (see park.go's commitYield yieldSleep case), so there is
// no PARKED state for Unpark to transition it out of — routing it through
// UnparkFiber instead would just latch a no-op pendingUnpark and strand it.
func (s *Scheduler) requeueWoken(drained []*Fiber, now time.Time) {
	for _, f := range drained {
		s.stats.recordSleepOvershoot(s.cfg, now.Sub(f.sleepDeadline))
		f.touch()
		s.global.Push(f)
	}
}

// scanForStalls looks for base workers whose heartbeat is stale and spawns
// a rate-limited replacement worker for each (SPEC_FULL.md §4.8 point 3).
func (s *Scheduler) scanForStalls(now time.Time) {
	s.workersMu.RLock()
	workers := s.workers
	s.workersMu.RUnlock()

	for _, w := range workers {
		if !s.heartbeatStale(w, heartbeatStallThreshold) {
			continue
		}
		s.spawnReplacement(w)
	}
}

// scanStalledFibers logs a diagnostic record for any fiber that has sat
// OWNED by a worker past stallScanThreshold — a worker batch that never
// returns, typically a fiber body blocked in foreign code or stuck in a
// loop without yielding (SPEC_FULL.md §4.8 point 2). Gated by DEBUG_STALL,
// like every other category trace.
func (s *Scheduler) scanStalledFibers() {
	if !s.cfg.debugStall {
		return
	}

	s.fiberMu.Lock()
	fibers := make([]*Fiber, len(s.fiberTable))
	copy(fibers, s.fiberTable)
	s.fiberMu.Unlock()

	for _, f := range fibers {
		if f == nil {
			continue
		}
		wid, owned := ownerOf(f.control.Load())
		if !owned {
			continue
		}
		stalled := f.stalledSince()
		if stalled < stallScanThreshold {
			continue
		}
		s.log.stall("fiber stalled in OWNED state", f.ID(), stalled.Milliseconds(), f.parkReason, wid)
	}
}

func (s *Scheduler) spawnReplacement(stalled *worker) {
	s.workersMu.RLock()
	baseCount := len(s.workers)
	s.workersMu.RUnlock()

	s.replMu.Lock()
	total := baseCount + len(s.replWork)
	s.replMu.Unlock()

	capacity := 2 * runtime.GOMAXPROCS(0)
	if capacity > maxWorkers {
		capacity = maxWorkers
	}
	if total >= capacity {
		s.log.sysmon("replacement worker cap reached, not spawning", stalled.id)
		return
	}

	if s.rateLimiter != nil {
		if _, ok := s.rateLimiter.Allow("replacement"); !ok {
			s.log.sysmon("replacement spawn rate-limited", stalled.id)
			return
		}
	}

	s.workersMu.RLock()
	baseCount = len(s.workers)
	s.workersMu.RUnlock()

	s.replMu.Lock()
	id := baseCount + len(s.replWork)
	w := newReplacementWorker(s, id)
	s.replWork = append(s.replWork, w)
	s.replMu.Unlock()

	s.log.replacement("spawning replacement worker for stalled worker", stalled.id)

	s.workersWG.Add(1)
	go w.run(&s.workersWG, s.stopCh)
}

// retireIdleReplacements drops replacement workers whose run loop has
// exited (worker.tick returned false after shouldRetire) from replWork, so
// allWorkers/stealing stop considering them.
func (s *Scheduler) retireIdleReplacements() {
	s.replMu.Lock()
	defer s.replMu.Unlock()
	live := s.replWork[:0]
	for _, w := range s.replWork {
		if w.retired.Load() {
			continue
		}
		live = append(live, w)
	}
	s.replWork = live
}

// pruneRetiredBaseWorkers drops base workers that have exited after a
// SetNumWorkers shrink from the tail of s.workers, once their run loop has
// actually returned. Only the tail is ever trimmed, since SetNumWorkers
// only marks the tail for retirement — this keeps the surviving workers'
// indices (and therefore affinity hints already recorded against them)
// stable.
func (s *Scheduler) pruneRetiredBaseWorkers() {
	s.workersMu.Lock()
	defer s.workersMu.Unlock()
	for len(s.workers) > 0 && s.workers[len(s.workers)-1].retired.Load() {
		s.workers = s.workers[:len(s.workers)-1]
	}
}

// checkDeadlock implements the time-windowed deadlock check (SPEC_FULL.md
// §4.8 deadlock detection): if the sleeping count reaches the number of
// workers and at least one fiber is parked, that condition must hold
// continuously for deadlockPersistenceWindow before being reported.
// Goroutines blocked in a thread-context Join are not counted as idle.
func (s *Scheduler) checkDeadlock() {
	total := int64(len(s.allWorkers()))
	allIdle := s.sleeping.Load() >= total
	parked := s.parked.Load()

	if !allIdle || parked == 0 {
		s.deadlockSince.Store(0)
		return
	}

	now := clockNowNanos()
	since := s.deadlockSince.Load()
	if since == 0 {
		s.deadlockSince.Store(now)
		return
	}

	if time.Duration(now-since) < deadlockPersistenceWindow {
		return
	}

	qd, parkedFibers, allFibers := s.deadlockDump()

	err := &DeadlockError{
		SleepingCount:  int(s.sleeping.Load()),
		ParkedCount:    int(parked),
		TotalWorkers:   int(total),
		PersistedSince: time.Duration(now - since).String(),
		QueueDepths:    qd,
		ParkedFibers:   parkedFibers,
		AllFibers:      allFibers,
	}
	s.log.deadlock(err)

	if s.cfg.deadlockAbort {
		deadlockExitHook()
	}
}

// deadlockDump gathers the diagnostic payload SPEC_FULL.md §4.8/§7 require
// once a deadlock persists past the detection window: queue depths, every
// currently parked fiber with its park reason, and every known fiber's
// current control-word state.
func (s *Scheduler) deadlockDump() (QueueDepth, []ParkedFiberInfo, []FiberStateInfo) {
	s.sampleQueueDepth()
	qd := s.queueDepthSnapshot()

	s.fiberMu.Lock()
	fibers := make([]*Fiber, len(s.fiberTable))
	copy(fibers, s.fiberTable)
	s.fiberMu.Unlock()

	var parkedFibers []ParkedFiberInfo
	allFibers := make([]FiberStateInfo, 0, len(fibers))
	for _, f := range fibers {
		if f == nil {
			continue
		}
		c := f.control.Load()
		allFibers = append(allFibers, FiberStateInfo{FiberID: f.ID(), Control: controlString(c)})
		if c == parkedControl {
			parkedFibers = append(parkedFibers, ParkedFiberInfo{FiberID: f.ID(), Reason: f.parkReason})
		}
	}
	return qd, parkedFibers, allFibers
}
