package fiberrt

import (
	"sync"
	"time"
)

// schedStats tracks optional runtime statistics: latency distributions for
// spawn-to-first-run, park-to-unpark, and sleep overshoot, plus queue depth
// snapshots. Gathering is gated by cfg.fiberStats / cfg.spawnTiming
// (SPEC_FULL.md §2.1, §8) so a production run that doesn't ask for it pays
// nothing beyond a couple of boolean checks.
//
// Percentile tracking reuses quantile.go's O(1) streaming P² estimator
// rather than retaining samples.
type schedStats struct {
	spawnMu sync.Mutex
	spawn   *pSquareMultiQuantile // spawn -> first execute

	parkMu sync.Mutex
	park   *pSquareMultiQuantile // park commit -> unpark commit

	sleepMu sync.Mutex
	sleep   *pSquareMultiQuantile // deadline -> drained off the sleep queue (overshoot)

	queue queueDepthState
}

// queueDepthState is the mutex-guarded storage sysmon writes into; QueueDepth
// is the plain-value snapshot callers read back via QueueDepths, so a caller
// never copies a live sync.RWMutex (go vet copylocks).
type queueDepthState struct {
	mu sync.RWMutex

	local  map[int]int
	inbox  map[int]int
	global int
	sleep  int
}

// QueueDepth is a point-in-time, lock-free snapshot of each queue family's
// depth, sampled periodically by sysmon.
type QueueDepth struct {
	Local  map[int]int
	Inbox  map[int]int
	Global int
	Sleep  int
}

func newSchedStats() *schedStats {
	return &schedStats{
		spawn: newPSquareMultiQuantile(0.50, 0.90, 0.95, 0.99),
		park:  newPSquareMultiQuantile(0.50, 0.90, 0.95, 0.99),
		sleep: newPSquareMultiQuantile(0.50, 0.90, 0.95, 0.99),
		queue: queueDepthState{local: map[int]int{}, inbox: map[int]int{}},
	}
}

func (s *schedStats) recordSpawn(cfg config, d time.Duration) {
	if !cfg.spawnTiming {
		return
	}
	s.spawnMu.Lock()
	s.spawn.Update(float64(d))
	s.spawnMu.Unlock()
}

func (s *schedStats) recordParkToUnpark(cfg config, d time.Duration) {
	if !cfg.fiberStats {
		return
	}
	s.parkMu.Lock()
	s.park.Update(float64(d))
	s.parkMu.Unlock()
}

func (s *schedStats) recordSleepOvershoot(cfg config, d time.Duration) {
	if !cfg.fiberStats {
		return
	}
	s.sleepMu.Lock()
	s.sleep.Update(float64(d))
	s.sleepMu.Unlock()
}

// LatencySnapshot is a point-in-time read of a schedStats percentile track.
type LatencySnapshot struct {
	Count int
	P50   time.Duration
	P90   time.Duration
	P95   time.Duration
	P99   time.Duration
	Max   time.Duration
	Mean  time.Duration
}

func snapshotQuantile(mu *sync.Mutex, q *pSquareMultiQuantile) LatencySnapshot {
	mu.Lock()
	defer mu.Unlock()
	return LatencySnapshot{
		Count: q.Count(),
		P50:   time.Duration(q.Quantile(0)),
		P90:   time.Duration(q.Quantile(1)),
		P95:   time.Duration(q.Quantile(2)),
		P99:   time.Duration(q.Quantile(3)),
		Max:   time.Duration(q.Max()),
		Mean:  time.Duration(q.Mean()),
	}
}

// SpawnLatency returns the spawn-to-first-run latency distribution.
// Populated only when Init is given WithSpawnTiming(true).
func SpawnLatency() LatencySnapshot {
	s := globalSched()
	if s == nil {
		return LatencySnapshot{}
	}
	return snapshotQuantile(&s.stats.spawnMu, s.stats.spawn)
}

// ParkToUnparkLatency returns the park-to-unpark latency distribution.
// Populated only when Init is given WithFiberStats(true).
func ParkToUnparkLatency() LatencySnapshot {
	s := globalSched()
	if s == nil {
		return LatencySnapshot{}
	}
	return snapshotQuantile(&s.stats.parkMu, s.stats.park)
}

// SleepOvershoot returns the sleep-deadline-overshoot distribution (how long
// past the requested deadline a fiber was drained off the sleep queue and
// re-enqueued; the wait in the run queue after that is not included).
func SleepOvershoot() LatencySnapshot {
	s := globalSched()
	if s == nil {
		return LatencySnapshot{}
	}
	return snapshotQuantile(&s.stats.sleepMu, s.stats.sleep)
}

// sampleQueueDepth is called periodically by sysmon to refresh the queue
// depth snapshot consumed by QueueDepths.
func (s *Scheduler) sampleQueueDepth() {
	qd := &s.stats.queue
	qd.mu.Lock()
	defer qd.mu.Unlock()
	for _, w := range s.allWorkers() {
		qd.local[w.id] = w.local.Len()
		qd.inbox[w.id] = w.inbox.Len()
	}
	qd.global = s.global.Length()
	qd.sleep = s.sleepQ.Len()
}

// QueueDepths returns the most recent queue-depth snapshot sysmon collected.
// The result is a plain value: it carries no lock, so it is safe to copy,
// store, and pass around freely.
func QueueDepths() QueueDepth {
	s := globalSched()
	if s == nil {
		return QueueDepth{}
	}
	return s.queueDepthSnapshot()
}

// queueDepthSnapshot copies the mutex-guarded queue-depth state out into a
// plain QueueDepth value.
func (s *Scheduler) queueDepthSnapshot() QueueDepth {
	qd := &s.stats.queue
	qd.mu.RLock()
	defer qd.mu.RUnlock()
	out := QueueDepth{Local: make(map[int]int, len(qd.local)), Inbox: make(map[int]int, len(qd.inbox)), Global: qd.global, Sleep: qd.sleep}
	for k, v := range qd.local {
		out.Local[k] = v
	}
	for k, v := range qd.inbox {
		out.Inbox[k] = v
	}
	return out
}
