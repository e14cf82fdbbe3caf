package fiberrt

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-catrate"
)

// Scheduler is the process-wide fiber runtime singleton (SPEC_FULL.md §9:
// "the scheduler is a process-wide singleton"). Init/Shutdown are its
// explicit lifecycle; tests call Shutdown in t.Cleanup to get a fresh
// process per test, matching the teacher's own Loop lifecycle discipline.
type Scheduler struct {
	state *fastState

	cfg config

	workersMu sync.RWMutex
	workers   []*worker

	replMu   sync.Mutex
	replWork []*worker

	global *globalQueue
	sleepQ *sleepQueue
	pool   *fiberPool
	wake   *wakeGroup

	fiberMu    sync.Mutex
	fiberTable []*Fiber

	pending  atomic.Int64
	spinning atomic.Int64
	sleeping atomic.Int64
	parked   atomic.Int64

	deadlockSince atomic.Int64 // clockNowNanos() when persistence window began; 0 = not observed

	log   *schedLogger
	stats *schedStats

	rateLimiter *catrate.Limiter

	sysmonWG   sync.WaitGroup
	sysmonStop chan struct{}

	workersWG sync.WaitGroup
	stopCh    chan struct{}
}

var globalPtr atomic.Pointer[Scheduler]

func globalSched() *Scheduler {
	return globalPtr.Load()
}

// Init starts the process-wide scheduler. Returns ErrAlreadyRunning if one
// is already active.
func Init(opts ...Option) error {
	if globalPtr.Load() != nil {
		return ErrAlreadyRunning
	}

	cfg, err := resolveConfig(opts)
	if err != nil {
		return err
	}

	s := &Scheduler{
		state:      newFastState(),
		cfg:        cfg,
		global:     newGlobalQueue(),
		sleepQ:     newSleepQueue(),
		pool:       newFiberPool(),
		wake:       newWakeGroup(),
		sysmonStop: make(chan struct{}),
		stopCh:     make(chan struct{}),
	}
	s.log = newSchedLogger(cfg)
	s.stats = newSchedStats()
	if cfg.sysmonEnabled {
		s.rateLimiter = catrate.NewLimiter(map[time.Duration]int{
			time.Second: 4,
		})
	}

	n := cfg.workers
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	if n > maxWorkers {
		n = maxWorkers
	}
	if n < 1 {
		n = 1
	}

	s.workers = make([]*worker, n)
	for i := 0; i < n; i++ {
		s.workers[i] = newWorker(s, i)
	}

	if !globalPtr.CompareAndSwap(nil, s) {
		return ErrAlreadyRunning
	}

	s.state.Store(stateRunning)

	s.workersWG.Add(n)
	for _, w := range s.workers {
		go w.run(&s.workersWG, s.stopCh)
	}

	if cfg.sysmonEnabled && n > 1 {
		s.sysmonWG.Add(1)
		go s.runSysmon()
	}

	return nil
}

// Shutdown stops all workers and sysmon, waits for pending work to drain
// within a bound, then tears everything down (SPEC_FULL.md §5 "Cleanup on
// exit").
func Shutdown() {
	s := globalPtr.Load()
	if s == nil {
		return
	}

	deadline := time.Now().Add(5 * time.Second)
	for s.pending.Load() > 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if !s.state.TransitionAny([]schedState{stateRunning, stateSleeping, stateAwake}, stateTerminating) {
		s.state.Store(stateTerminating)
	}

	close(s.sysmonStop)
	close(s.stopCh)
	s.wake.WakeAll()

	s.sysmonWG.Wait()
	s.workersWG.Wait()

	s.wake.Close()
	s.state.Store(stateTerminated)

	globalPtr.CompareAndSwap(s, nil)
}

// Active reports whether the scheduler is initialized and not yet shut
// down.
func Active() bool {
	s := globalPtr.Load()
	return s != nil && s.state.CanAcceptWork()
}

// GetNumWorkers returns the current base worker count.
func GetNumWorkers() int {
	s := globalPtr.Load()
	if s == nil {
		return 0
	}
	s.workersMu.RLock()
	defer s.workersMu.RUnlock()
	return len(s.workers)
}

// SetNumWorkers adjusts the base worker pool at runtime (SPEC_FULL.md §6).
// Growing spawns additional persistent workers immediately. Shrinking marks
// the excess workers, from the tail, for graceful retirement: each keeps
// running until it next finds itself idle, drains its own queues onto the
// global queue, then exits — mirroring the replacement-worker retirement
// path in worker.go rather than cutting a worker off mid-batch.
func SetNumWorkers(n int) {
	s := globalPtr.Load()
	if s == nil {
		return
	}
	if n < 1 {
		n = 1
	}
	if n > maxWorkers {
		n = maxWorkers
	}

	s.workersMu.Lock()
	defer s.workersMu.Unlock()

	cur := len(s.workers)
	switch {
	case n > cur:
		for i := cur; i < n; i++ {
			w := newWorker(s, i)
			s.workers = append(s.workers, w)
			s.workersWG.Add(1)
			go w.run(&s.workersWG, s.stopCh)
		}
	case n < cur:
		for i := n; i < cur; i++ {
			s.workers[i].retireRequested.Store(true)
		}
	}
}

func (s *Scheduler) wakeOne() {
	s.log.wake("waking one sleeping worker")
	s.wake.WakeOne()
}

func (s *Scheduler) fatal(err *FatalError) {
	s.log.fatal(err)
	panic(err)
}

func (s *Scheduler) heartbeatStale(w *worker, d time.Duration) bool {
	last := w.heartbeat.Load()
	if last == 0 {
		return false
	}
	return time.Duration(clockNowNanos()-last) > d
}

// resolve looks up a live fiber by handle, verifying the generation to
// guard against a handle outliving its fiber's pool-reuse cycle.
func (s *Scheduler) resolve(h FiberHandle) (*Fiber, bool) {
	s.fiberMu.Lock()
	defer s.fiberMu.Unlock()
	if int(h.index) < 0 || int(h.index) >= len(s.fiberTable) {
		return nil, false
	}
	f := s.fiberTable[h.index]
	if f == nil || f.gen != h.gen {
		return nil, false
	}
	return f, true
}

// register places a fiber into the handle table. A fresh fiber (index < 0)
// is appended and assigned a new slot; a pooled fiber being respawned keeps
// its slot (its generation was already advanced by the caller).
func (s *Scheduler) register(f *Fiber) {
	s.fiberMu.Lock()
	defer s.fiberMu.Unlock()
	if f.index < 0 {
		s.fiberTable = append(s.fiberTable, f)
		f.index = int32(len(s.fiberTable) - 1)
		return
	}
	s.fiberTable[f.index] = f
}
