// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package fiberrt

import (
	"os"
	"strconv"
)

// config holds the resolved configuration for Init (SPEC_FULL.md §6).
// Defaults come from environment variables so a binary can be tuned without
// code changes; Option values passed to Init override the environment.
type config struct {
	workers        int
	spinFastIters  int
	spinYieldIters int

	sysmonEnabled bool
	fiberStats    bool
	spawnTiming   bool

	debugDeadlockRuntime bool
	debugJoin            bool
	debugWake            bool
	debugSysmon          bool
	debugInbox           bool
	debugStall           bool
	parkDebug            bool

	deadlockAbort bool
}

// --- Scheduler Options ---

// Option configures the scheduler at Init time.
type Option interface {
	applyConfig(*config) error
}

// optionImpl implements Option.
type optionImpl struct {
	applyConfigFunc func(*config) error
}

func (o *optionImpl) applyConfig(cfg *config) error {
	return o.applyConfigFunc(cfg)
}

// WithWorkers sets the base worker count. n <= 0 means
// runtime.GOMAXPROCS(0), the default.
func WithWorkers(n int) Option {
	return &optionImpl{func(cfg *config) error {
		cfg.workers = n
		return nil
	}}
}

// WithSpinIters overrides the fast-spin and yield-spin iteration counts a
// worker burns through before sleeping (SPEC_FULL.md §4.6 point 5).
// Either argument <= 0 leaves that tier's default in place.
func WithSpinIters(fast, yield int) Option {
	return &optionImpl{func(cfg *config) error {
		if fast > 0 {
			cfg.spinFastIters = fast
		}
		if yield > 0 {
			cfg.spinYieldIters = yield
		}
		return nil
	}}
}

// WithSysmon enables or disables the system monitor goroutine: heartbeat
// stall detection, replacement-worker spawning, and deadlock detection
// (SPEC_FULL.md §4.8). Disabled automatically for single-worker runs.
func WithSysmon(enabled bool) Option {
	return &optionImpl{func(cfg *config) error {
		cfg.sysmonEnabled = enabled
		return nil
	}}
}

// WithFiberStats enables park/unpark/sleep-overshoot latency percentile
// tracking (SPEC_FULL.md §2.1, quantile.go).
func WithFiberStats(enabled bool) Option {
	return &optionImpl{func(cfg *config) error {
		cfg.fiberStats = enabled
		return nil
	}}
}

// WithSpawnTiming enables spawn-to-first-run latency percentile tracking.
func WithSpawnTiming(enabled bool) Option {
	return &optionImpl{func(cfg *config) error {
		cfg.spawnTiming = enabled
		return nil
	}}
}

// WithDeadlockAbort sets whether a persisted deadlock calls the configured
// exit hook (default true; SPEC_FULL.md §4.8 deadlock detection, §10 REDESIGN FLAG on
// testability).
func WithDeadlockAbort(enabled bool) Option {
	return &optionImpl{func(cfg *config) error {
		cfg.deadlockAbort = enabled
		return nil
	}}
}

// resolveConfig builds a config from environment variables, then applies
// opts as overrides, mirroring the teacher's options-then-defaults
// resolution order but sourcing the base defaults from the environment
// instead of hardcoding them.
func resolveConfig(opts []Option) (config, error) {
	cfg := config{
		workers:        envInt("WORKERS", 0),
		spinFastIters:  envInt("SPIN_FAST_ITERS", spinFastItersDefault),
		spinYieldIters: envInt("SPIN_YIELD_ITERS", spinYieldItersDefault),

		sysmonEnabled: envBool("SYSMON", true),
		fiberStats:    envBool("FIBER_STATS", false),
		spawnTiming:   envBool("SPAWN_TIMING", false),

		debugDeadlockRuntime: envBool("DEBUG_DEADLOCK_RUNTIME", false),
		debugJoin:            envBool("DEBUG_JOIN", false),
		debugWake:            envBool("DEBUG_WAKE", false),
		debugSysmon:          envBool("DEBUG_SYSMON", false),
		debugInbox:           envBool("DEBUG_INBOX", false),
		debugStall:           envBool("DEBUG_STALL", false),
		parkDebug:            envBool("PARK_DEBUG", false),

		deadlockAbort: envBool("DEADLOCK_ABORT", true),
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyConfig(&cfg); err != nil {
			return config{}, err
		}
	}

	return cfg, nil
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
