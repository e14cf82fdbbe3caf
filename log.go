// log.go - Structured Logging for the Fiber Scheduler
//
// Logging runs through logiface (github.com/joeycumines/logiface), backed by
// zerolog (github.com/rs/zerolog) via the izerolog adapter
// (github.com/joeycumines/izerolog). Categories gate verbose diagnostics
// behind the DEBUG_* config flags (SPEC_FULL.md §6) so a production run pays
// for structured fields only where it asked to.

package fiberrt

import (
	"os"
	"strconv"
	"strings"

	"github.com/joeycumines/izerolog"
	"github.com/joeycumines/logiface"
	"github.com/rs/zerolog"
)

// schedLogger wraps a logiface.Logger with the category gates this package
// needs; every method is a cheap no-op when its category is disabled,
// since logiface itself short-circuits disabled levels before allocating.
type schedLogger struct {
	l *logiface.Logger[*izerolog.Event]

	debugDeadlockRuntime bool
	debugJoin            bool
	debugWake            bool
	debugSysmon          bool
	debugInbox           bool
	debugStall           bool
	parkDebug            bool
}

func newSchedLogger(cfg config) *schedLogger {
	level := logiface.LevelInformational
	if cfg.debugDeadlockRuntime || cfg.debugJoin || cfg.debugWake || cfg.debugSysmon ||
		cfg.debugInbox || cfg.debugStall || cfg.parkDebug {
		level = logiface.LevelDebug
	}

	zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}).With().Timestamp().Logger()

	return &schedLogger{
		l:                    logiface.New(logiface.WithLevel[*izerolog.Event](level), izerolog.WithZerolog(zl)),
		debugDeadlockRuntime: cfg.debugDeadlockRuntime,
		debugJoin:            cfg.debugJoin,
		debugWake:            cfg.debugWake,
		debugSysmon:          cfg.debugSysmon,
		debugInbox:           cfg.debugInbox,
		debugStall:           cfg.debugStall,
		parkDebug:            cfg.parkDebug,
	}
}

func (s *schedLogger) fatal(err *FatalError) {
	s.l.Err().Err(err).Str("category", "fatal").Log("fiberrt: fatal scheduler error")
}

func (s *schedLogger) deadlock(err *DeadlockError) {
	s.l.Err().Err(err).
		Int("sleeping", err.SleepingCount).
		Int("parked", err.ParkedCount).
		Int("workers", err.TotalWorkers).
		Str("persisted_since", err.PersistedSince).
		Int("queue_global", err.QueueDepths.Global).
		Int("queue_sleep", err.QueueDepths.Sleep).
		Str("queue_local", formatIntMap(err.QueueDepths.Local)).
		Str("queue_inbox", formatIntMap(err.QueueDepths.Inbox)).
		Str("parked_fibers", formatParkedFibers(err.ParkedFibers)).
		Str("all_fibers", formatFiberStates(err.AllFibers)).
		Log("fiberrt: deadlock persisted past the detection window")
}

func formatIntMap(m map[int]int) string {
	var b strings.Builder
	for k, v := range m {
		if b.Len() > 0 {
			b.WriteByte(';')
		}
		b.WriteString(strconv.Itoa(k))
		b.WriteByte('=')
		b.WriteString(strconv.Itoa(v))
	}
	return b.String()
}

func formatParkedFibers(fibers []ParkedFiberInfo) string {
	var b strings.Builder
	for _, f := range fibers {
		if b.Len() > 0 {
			b.WriteByte(';')
		}
		b.WriteString(strconv.FormatUint(f.FiberID, 10))
		b.WriteString(":")
		b.WriteString(f.Reason)
	}
	return b.String()
}

func formatFiberStates(fibers []FiberStateInfo) string {
	var b strings.Builder
	for _, f := range fibers {
		if b.Len() > 0 {
			b.WriteByte(';')
		}
		b.WriteString(strconv.FormatUint(f.FiberID, 10))
		b.WriteString(":")
		b.WriteString(f.Control)
	}
	return b.String()
}

func (s *schedLogger) sysmon(msg string, workerID int) {
	if !s.debugSysmon {
		return
	}
	s.l.Debug().Int("worker_id", workerID).Str("category", "sysmon").Log(msg)
}

func (s *schedLogger) replacement(msg string, workerID int) {
	if !s.debugSysmon {
		return
	}
	s.l.Info().Int("worker_id", workerID).Str("category", "sysmon").Log(msg)
}

func (s *schedLogger) join(msg string, fiberID uint64) {
	if !s.debugJoin {
		return
	}
	s.l.Debug().Int("fiber_id", int(fiberID)).Str("category", "join").Log(msg)
}

func (s *schedLogger) wake(msg string) {
	if !s.debugWake {
		return
	}
	s.l.Debug().Str("category", "wake").Log(msg)
}

func (s *schedLogger) inbox(msg string, workerID int) {
	if !s.debugInbox {
		return
	}
	s.l.Debug().Int("worker_id", workerID).Str("category", "inbox").Log(msg)
}

func (s *schedLogger) stall(msg string, fiberID uint64, stalledMS int64, reason string, workerID int) {
	if !s.debugStall {
		return
	}
	s.l.Warning().Int("fiber_id", int(fiberID)).Int("stalled_ms", int(stalledMS)).
		Int("worker_id", workerID).Str("reason", reason).Str("category", "stall").Log(msg)
}

func (s *schedLogger) park(msg string, fiberID uint64, reason string) {
	if !s.parkDebug {
		return
	}
	s.l.Debug().Int("fiber_id", int(fiberID)).Str("reason", reason).Str("category", "park").Log(msg)
}
