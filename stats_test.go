package fiberrt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedStats_RecordSpawnNoopWhenDisabled(t *testing.T) {
	s := newSchedStats()
	s.recordSpawn(config{spawnTiming: false}, 5*time.Millisecond)
	snap := snapshotQuantile(&s.spawnMu, s.spawn)
	assert.Equal(t, 0, snap.Count)
}

func TestSchedStats_RecordSpawnTracksSamplesWhenEnabled(t *testing.T) {
	s := newSchedStats()
	cfg := config{spawnTiming: true}
	s.recordSpawn(cfg, 5*time.Millisecond)
	s.recordSpawn(cfg, 10*time.Millisecond)

	snap := snapshotQuantile(&s.spawnMu, s.spawn)
	assert.Equal(t, 2, snap.Count)
	assert.Greater(t, snap.Max, time.Duration(0))
}

func TestSchedStats_RecordParkToUnparkGatedByFiberStats(t *testing.T) {
	s := newSchedStats()
	s.recordParkToUnpark(config{fiberStats: false}, time.Second)
	assert.Equal(t, 0, snapshotQuantile(&s.parkMu, s.park).Count)

	s.recordParkToUnpark(config{fiberStats: true}, time.Second)
	assert.Equal(t, 1, snapshotQuantile(&s.parkMu, s.park).Count)
}

func TestSchedStats_RecordSleepOvershootGatedByFiberStats(t *testing.T) {
	s := newSchedStats()
	s.recordSleepOvershoot(config{fiberStats: true}, 2*time.Millisecond)
	assert.Equal(t, 1, snapshotQuantile(&s.sleepMu, s.sleep).Count)
}

func TestSpawnLatency_ZeroValueWithoutScheduler(t *testing.T) {
	installGlobalScheduler(t, nil)
	snap := SpawnLatency()
	assert.Equal(t, LatencySnapshot{}, snap)
}

func TestParkToUnparkLatency_ZeroValueWithoutScheduler(t *testing.T) {
	installGlobalScheduler(t, nil)
	assert.Equal(t, LatencySnapshot{}, ParkToUnparkLatency())
}

func TestSleepOvershoot_ZeroValueWithoutScheduler(t *testing.T) {
	installGlobalScheduler(t, nil)
	assert.Equal(t, LatencySnapshot{}, SleepOvershoot())
}

func TestQueueDepths_ZeroValueWithoutScheduler(t *testing.T) {
	installGlobalScheduler(t, nil)
	assert.Equal(t, QueueDepth{}, QueueDepths())
}

func TestSchedStats_SampleQueueDepthReflectsCurrentOccupancy(t *testing.T) {
	s := newTestScheduler(t, 2)
	installGlobalScheduler(t, s)

	require.True(t, s.workers[0].local.Push(newTestFiber(s)))
	require.True(t, s.workers[1].inbox.Push(newTestFiber(s)))
	s.global.Push(newTestFiber(s))
	s.sleepQ.Push(newTestFiber(s))

	s.sampleQueueDepth()

	qd := QueueDepths()
	assert.Equal(t, 1, qd.Local[0])
	assert.Equal(t, 0, qd.Local[1])
	assert.Equal(t, 1, qd.Inbox[1])
	assert.Equal(t, 1, qd.Global)
	assert.Equal(t, 1, qd.Sleep)
}
