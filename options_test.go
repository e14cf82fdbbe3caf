package fiberrt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveConfig_DefaultsWithNoEnvOrOptions(t *testing.T) {
	cfg, err := resolveConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.workers)
	assert.Equal(t, spinFastItersDefault, cfg.spinFastIters)
	assert.Equal(t, spinYieldItersDefault, cfg.spinYieldIters)
	assert.True(t, cfg.sysmonEnabled)
	assert.False(t, cfg.fiberStats)
	assert.False(t, cfg.spawnTiming)
	assert.True(t, cfg.deadlockAbort)
}

func TestResolveConfig_EnvVarsOverrideDefaults(t *testing.T) {
	t.Setenv("WORKERS", "7")
	t.Setenv("SYSMON", "false")
	t.Setenv("FIBER_STATS", "true")

	cfg, err := resolveConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.workers)
	assert.False(t, cfg.sysmonEnabled)
	assert.True(t, cfg.fiberStats)
}

func TestResolveConfig_InvalidEnvValueFallsBackToDefault(t *testing.T) {
	t.Setenv("WORKERS", "not-a-number")
	cfg, err := resolveConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.workers)
}

func TestResolveConfig_OptionsOverrideEnv(t *testing.T) {
	t.Setenv("WORKERS", "7")

	cfg, err := resolveConfig([]Option{WithWorkers(3), WithSysmon(false)})
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.workers)
	assert.False(t, cfg.sysmonEnabled)
}

func TestResolveConfig_NilOptionIsSkipped(t *testing.T) {
	cfg, err := resolveConfig([]Option{nil, WithWorkers(5)})
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.workers)
}

func TestResolveConfig_OptionErrorPropagates(t *testing.T) {
	boom := &optionImpl{func(cfg *config) error {
		return ErrSpawnFailed
	}}
	_, err := resolveConfig([]Option{boom})
	assert.ErrorIs(t, err, ErrSpawnFailed)
}

func TestWithSpinIters_LeavesDefaultsWhenNonPositive(t *testing.T) {
	cfg, err := resolveConfig([]Option{WithSpinIters(0, -1)})
	require.NoError(t, err)
	assert.Equal(t, spinFastItersDefault, cfg.spinFastIters)
	assert.Equal(t, spinYieldItersDefault, cfg.spinYieldIters)
}

func TestWithSpinIters_OverridesBothWhenPositive(t *testing.T) {
	cfg, err := resolveConfig([]Option{WithSpinIters(99, 11)})
	require.NoError(t, err)
	assert.Equal(t, 99, cfg.spinFastIters)
	assert.Equal(t, 11, cfg.spinYieldIters)
}
