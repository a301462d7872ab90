package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, SchedulerConfig{
		Concurrency:           4,
		ContextWindow:         5,
		SummaryMaxChars:       280,
		CancelSiblingsOnError: true,
	}, cfg.Scheduler)
	assert.Equal(t, PlannerConfig{Worker: "planner", Coordinator: "coordinator", MaxDepth: 3}, cfg.Planner)

	require.Len(t, cfg.Workers, 1)
	assert.Equal(t, "coordinator", cfg.Workers[0].Key)
	assert.Equal(t, "echo", cfg.Workers[0].Builtin)

	assert.Equal(t, "file", cfg.Output.Store)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "delegator", cfg.Metrics.Namespace)
	assert.Empty(t, cfg.Metrics.ListenAddr)

	assert.NoError(t, cfg.Validate())
}

func TestDefaultConfig_ReturnsFreshCopies(t *testing.T) {
	a := DefaultConfig()
	b := DefaultConfig()
	a.Workers[0].Key = "changed"
	a.Log.OutputPaths[0] = "changed"

	assert.Equal(t, "coordinator", b.Workers[0].Key)
	assert.Equal(t, "stderr", b.Log.OutputPaths[0])
}
