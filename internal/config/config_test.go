package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefault_HasSaneDispatcherTimeouts(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 4, cfg.Dispatcher.WorkerCount)
	assert.Equal(t, 30_000, int(cfg.Dispatcher.RequestTimeout.Milliseconds()))
	assert.Equal(t, 5_000, int(cfg.Dispatcher.RespawnBackoff.Milliseconds()))
	assert.Equal(t, 2, cfg.Dispatcher.ShutdownGraceSec)
}

func TestDefault_HasWatchDebounce(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 250, cfg.Watch.DebounceMs)
	assert.Equal(t, 1, cfg.Watch.InFlightParallelism)
}

func TestDefault_StoreDefaultsToMemory(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "memory", cfg.Store.Kind)
}

func TestDefaultExclusions_IncludesCommonDependencyDirs(t *testing.T) {
	exclusions := DefaultExclusions()

	assert.Contains(t, exclusions, "**/node_modules/**")
	assert.Contains(t, exclusions, "**/vendor/**")
}
