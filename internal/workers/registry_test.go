package workers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hyperion/pkg/errors"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	registry := NewRegistry()

	worker := newMockWorker("sweep-worker", time.Minute, true)
	require.NoError(t, registry.Register(worker))

	got, ok := registry.Get("sweep-worker")
	require.True(t, ok)
	assert.Equal(t, "sweep-worker", got.Name())
	assert.Equal(t, 1, registry.Count())

	// Duplicate registration is rejected
	err := registry.Register(worker)
	assert.True(t, errors.Is(err, errors.ErrAlreadyExists))
}

func TestRegistry_HealthLifecycle(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(newMockWorker("sweep-worker", time.Minute, true)))

	require.NoError(t, registry.MarkRunning("sweep-worker"))
	h, ok := registry.GetHealth("sweep-worker")
	require.True(t, ok)
	assert.True(t, h.IsRunning)

	require.NoError(t, registry.RecordRun("sweep-worker", 100*time.Millisecond))
	h, _ = registry.GetHealth("sweep-worker")
	assert.False(t, h.IsRunning)
	assert.Equal(t, int64(1), h.RunCount)
	assert.Equal(t, int64(0), h.ErrorCount)
	assert.Equal(t, 100*time.Millisecond, h.AvgDuration)

	require.NoError(t, registry.RecordError("sweep-worker", errors.New("boom")))
	h, _ = registry.GetHealth("sweep-worker")
	assert.Equal(t, int64(1), h.ErrorCount)
	assert.EqualError(t, h.LastError, "boom")

	// Unknown workers are reported, not silently created
	assert.True(t, errors.Is(registry.MarkRunning("unknown"), errors.ErrNotFound))
}

func TestRegistry_EnableWorker(t *testing.T) {
	registry := NewRegistry()
	worker := newMockWorker("distribution-worker", time.Hour, true)
	require.NoError(t, registry.Register(worker))

	require.NoError(t, registry.EnableWorker("distribution-worker", false))
	assert.False(t, worker.Enabled())
	assert.Equal(t, 0, registry.CountEnabled())

	h, _ := registry.GetHealth("distribution-worker")
	assert.False(t, h.Enabled)
}

func TestRegistry_UnhealthyWorkers(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(newMockWorker("stale-worker", time.Minute, true)))
	require.NoError(t, registry.Register(newMockWorker("fresh-worker", time.Minute, true)))
	require.NoError(t, registry.Register(newMockWorker("disabled-worker", time.Minute, false)))
	require.NoError(t, registry.EnableWorker("disabled-worker", false))

	require.NoError(t, registry.RecordRun("fresh-worker", time.Millisecond))

	unhealthy := registry.GetUnhealthyWorkers(time.Hour)
	assert.Contains(t, unhealthy, "stale-worker")
	assert.NotContains(t, unhealthy, "fresh-worker")
	assert.NotContains(t, unhealthy, "disabled-worker")
}

func TestScheduler_RegistryTracksExecutions(t *testing.T) {
	scheduler := NewScheduler()

	worker := newMockWorker("tracked-worker", 100*time.Millisecond, true)
	failing := newMockWorker("failing-worker", 100*time.Millisecond, true)
	failing.runFunc = func(ctx context.Context) error { return errors.New("oracle down") }

	scheduler.RegisterWorker(worker)
	scheduler.RegisterWorker(failing)
	assert.Equal(t, 2, scheduler.Registry().Count())

	require.NoError(t, scheduler.Start(context.Background()))
	time.Sleep(150 * time.Millisecond)
	require.NoError(t, scheduler.Stop())

	health := scheduler.Registry().GetAllHealth()
	require.Contains(t, health, "tracked-worker")
	require.Contains(t, health, "failing-worker")

	assert.Greater(t, health["tracked-worker"].RunCount, int64(0))
	assert.Equal(t, int64(0), health["tracked-worker"].ErrorCount)

	assert.Greater(t, health["failing-worker"].ErrorCount, int64(0))
	assert.EqualError(t, health["failing-worker"].LastError, "oracle down")
}
