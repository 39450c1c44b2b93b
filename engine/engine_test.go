package engine

import (
	"context"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banton/medical-patients-sub001/engine/models"
	telemetryhealth "github.com/banton/medical-patients-sub001/engine/telemetry/health"
)

func testEngine(t *testing.T, mutate func(*Config)) *Engine {
	t.Helper()
	cfg := Defaults()
	cfg.OutputDir = t.TempDir()
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Stop() })
	return e
}

func smallScenario() Scenario {
	return Scenario{
		Days:          2,
		TotalPatients: 50,
		WarfareTypes:  map[string]bool{"conventional": true},
		Intensity:     "medium",
		Tempo:         "sustained",
		BaseDate:      time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		Seed:          3,
		OutputFormats: []string{"json"},
	}
}

func TestEngineGeneratesCohort(t *testing.T) {
	e := testEngine(t, nil)
	ctx := context.Background()

	jobID, err := e.Generate(ctx, smallScenario())
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	waitCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	job, err := e.WaitForJob(waitCtx, jobID)
	require.NoError(t, err)
	require.Equal(t, models.JobCompleted, job.Status, "error: %s", job.Error)
	assert.NotEmpty(t, job.ResultFiles)

	jobs, err := e.Jobs(ctx)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)

	snap := e.Snapshot(ctx)
	assert.Equal(t, 1, snap.TotalJobs)
	assert.Equal(t, 1, snap.JobStatuses[string(models.JobCompleted)])
}

func TestEngineScenarioDefaults(t *testing.T) {
	e := testEngine(t, nil)
	ctx := context.Background()

	// Warfare mix, intensity, and tempo default when omitted.
	jobID, err := e.Generate(ctx, Scenario{Days: 1, TotalPatients: 10, Seed: 1})
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	job, err := e.WaitForJob(waitCtx, jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobCompleted, job.Status, "error: %s", job.Error)
}

func TestEngineRejectsInvalidScenario(t *testing.T) {
	e := testEngine(t, nil)
	_, err := e.Generate(context.Background(), Scenario{Days: 0, TotalPatients: 0})
	assert.ErrorIs(t, err, models.ErrInvalidConfiguration)
}

func TestMetricsHandler(t *testing.T) {
	t.Run("disabled returns nil", func(t *testing.T) {
		e := testEngine(t, nil)
		assert.Nil(t, e.MetricsHandler())
	})

	t.Run("prometheus backend serves text exposition", func(t *testing.T) {
		e := testEngine(t, func(c *Config) {
			c.MetricsEnabled = true
			c.MetricsBackend = "prom"
		})
		handler := e.MetricsHandler()
		require.NotNil(t, handler)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
		assert.Equal(t, 200, rec.Code)
	})

	t.Run("noop backend has no handler", func(t *testing.T) {
		e := testEngine(t, func(c *Config) {
			c.MetricsEnabled = true
			c.MetricsBackend = "noop"
		})
		assert.Nil(t, e.MetricsHandler())
	})
}

func TestHealthSnapshot(t *testing.T) {
	e := testEngine(t, nil)
	snap := e.HealthSnapshot(context.Background())
	assert.NotEqual(t, telemetryhealth.Snapshot{}, snap)
	assert.NotEmpty(t, snap.Probes)
	assert.NotEqual(t, telemetryhealth.StatusUnhealthy, snap.Overall)
}

func TestEventObserversSeeJobLifecycle(t *testing.T) {
	e := testEngine(t, nil)

	var seen atomic.Int64
	e.RegisterEventObserver(func(ev TelemetryEvent) {
		if ev.Category == "jobs" {
			seen.Add(1)
		}
	})

	ctx := context.Background()
	jobID, err := e.Generate(ctx, smallScenario())
	require.NoError(t, err)
	waitCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	_, err = e.WaitForJob(waitCtx, jobID)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return seen.Load() >= 2 }, 5*time.Second, 50*time.Millisecond,
		"expected job_started and job_completed events")
}

func TestCancelJobValidation(t *testing.T) {
	e := testEngine(t, nil)
	ctx := context.Background()

	err := e.CancelJob(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrJobNotFound)

	jobID, err := e.Generate(ctx, smallScenario())
	require.NoError(t, err)
	waitCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	_, err = e.WaitForJob(waitCtx, jobID)
	require.NoError(t, err)

	// Cancelling a finished job is an invalid operation.
	assert.ErrorIs(t, e.CancelJob(ctx, jobID), models.ErrInvalidOperation)
}

func TestCatalogAccessor(t *testing.T) {
	e := testEngine(t, nil)
	cat := e.Catalog()
	require.NotNil(t, cat)
	assert.Contains(t, cat.DeteriorationModel, "Battle Injury")
}
