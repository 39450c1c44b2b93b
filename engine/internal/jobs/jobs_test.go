package jobs

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banton/medical-patients-sub001/engine/config"
	"github.com/banton/medical-patients-sub001/engine/models"
)

func testScenario(patients int) Scenario {
	return Scenario{
		Days:          2,
		TotalPatients: patients,
		WarfareTypes:  map[string]bool{"conventional": true},
		Intensity:     "medium",
		Tempo:         "sustained",
		BaseDate:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Seed:          7,
	}
}

func TestMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	job := &models.Job{ID: "j1", Status: models.JobPending}
	require.NoError(t, s.Create(ctx, job))
	assert.ErrorIs(t, s.Create(ctx, job), models.ErrInvalidOperation)

	got, err := s.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, models.JobPending, got.Status)

	got.Status = models.JobRunning
	require.NoError(t, s.Update(ctx, got))

	// The store hands out copies; mutating a fetched job does not leak back.
	fetched, _ := s.Get(ctx, "j1")
	fetched.Status = models.JobFailed
	again, _ := s.Get(ctx, "j1")
	assert.Equal(t, models.JobRunning, again.Status)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.Delete(ctx, "j1"))
	_, err = s.Get(ctx, "j1")
	assert.ErrorIs(t, err, models.ErrJobNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "j1"), models.ErrJobNotFound)
}

func TestGovernorAdmission(t *testing.T) {
	g := NewGovernor(GovernorConfig{
		MaxMemoryMB:       4096,
		MaxCPUSeconds:     600,
		MaxRuntimeSeconds: 600,
		MaxConcurrentJobs: 1,
	})

	_, release := g.Track(context.Background(), "j1")
	assert.Equal(t, 1, g.ActiveCount())
	assert.False(t, g.CanStart()) // concurrency cap reached

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	assert.False(t, g.WaitForResources(ctx, 1500*time.Millisecond))

	release()
	assert.Equal(t, 0, g.ActiveCount())
}

func TestGovernorCancel(t *testing.T) {
	g := NewGovernor(GovernorConfig{MaxMemoryMB: 4096, MaxCPUSeconds: 600, MaxRuntimeSeconds: 600, MaxConcurrentJobs: 2})
	jobCtx, release := g.Track(context.Background(), "j1")
	defer release()

	assert.False(t, g.Cancelled("j1"))
	g.Cancel("j1")
	assert.True(t, g.Cancelled("j1"))

	select {
	case <-jobCtx.Done():
	case <-time.After(time.Second):
		t.Fatal("cancel should cancel the job context")
	}
}

func TestSimulationConservesPatients(t *testing.T) {
	sim, err := NewSimulation(config.Default(), testScenario(120))
	require.NoError(t, err)

	total := 0
	for _, ev := range sim.Events() {
		total += ev.PatientCount
	}
	require.Equal(t, 120, total)

	for !sim.Done() {
		sim.Step(50)
	}
	assert.Equal(t, 120, sim.Orchestrator().Metrics().TotalPatients)

	// Patient accounting: every materialized patient is somewhere coherent.
	statuses := sim.Orchestrator().SystemStatus()
	counted := 0
	for _, n := range statuses.PatientsByState {
		counted += n
	}
	assert.Equal(t, 120, counted)
}

func newTestRunner(t *testing.T, onProgress ProgressFunc) (*Runner, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	gov := NewGovernor(GovernorConfig{MaxMemoryMB: 8192, MaxCPUSeconds: 600, MaxRuntimeSeconds: 600, MaxConcurrentJobs: 4})
	cfg := RunnerDefaults()
	cfg.OutputDir = t.TempDir()
	cfg.InterChunkDelay = time.Millisecond
	runner := NewRunner(store, gov, config.Default(), cfg, nil, nil, onProgress)
	return runner, store
}

func TestRunnerCompletesJob(t *testing.T) {
	var progressCalls int
	runner, _ := newTestRunner(t, func(jobID string, progress int, details models.JobProgress) {
		progressCalls++
	})

	ctx := context.Background()
	jobID, err := runner.Submit(ctx, Request{Scenario: testScenario(80), OutputFormats: []string{"json", "csv"}})
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	job, err := runner.Wait(waitCtx, jobID)
	require.NoError(t, err)
	require.Equal(t, models.JobCompleted, job.Status, "error: %s", job.Error)
	assert.Equal(t, 100, job.Progress)
	require.Len(t, job.ResultFiles, 2)
	assert.Greater(t, progressCalls, 0)
	require.NotNil(t, job.CompletedAt)

	// The JSON output holds the full cohort.
	data, err := os.ReadFile(job.ResultFiles[0])
	require.NoError(t, err)
	var patients []models.Patient
	require.NoError(t, json.Unmarshal(data, &patients))
	assert.Len(t, patients, 80)
	for _, p := range patients {
		assert.GreaterOrEqual(t, p.CurrentHealth, 0.0)
		assert.LessOrEqual(t, p.CurrentHealth, 100.0)
		assert.NotEmpty(t, p.Timeline)
	}
}

func TestRunnerCompressedOutput(t *testing.T) {
	runner, _ := newTestRunner(t, nil)

	ctx := context.Background()
	jobID, err := runner.Submit(ctx, Request{Scenario: testScenario(30), OutputFormats: []string{"json"}, Compress: true})
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	job, err := runner.Wait(waitCtx, jobID)
	require.NoError(t, err)
	require.Equal(t, models.JobCompleted, job.Status)
	require.Len(t, job.ResultFiles, 1)
	assert.Equal(t, ".gz", filepath.Ext(job.ResultFiles[0]))

	f, err := os.Open(job.ResultFiles[0])
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	var patients []models.Patient
	require.NoError(t, json.NewDecoder(gz).Decode(&patients))
	assert.Len(t, patients, 30)
}

func TestRunnerValidatesRequest(t *testing.T) {
	runner, _ := newTestRunner(t, nil)
	ctx := context.Background()

	_, err := runner.Submit(ctx, Request{Scenario: testScenario(0)})
	assert.ErrorIs(t, err, models.ErrInvalidConfiguration)

	_, err = runner.Submit(ctx, Request{Scenario: testScenario(10), OutputFormats: []string{"parquet"}})
	assert.ErrorIs(t, err, models.ErrInvalidConfiguration)
}

func TestRunnerCancellation(t *testing.T) {
	store := NewMemoryStore()
	gov := NewGovernor(GovernorConfig{MaxMemoryMB: 8192, MaxCPUSeconds: 600, MaxRuntimeSeconds: 600, MaxConcurrentJobs: 4})
	cfg := RunnerDefaults()
	cfg.OutputDir = t.TempDir()
	cfg.ChunkSize = 25
	cfg.InterChunkDelay = 20 * time.Millisecond

	cancelled := make(chan struct{})
	var runner *Runner
	var jobID string
	runner = NewRunner(store, gov, config.Default(), cfg, nil, nil, func(id string, progress int, details models.JobProgress) {
		select {
		case <-cancelled:
		default:
			close(cancelled)
			runner.Cancel(id)
		}
	})

	ctx := context.Background()
	scenario := testScenario(3000)
	scenario.Days = 4
	jobID, err := runner.Submit(ctx, Request{Scenario: scenario, OutputFormats: []string{"json"}})
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
	defer cancel()
	job, err := runner.Wait(waitCtx, jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, job.Status)
	assert.Equal(t, "cancelled", job.Error)
}
