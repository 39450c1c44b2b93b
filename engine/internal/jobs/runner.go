package jobs

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banton/medical-patients-sub001/engine/config"
	"github.com/banton/medical-patients-sub001/engine/internal/telemetry/events"
	"github.com/banton/medical-patients-sub001/engine/models"
	"github.com/banton/medical-patients-sub001/engine/output"
	"github.com/banton/medical-patients-sub001/engine/telemetry/logging"
)

// RunnerConfig tunes chunked processing.
type RunnerConfig struct {
	ChunkSize           int           // patients per chunk before yielding
	InterChunkDelay     time.Duration // cooperative pause between chunks
	WorkerPoolThreshold int           // cohorts at or above this size use the encode pool
	OutputDir           string
	ResourceWaitTimeout time.Duration
}

// RunnerDefaults mirrors the standard batch knobs.
func RunnerDefaults() RunnerConfig {
	return RunnerConfig{
		ChunkSize:           envInt("JOB_BATCH_SIZE", 1000),
		InterChunkDelay:     100 * time.Millisecond,
		WorkerPoolThreshold: 500,
		OutputDir:           "output",
		ResourceWaitTimeout: 30 * time.Second,
	}
}

// Request is one generation submission.
type Request struct {
	Scenario      Scenario
	OutputFormats []string
	Compress      bool
	Priority      string
}

// ProgressFunc receives per-chunk progress callbacks.
type ProgressFunc func(jobID string, progress int, details models.JobProgress)

// Runner executes generation jobs in chunks under the governor's caps.
type Runner struct {
	store    models.JobStore
	governor *Governor
	cat      *config.Catalog
	cfg      RunnerConfig
	log      logging.Logger
	bus      events.Bus

	onProgress ProgressFunc

	mu     sync.Mutex
	active map[string]*Simulation
	wg     sync.WaitGroup
}

// NewRunner wires a runner. bus and onProgress may be nil.
func NewRunner(store models.JobStore, governor *Governor, cat *config.Catalog, cfg RunnerConfig, log logging.Logger, bus events.Bus, onProgress ProgressFunc) *Runner {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ResourceWaitTimeout <= 0 {
		cfg.ResourceWaitTimeout = 30 * time.Second
	}
	return &Runner{
		store:      store,
		governor:   governor,
		cat:        cat,
		cfg:        cfg,
		log:        log,
		bus:        bus,
		onProgress: onProgress,
		active:     make(map[string]*Simulation),
	}
}

// Submit validates the request, persists a pending job, and starts it in the
// background. Returns the job id.
func (r *Runner) Submit(ctx context.Context, req Request) (string, error) {
	if req.Scenario.TotalPatients <= 0 || req.Scenario.Days <= 0 {
		return "", fmt.Errorf("%w: days and total patients must be positive", models.ErrInvalidConfiguration)
	}
	if len(req.OutputFormats) == 0 {
		req.OutputFormats = []string{"json"}
	}
	for _, f := range req.OutputFormats {
		if _, err := output.ParseFormat(f); err != nil {
			return "", err
		}
	}

	jobID := uuid.NewString()[:8]
	job := &models.Job{
		ID:        jobID,
		Status:    models.JobPending,
		CreatedAt: time.Now(),
		Config: map[string]any{
			"days":           req.Scenario.Days,
			"total_patients": req.Scenario.TotalPatients,
			"intensity":      req.Scenario.Intensity,
			"tempo":          req.Scenario.Tempo,
			"output_formats": req.OutputFormats,
			"priority":       req.Priority,
		},
	}
	if err := r.store.Create(ctx, job); err != nil {
		return "", err
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(context.WithoutCancel(ctx), jobID, req)
	}()
	return jobID, nil
}

// Cancel flags a running job for cancellation.
func (r *Runner) Cancel(jobID string) { r.governor.Cancel(jobID) }

// Wait blocks until the job reaches a terminal status or the context ends.
func (r *Runner) Wait(ctx context.Context, jobID string) (*models.Job, error) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		job, err := r.store.Get(ctx, jobID)
		if err != nil {
			return nil, err
		}
		switch job.Status {
		case models.JobCompleted, models.JobFailed, models.JobCancelled:
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close waits for in-flight jobs to finish.
func (r *Runner) Close() { r.wg.Wait() }

func (r *Runner) publish(eventType, jobID string, fields map[string]any) {
	if r.bus == nil {
		return
	}
	if fields == nil {
		fields = map[string]any{}
	}
	fields["job_id"] = jobID
	_ = r.bus.Publish(events.Event{Category: events.CategoryJobs, Type: eventType, Severity: "info", Fields: fields})
}

func (r *Runner) setStatus(ctx context.Context, jobID string, mutate func(*models.Job)) {
	job, err := r.store.Get(ctx, jobID)
	if err != nil {
		return
	}
	mutate(job)
	_ = r.store.Update(ctx, job)
}

func (r *Runner) progress(ctx context.Context, jobID string, pct int, details models.JobProgress) {
	r.setStatus(ctx, jobID, func(j *models.Job) {
		j.Progress = pct
		j.Details = &details
	})
	if r.onProgress != nil {
		r.onProgress(jobID, pct, details)
	}
}

func (r *Runner) fail(ctx context.Context, jobID, reason string) {
	r.setStatus(ctx, jobID, func(j *models.Job) {
		j.Status = models.JobFailed
		j.Error = reason
		now := time.Now()
		j.CompletedAt = &now
	})
	r.publish("job_failed", jobID, map[string]any{"reason": reason})
}

func (r *Runner) run(ctx context.Context, jobID string, req Request) {
	if r.log != nil {
		r.log.InfoCtx(ctx, "job starting", "job_id", jobID, "patients", req.Scenario.TotalPatients)
	}

	if !r.governor.WaitForResources(ctx, r.cfg.ResourceWaitTimeout) {
		r.fail(ctx, jobID, "resources unavailable")
		return
	}

	jobCtx, release := r.governor.Track(ctx, jobID)
	defer release()

	r.setStatus(ctx, jobID, func(j *models.Job) { j.Status = models.JobRunning })
	r.publish("job_started", jobID, nil)

	sim, err := NewSimulation(r.cat, req.Scenario)
	if err != nil {
		r.fail(ctx, jobID, err.Error())
		return
	}
	r.mu.Lock()
	r.active[jobID] = sim
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.active, jobID)
		r.mu.Unlock()
	}()

	total := req.Scenario.TotalPatients
	for !sim.Done() {
		if r.interrupted(ctx, jobCtx, jobID, sim) {
			return
		}
		r.stepChunk(sim)

		processed := sim.Orchestrator().Metrics().TotalPatients
		pct := 0
		if total > 0 {
			pct = processed * 90 / total
		}
		r.progress(ctx, jobID, pct, models.JobProgress{
			CurrentPhase:      "generating",
			PhaseDescription:  fmt.Sprintf("simulating casualty flow (%d/%d patients)", processed, total),
			PhaseProgress:     pct,
			TotalPatients:     total,
			ProcessedPatients: processed,
		})

		// Explicit reclamation between chunks keeps peak memory bounded.
		runtime.GC()
		if r.cfg.InterChunkDelay > 0 {
			time.Sleep(r.cfg.InterChunkDelay)
		}
	}

	if r.interrupted(ctx, jobCtx, jobID, sim) {
		return
	}

	files, err := r.writeOutputs(jobID, sim, req)
	if err != nil {
		r.fail(ctx, jobID, err.Error())
		return
	}

	r.progress(ctx, jobID, 100, models.JobProgress{
		CurrentPhase:      "completed",
		PhaseProgress:     100,
		TotalPatients:     total,
		ProcessedPatients: sim.Orchestrator().Metrics().TotalPatients,
	})
	r.setStatus(ctx, jobID, func(j *models.Job) {
		j.Status = models.JobCompleted
		j.Progress = 100
		j.ResultFiles = files
		now := time.Now()
		j.CompletedAt = &now
	})
	r.publish("job_completed", jobID, map[string]any{"files": len(files)})
	if r.log != nil {
		r.log.InfoCtx(ctx, "job completed", "job_id", jobID, "files", len(files))
	}
}

// interrupted handles cancellation and governor trips; returns true when the
// run must stop.
func (r *Runner) interrupted(ctx, jobCtx context.Context, jobID string, sim *Simulation) bool {
	select {
	case <-jobCtx.Done():
	default:
		if !r.governor.Cancelled(jobID) {
			return false
		}
	}

	// Free beds and vehicles through the normal paths before reporting.
	sim.Orchestrator().Cleanup()

	if r.governor.Cancelled(jobID) {
		r.setStatus(ctx, jobID, func(j *models.Job) {
			j.Status = models.JobFailed
			j.Error = "cancelled"
			now := time.Now()
			j.CompletedAt = &now
		})
		r.publish("job_cancelled", jobID, nil)
		return true
	}
	if err := r.governor.LimitError(jobID); err != nil {
		r.fail(ctx, jobID, err.Error())
		return true
	}
	r.fail(ctx, jobID, "aborted")
	return true
}

// stepChunk consumes events until roughly ChunkSize patients materialized.
func (r *Runner) stepChunk(sim *Simulation) {
	start := sim.Orchestrator().Metrics().TotalPatients
	for !sim.Done() && sim.Orchestrator().Metrics().TotalPatients-start < r.cfg.ChunkSize {
		if sim.Step(25) == 0 {
			break
		}
	}
}

func (r *Runner) writeOutputs(jobID string, sim *Simulation, req Request) ([]string, error) {
	orch := sim.Orchestrator()
	patients := make([]*models.Patient, 0, len(orch.PatientIDs()))
	for _, id := range orch.PatientIDs() {
		if p, ok := orch.Patient(id); ok {
			patients = append(patients, p)
		}
	}

	usePool := len(patients) >= r.cfg.WorkerPoolThreshold

	var files []string
	for _, name := range req.OutputFormats {
		format, err := output.ParseFormat(name)
		if err != nil {
			return nil, err
		}
		sink, path, err := output.NewFileSink(r.cfg.OutputDir, "patients_"+jobID, format, req.Compress)
		if err != nil {
			return nil, err
		}
		err = r.streamPatients(sink, patients, usePool && format == output.FormatJSON)
		if cerr := sink.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	return files, nil
}

// streamPatients writes every patient to the sink. Large JSON cohorts encode
// on a worker pool while writes stay ordered.
func (r *Runner) streamPatients(sink output.PatientSink, patients []*models.Patient, pooled bool) error {
	raw, ok := sink.(output.RawJSONSink)
	if pooled && ok {
		workers := runtime.NumCPU()
		if workers > 8 {
			workers = 8
		}
		encoded, err := output.EncodePatients(patients, workers)
		if err != nil {
			return err
		}
		for _, data := range encoded {
			if err := raw.WriteRaw(data); err != nil {
				return err
			}
		}
		return nil
	}
	for _, p := range patients {
		if err := sink.Write(p); err != nil {
			return err
		}
	}
	return nil
}
