package engine

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/banton/medical-patients-sub001/engine/config"
	intjobs "github.com/banton/medical-patients-sub001/engine/internal/jobs"
	telemEvents "github.com/banton/medical-patients-sub001/engine/internal/telemetry/events"
	inttracing "github.com/banton/medical-patients-sub001/engine/internal/telemetry/tracing"
	"github.com/banton/medical-patients-sub001/engine/models"
	telemetryhealth "github.com/banton/medical-patients-sub001/engine/telemetry/health"
	"github.com/banton/medical-patients-sub001/engine/telemetry/logging"
	"github.com/banton/medical-patients-sub001/engine/telemetry/metrics"
	"github.com/banton/medical-patients-sub001/engine/telemetry/tracing"
)

// Scenario is the public generation request.
type Scenario struct {
	Days          int
	TotalPatients int
	WarfareTypes  map[string]bool
	Intensity     string
	Tempo         string
	Environment   map[string]bool
	SpecialEvents map[string]bool
	BaseDate      time.Time
	Seed          int64
	OutputFormats []string
	Compress      bool
	Priority      string
}

// TelemetryEvent is the reduced, stable event view handed to observers.
type TelemetryEvent struct {
	Time     time.Time         `json:"time"`
	Category string            `json:"category"`
	Type     string            `json:"type"`
	Severity string            `json:"severity,omitempty"`
	Labels   map[string]string `json:"labels,omitempty"`
	Fields   map[string]any    `json:"fields,omitempty"`
}

// EventObserver receives TelemetryEvent notifications.
type EventObserver func(ev TelemetryEvent)

// Snapshot is a unified view of engine state.
type Snapshot struct {
	StartedAt   time.Time            `json:"started_at"`
	Uptime      time.Duration        `json:"uptime"`
	ActiveJobs  int                  `json:"active_jobs"`
	TotalJobs   int                  `json:"total_jobs"`
	JobStatuses map[string]int       `json:"job_statuses"`
	Events      telemEvents.BusStats `json:"events"`
}

// Engine composes the simulation, job runner, governor, and telemetry behind
// a single facade.
type Engine struct {
	cfg     Config
	catalog *config.Catalog
	watcher *config.Watcher

	store    models.JobStore
	governor *intjobs.Governor
	runner   *intjobs.Runner

	metricsProvider metrics.Provider
	eventBus        telemEvents.Bus
	tracer          inttracing.Tracer
	healthEval      *telemetryhealth.Evaluator
	logger          logging.Logger

	activeJobsGauge metrics.Gauge

	startedAt time.Time

	observersMu sync.RWMutex
	observers   []EventObserver

	subCancel func()
}

// New constructs an Engine from the supplied configuration.
func New(cfg Config) (*Engine, error) {
	e := &Engine{cfg: cfg, startedAt: time.Now(), logger: logging.New(slog.Default())}

	if cfg.CatalogPath != "" {
		if cfg.WatchCatalog {
			watcher, err := config.NewWatcher(cfg.CatalogPath, func(cat *config.Catalog) {
				if e.eventBus != nil {
					_ = e.eventBus.Publish(telemEvents.Event{Category: telemEvents.CategoryConfig, Type: "catalog_reloaded", Severity: "info"})
				}
			})
			if err != nil {
				return nil, err
			}
			e.watcher = watcher
			e.catalog = watcher.Current()
		} else {
			cat, err := config.Load(cfg.CatalogPath)
			if err != nil {
				return nil, err
			}
			e.catalog = cat
		}
	} else {
		e.catalog = config.Default()
	}

	e.metricsProvider = selectMetricsProvider(cfg)
	e.eventBus = telemEvents.NewBus(e.metricsProvider)
	e.tracer = selectTracer(cfg)

	e.store = intjobs.NewMemoryStore()
	e.governor = intjobs.NewGovernor(cfg.governorConfig())
	e.runner = intjobs.NewRunner(e.store, e.governor, e.catalog, cfg.runnerConfig(), e.logger, e.eventBus, nil)

	e.healthEval = telemetryhealth.NewEvaluator(2*time.Second, e.healthProbes()...)

	if e.metricsProvider != nil {
		e.activeJobsGauge = e.metricsProvider.NewGauge(metrics.GaugeOpts{CommonOpts: metrics.CommonOpts{
			Namespace: "medgen", Subsystem: "jobs", Name: "active",
			Help: "Jobs currently tracked by the resource governor",
		}})
	}

	e.bridgeEvents()
	return e, nil
}

// selectMetricsProvider picks the backend from Config. Unknown values fall
// back to Prometheus.
func selectMetricsProvider(cfg Config) metrics.Provider {
	if !cfg.MetricsEnabled {
		return nil
	}
	switch strings.ToLower(cfg.MetricsBackend) {
	case "", "prom", "prometheus":
		return metrics.NewPrometheusProvider(metrics.PrometheusProviderOptions{})
	case "otel", "opentelemetry":
		return metrics.NewOTelProvider(metrics.OTelProviderOptions{ServiceName: "medgen"})
	case "noop":
		return metrics.NewNoopProvider()
	default:
		return metrics.NewPrometheusProvider(metrics.PrometheusProviderOptions{})
	}
}

func selectTracer(cfg Config) inttracing.Tracer {
	switch strings.ToLower(cfg.TracingBackend) {
	case "otel", "opentelemetry":
		return tracing.NewOTelTracer("medgen")
	case "off", "none":
		return inttracing.NewTracer(false)
	default:
		return inttracing.NewTracer(true)
	}
}

// bridgeEvents feeds internal bus events to registered facade observers.
func (e *Engine) bridgeEvents() {
	sub, err := e.eventBus.Subscribe(256)
	if err != nil {
		return
	}
	done := make(chan struct{})
	e.subCancel = func() {
		close(done)
		_ = sub.Close()
	}
	go func() {
		for {
			select {
			case <-done:
				return
			case ev, ok := <-sub.C():
				if !ok {
					return
				}
				e.dispatch(TelemetryEvent{
					Time: ev.Time, Category: ev.Category, Type: ev.Type,
					Severity: ev.Severity, Labels: ev.Labels, Fields: ev.Fields,
				})
			}
		}
	}()
}

func (e *Engine) dispatch(ev TelemetryEvent) {
	e.observersMu.RLock()
	observers := append([]EventObserver(nil), e.observers...)
	e.observersMu.RUnlock()
	for _, obs := range observers {
		func() { defer func() { _ = recover() }(); obs(ev) }()
	}
}

// RegisterEventObserver adds an observer invoked for each telemetry event.
// Safe for concurrent use; nil is a no-op.
func (e *Engine) RegisterEventObserver(obs EventObserver) {
	if e == nil || obs == nil {
		return
	}
	e.observersMu.Lock()
	e.observers = append(e.observers, obs)
	e.observersMu.Unlock()
}

func (e *Engine) healthProbes() []telemetryhealth.Probe {
	governorProbe := telemetryhealth.ProbeFunc(func(ctx context.Context) telemetryhealth.ProbeResult {
		if e.governor.CanStart() {
			return telemetryhealth.Healthy("governor")
		}
		return telemetryhealth.Degraded("governor", "admission gate closed")
	})
	jobsProbe := telemetryhealth.ProbeFunc(func(ctx context.Context) telemetryhealth.ProbeResult {
		jobs, err := e.store.List(ctx)
		if err != nil {
			return telemetryhealth.Unknown("jobs", err.Error())
		}
		failed, terminal := 0, 0
		for _, j := range jobs {
			switch j.Status {
			case models.JobFailed:
				failed++
				terminal++
			case models.JobCompleted, models.JobCancelled:
				terminal++
			}
		}
		if terminal >= 5 && failed*2 > terminal {
			return telemetryhealth.Unhealthy("jobs", "failure ratio severe")
		}
		if failed > 0 {
			return telemetryhealth.Degraded("jobs", "recent failures")
		}
		return telemetryhealth.Healthy("jobs")
	})
	eventsProbe := telemetryhealth.ProbeFunc(func(ctx context.Context) telemetryhealth.ProbeResult {
		stats := e.eventBus.Stats()
		if stats.Published > 0 && stats.Dropped*4 > stats.Published {
			return telemetryhealth.Degraded("events", "subscriber backpressure")
		}
		return telemetryhealth.Healthy("events")
	})
	return []telemetryhealth.Probe{governorProbe, jobsProbe, eventsProbe}
}

// Generate submits a generation job and returns its id.
func (e *Engine) Generate(ctx context.Context, s Scenario) (string, error) {
	ctx, span := e.tracer.StartSpan(ctx, "engine.generate")
	defer span.End()

	if s.WarfareTypes == nil {
		s.WarfareTypes = map[string]bool{"conventional": true}
	}
	if s.Intensity == "" {
		s.Intensity = "medium"
	}
	if s.Tempo == "" {
		s.Tempo = "sustained"
	}
	req := intjobs.Request{
		Scenario: intjobs.Scenario{
			Days:              s.Days,
			TotalPatients:     s.TotalPatients,
			WarfareTypes:      s.WarfareTypes,
			Intensity:         s.Intensity,
			Tempo:             s.Tempo,
			Environment:       s.Environment,
			SpecialEvents:     s.SpecialEvents,
			BaseDate:          s.BaseDate,
			Seed:              s.Seed,
			EnableDiagnostics: e.cfg.EnableDiagnostics,
		},
		OutputFormats: s.OutputFormats,
		Compress:      s.Compress,
		Priority:      s.Priority,
	}
	jobID, err := e.runner.Submit(ctx, req)
	if err != nil {
		e.logger.ErrorCtx(ctx, "job submission failed", "error", err)
		return "", err
	}
	span.SetAttribute("job_id", jobID)
	if e.activeJobsGauge != nil {
		e.activeJobsGauge.Set(float64(e.governor.ActiveCount()))
	}
	return jobID, nil
}

// Job fetches a job by id.
func (e *Engine) Job(ctx context.Context, id string) (*models.Job, error) {
	return e.store.Get(ctx, id)
}

// Jobs lists all jobs.
func (e *Engine) Jobs(ctx context.Context) ([]*models.Job, error) {
	return e.store.List(ctx)
}

// WaitForJob blocks until the job finishes.
func (e *Engine) WaitForJob(ctx context.Context, id string) (*models.Job, error) {
	return e.runner.Wait(ctx, id)
}

// CancelJob flags a running job for cancellation. Cancelling a finished job
// is an invalid operation.
func (e *Engine) CancelJob(ctx context.Context, id string) error {
	job, err := e.store.Get(ctx, id)
	if err != nil {
		return err
	}
	switch job.Status {
	case models.JobCompleted, models.JobFailed, models.JobCancelled:
		return models.ErrInvalidOperation
	}
	e.runner.Cancel(id)
	return nil
}

// Catalog returns the active configuration catalog.
func (e *Engine) Catalog() *config.Catalog {
	if e.watcher != nil {
		return e.watcher.Current()
	}
	return e.catalog
}

// MetricsHandler returns the /metrics HTTP handler (Prometheus backend only);
// nil when metrics are disabled or the backend has no handler.
func (e *Engine) MetricsHandler() http.Handler {
	if e == nil || e.metricsProvider == nil {
		return nil
	}
	if hp, ok := e.metricsProvider.(interface{ MetricsHandler() http.Handler }); ok {
		return hp.MetricsHandler()
	}
	return nil
}

// HealthSnapshot evaluates (or returns cached) subsystem health.
func (e *Engine) HealthSnapshot(ctx context.Context) telemetryhealth.Snapshot {
	return e.healthEval.Evaluate(ctx)
}

// Snapshot returns a unified state view.
func (e *Engine) Snapshot(ctx context.Context) Snapshot {
	snap := Snapshot{
		StartedAt:   e.startedAt,
		Uptime:      time.Since(e.startedAt),
		ActiveJobs:  e.governor.ActiveCount(),
		JobStatuses: make(map[string]int),
		Events:      e.eventBus.Stats(),
	}
	if jobs, err := e.store.List(ctx); err == nil {
		snap.TotalJobs = len(jobs)
		for _, j := range jobs {
			snap.JobStatuses[string(j.Status)]++
		}
	}
	return snap
}

// Stop drains in-flight jobs and releases telemetry resources. Idempotent.
func (e *Engine) Stop() error {
	e.runner.Close()
	if e.subCancel != nil {
		e.subCancel()
		e.subCancel = nil
	}
	if e.watcher != nil {
		_ = e.watcher.Close()
	}
	if t, ok := e.tracer.(*tracing.OTelTracer); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = t.Shutdown(ctx)
	}
	return nil
}
