package engine

import (
	"time"

	intjobs "github.com/banton/medical-patients-sub001/engine/internal/jobs"
)

// Config is the public configuration surface for the Engine facade. It
// narrows the underlying component configs; embedders tune behavior here
// rather than constructing internals.
type Config struct {
	// CatalogPath selects a YAML catalog file. Empty uses the built-in
	// defaults. WatchCatalog enables hot reload of the file.
	CatalogPath  string
	WatchCatalog bool

	// Job runner settings
	ChunkSize           int
	InterChunkDelay     time.Duration
	WorkerPoolThreshold int
	OutputDir           string

	// Resource governor caps
	MaxMemoryMB       int
	MaxCPUSeconds     int
	MaxRuntimeSeconds int
	MaxConcurrentJobs int

	// Simulation toggles
	EnableDiagnostics bool

	// Telemetry
	MetricsEnabled bool
	// MetricsBackend selects the implementation when MetricsEnabled is true:
	//   "prom" (default) - built-in Prometheus registry
	//   "otel"           - OpenTelemetry bridge
	//   "noop"           - explicit no-op
	MetricsBackend string
	TracingBackend string // "" or "internal" (default), "otel"
}

// Defaults returns a Config with the standard knobs, reading the governor and
// batch caps from the environment where set.
func Defaults() Config {
	gov := intjobs.GovernorDefaults()
	run := intjobs.RunnerDefaults()
	return Config{
		ChunkSize:           run.ChunkSize,
		InterChunkDelay:     run.InterChunkDelay,
		WorkerPoolThreshold: run.WorkerPoolThreshold,
		OutputDir:           run.OutputDir,
		MaxMemoryMB:         gov.MaxMemoryMB,
		MaxCPUSeconds:       gov.MaxCPUSeconds,
		MaxRuntimeSeconds:   gov.MaxRuntimeSeconds,
		MaxConcurrentJobs:   gov.MaxConcurrentJobs,
		EnableDiagnostics:   true,
		MetricsEnabled:      false,
		MetricsBackend:      "prom",
	}
}

func (c Config) governorConfig() intjobs.GovernorConfig {
	gov := intjobs.GovernorDefaults()
	if c.MaxMemoryMB > 0 {
		gov.MaxMemoryMB = c.MaxMemoryMB
	}
	if c.MaxCPUSeconds > 0 {
		gov.MaxCPUSeconds = c.MaxCPUSeconds
	}
	if c.MaxRuntimeSeconds > 0 {
		gov.MaxRuntimeSeconds = c.MaxRuntimeSeconds
	}
	if c.MaxConcurrentJobs > 0 {
		gov.MaxConcurrentJobs = c.MaxConcurrentJobs
	}
	return gov
}

func (c Config) runnerConfig() intjobs.RunnerConfig {
	run := intjobs.RunnerDefaults()
	if c.ChunkSize > 0 {
		run.ChunkSize = c.ChunkSize
	}
	if c.InterChunkDelay > 0 {
		run.InterChunkDelay = c.InterChunkDelay
	}
	if c.WorkerPoolThreshold > 0 {
		run.WorkerPoolThreshold = c.WorkerPoolThreshold
	}
	if c.OutputDir != "" {
		run.OutputDir = c.OutputDir
	}
	return run
}
