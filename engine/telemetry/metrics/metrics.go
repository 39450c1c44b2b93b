package metrics

// Minimal metrics provider contract shared by all engine subsystems. Backends
// are selected via engine.Config (MetricsBackend); embedders never construct
// providers directly.

import "context"

// Provider creates instruments for internal subsystems.
type Provider interface {
	NewCounter(opts CounterOpts) Counter
	NewGauge(opts GaugeOpts) Gauge
	NewHistogram(opts HistogramOpts) Histogram
	NewTimer(h HistogramOpts) func() Timer
	Health(ctx context.Context) error
}

type Counter interface{ Inc(delta float64, labels ...string) }

type Gauge interface {
	Set(v float64, labels ...string)
	Add(delta float64, labels ...string)
}

type Histogram interface{ Observe(v float64, labels ...string) }

type Timer interface{ ObserveDuration(labels ...string) }

// CommonOpts names an instrument. Namespace and Subsystem compose into the
// backend-specific fully qualified name.
type CommonOpts struct {
	Namespace, Subsystem, Name, Help string
	Labels                           []string
}

type CounterOpts struct{ CommonOpts }
type GaugeOpts struct{ CommonOpts }
type HistogramOpts struct {
	CommonOpts
	Buckets []float64
}

// noop provider ------------------------------------------------------------

type noopProvider struct{}
type noopCounter struct{}
type noopGauge struct{}
type noopHistogram struct{}
type noopTimer struct{}

// NewNoopProvider returns a provider whose instruments discard all writes.
func NewNoopProvider() Provider { return &noopProvider{} }

func (p *noopProvider) NewCounter(CounterOpts) Counter       { return noopCounter{} }
func (p *noopProvider) NewGauge(GaugeOpts) Gauge             { return noopGauge{} }
func (p *noopProvider) NewHistogram(HistogramOpts) Histogram { return noopHistogram{} }
func (p *noopProvider) NewTimer(HistogramOpts) func() Timer {
	return func() Timer { return noopTimer{} }
}
func (p *noopProvider) Health(context.Context) error { return nil }

func (noopCounter) Inc(float64, ...string)       {}
func (noopGauge) Set(float64, ...string)         {}
func (noopGauge) Add(float64, ...string)         {}
func (noopHistogram) Observe(float64, ...string) {}
func (noopTimer) ObserveDuration(...string)      {}
