package metrics

// OpenTelemetry bridge implementing the Provider interface. Keeps the internal
// abstraction stable while letting deployments attach OTEL exporters to the
// returned SDK meter provider.

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// OTelProviderOptions configures the bridge.
type OTelProviderOptions struct {
	ServiceName string // meter name; "medgen" when empty
}

type otelProvider struct {
	mp    *sdkmetric.MeterProvider
	meter metric.Meter
}

// NewOTelProvider returns a Provider backed by an OTEL MeterProvider. Gauges
// simulate Set semantics via an UpDownCounter delta application.
func NewOTelProvider(opts OTelProviderOptions) Provider {
	mp := sdkmetric.NewMeterProvider()
	name := opts.ServiceName
	if name == "" {
		name = "medgen"
	}
	return &otelProvider{mp: mp, meter: mp.Meter(name)}
}

func buildOTelName(c CommonOpts) string {
	name := c.Name
	if c.Subsystem != "" {
		name = c.Subsystem + "." + name
	}
	if c.Namespace != "" {
		name = c.Namespace + "." + name
	}
	return name
}

func labelSet(keys []string, values []string) []attribute.KeyValue {
	n := len(keys)
	if len(values) < n {
		n = len(values)
	}
	attrs := make([]attribute.KeyValue, 0, n)
	for i := 0; i < n; i++ {
		attrs = append(attrs, attribute.String(keys[i], values[i]))
	}
	return attrs
}

func (p *otelProvider) NewCounter(opts CounterOpts) Counter {
	inst, err := p.meter.Float64Counter(buildOTelName(opts.CommonOpts), metric.WithDescription(opts.Help))
	if err != nil {
		return noopCounter{}
	}
	return &otelCounter{c: inst, keys: opts.Labels}
}

func (p *otelProvider) NewGauge(opts GaugeOpts) Gauge {
	inst, err := p.meter.Float64UpDownCounter(buildOTelName(opts.CommonOpts), metric.WithDescription(opts.Help))
	if err != nil {
		return noopGauge{}
	}
	return &otelGauge{g: inst, keys: opts.Labels, last: make(map[string]float64)}
}

func (p *otelProvider) NewHistogram(opts HistogramOpts) Histogram {
	inst, err := p.meter.Float64Histogram(buildOTelName(opts.CommonOpts), metric.WithDescription(opts.Help))
	if err != nil {
		return noopHistogram{}
	}
	return &otelHistogram{h: inst, keys: opts.Labels}
}

func (p *otelProvider) NewTimer(h HistogramOpts) func() Timer {
	hist := p.NewHistogram(h)
	return func() Timer { return &otelTimer{h: hist, start: time.Now()} }
}

func (p *otelProvider) Health(ctx context.Context) error { return nil }

type otelCounter struct {
	c    metric.Float64Counter
	keys []string
}

func (c *otelCounter) Inc(delta float64, labels ...string) {
	c.c.Add(context.Background(), delta, metric.WithAttributes(labelSet(c.keys, labels)...))
}

type otelGauge struct {
	g    metric.Float64UpDownCounter
	keys []string

	mu   sync.Mutex
	last map[string]float64
}

func joinLabels(labels []string) string {
	out := ""
	for _, l := range labels {
		out += l + "\x1f"
	}
	return out
}

func (g *otelGauge) Set(v float64, labels ...string) {
	g.mu.Lock()
	key := joinLabels(labels)
	delta := v - g.last[key]
	g.last[key] = v
	g.mu.Unlock()
	g.g.Add(context.Background(), delta, metric.WithAttributes(labelSet(g.keys, labels)...))
}

func (g *otelGauge) Add(delta float64, labels ...string) {
	g.mu.Lock()
	key := joinLabels(labels)
	g.last[key] += delta
	g.mu.Unlock()
	g.g.Add(context.Background(), delta, metric.WithAttributes(labelSet(g.keys, labels)...))
}

type otelHistogram struct {
	h    metric.Float64Histogram
	keys []string
}

func (h *otelHistogram) Observe(v float64, labels ...string) {
	h.h.Record(context.Background(), v, metric.WithAttributes(labelSet(h.keys, labels)...))
}

type otelTimer struct {
	h     Histogram
	start time.Time
}

func (t *otelTimer) ObserveDuration(labels ...string) {
	t.h.Observe(time.Since(t.start).Seconds(), labels...)
}
