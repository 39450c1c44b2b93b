package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

var metricNameRE = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_:]*$`)

// PrometheusProvider implements Provider backed by a Prometheus registry.
type PrometheusProvider struct {
	reg        *prom.Registry
	mu         sync.RWMutex
	counters   map[string]*prom.CounterVec
	gauges     map[string]*prom.GaugeVec
	histograms map[string]*prom.HistogramVec
	problems   []error
	handler    http.Handler
}

// PrometheusProviderOptions configures registry reuse for embedding apps.
type PrometheusProviderOptions struct {
	Registry *prom.Registry
}

// NewPrometheusProvider creates a provider with its own registry unless one is
// supplied.
func NewPrometheusProvider(opts PrometheusProviderOptions) *PrometheusProvider {
	reg := opts.Registry
	if reg == nil {
		reg = prom.NewRegistry()
	}
	return &PrometheusProvider{
		reg:        reg,
		counters:   make(map[string]*prom.CounterVec),
		gauges:     make(map[string]*prom.GaugeVec),
		histograms: make(map[string]*prom.HistogramVec),
		handler:    promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
}

// MetricsHandler returns the HTTP handler exposing /metrics.
func (p *PrometheusProvider) MetricsHandler() http.Handler { return p.handler }

func (p *PrometheusProvider) buildFQName(c CommonOpts) (string, error) {
	if c.Name == "" {
		return "", errors.New("metric name required")
	}
	fq := c.Name
	if c.Subsystem != "" {
		fq = c.Subsystem + "_" + fq
	}
	if c.Namespace != "" {
		fq = c.Namespace + "_" + fq
	}
	if !metricNameRE.MatchString(fq) {
		return "", fmt.Errorf("invalid metric name: %s", fq)
	}
	return fq, nil
}

func (p *PrometheusProvider) recordProblem(err error) {
	p.mu.Lock()
	p.problems = append(p.problems, err)
	p.mu.Unlock()
}

func (p *PrometheusProvider) NewCounter(opts CounterOpts) Counter {
	fq, err := p.buildFQName(opts.CommonOpts)
	if err != nil {
		return noopCounter{}
	}
	p.mu.RLock()
	cv := p.counters[fq]
	p.mu.RUnlock()
	if cv == nil {
		vec := prom.NewCounterVec(prom.CounterOpts{Name: fq, Help: opts.Help}, opts.Labels)
		if err := p.reg.Register(vec); err != nil {
			if are, ok := err.(prom.AlreadyRegisteredError); ok {
				vec = are.ExistingCollector.(*prom.CounterVec)
			} else {
				p.recordProblem(err)
				return noopCounter{}
			}
		}
		p.mu.Lock()
		p.counters[fq] = vec
		p.mu.Unlock()
		cv = vec
	}
	return &promCounter{cv: cv}
}

func (p *PrometheusProvider) NewGauge(opts GaugeOpts) Gauge {
	fq, err := p.buildFQName(opts.CommonOpts)
	if err != nil {
		return noopGauge{}
	}
	p.mu.RLock()
	gv := p.gauges[fq]
	p.mu.RUnlock()
	if gv == nil {
		vec := prom.NewGaugeVec(prom.GaugeOpts{Name: fq, Help: opts.Help}, opts.Labels)
		if err := p.reg.Register(vec); err != nil {
			if are, ok := err.(prom.AlreadyRegisteredError); ok {
				vec = are.ExistingCollector.(*prom.GaugeVec)
			} else {
				p.recordProblem(err)
				return noopGauge{}
			}
		}
		p.mu.Lock()
		p.gauges[fq] = vec
		p.mu.Unlock()
		gv = vec
	}
	return &promGauge{gv: gv}
}

func (p *PrometheusProvider) NewHistogram(opts HistogramOpts) Histogram {
	fq, err := p.buildFQName(opts.CommonOpts)
	if err != nil {
		return noopHistogram{}
	}
	p.mu.RLock()
	hv := p.histograms[fq]
	p.mu.RUnlock()
	if hv == nil {
		buckets := opts.Buckets
		if len(buckets) == 0 {
			buckets = prom.DefBuckets
		}
		vec := prom.NewHistogramVec(prom.HistogramOpts{Name: fq, Help: opts.Help, Buckets: buckets}, opts.Labels)
		if err := p.reg.Register(vec); err != nil {
			if are, ok := err.(prom.AlreadyRegisteredError); ok {
				vec = are.ExistingCollector.(*prom.HistogramVec)
			} else {
				p.recordProblem(err)
				return noopHistogram{}
			}
		}
		p.mu.Lock()
		p.histograms[fq] = vec
		p.mu.Unlock()
		hv = vec
	}
	return &promHistogram{hv: hv}
}

func (p *PrometheusProvider) NewTimer(h HistogramOpts) func() Timer {
	hist := p.NewHistogram(h)
	return func() Timer { return &promTimer{h: hist, start: time.Now()} }
}

// Health reports registration problems collected so far.
func (p *PrometheusProvider) Health(ctx context.Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.problems) > 0 {
		return fmt.Errorf("metrics registration problems: %d (first: %v)", len(p.problems), p.problems[0])
	}
	return nil
}

type promCounter struct{ cv *prom.CounterVec }

func (c *promCounter) Inc(delta float64, labels ...string) {
	m, err := c.cv.GetMetricWithLabelValues(labels...)
	if err != nil {
		return
	}
	m.Add(delta)
}

type promGauge struct{ gv *prom.GaugeVec }

func (g *promGauge) Set(v float64, labels ...string) {
	m, err := g.gv.GetMetricWithLabelValues(labels...)
	if err != nil {
		return
	}
	m.Set(v)
}

func (g *promGauge) Add(delta float64, labels ...string) {
	m, err := g.gv.GetMetricWithLabelValues(labels...)
	if err != nil {
		return
	}
	m.Add(delta)
}

type promHistogram struct{ hv *prom.HistogramVec }

func (h *promHistogram) Observe(v float64, labels ...string) {
	m, err := h.hv.GetMetricWithLabelValues(labels...)
	if err != nil {
		return
	}
	m.Observe(v)
}

type promTimer struct {
	h     Histogram
	start time.Time
}

func (t *promTimer) ObserveDuration(labels ...string) {
	t.h.Observe(time.Since(t.start).Seconds(), labels...)
}
