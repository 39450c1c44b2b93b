package tracing

// Lightweight span abstraction for correlating job/run logs. The OTEL bridge
// in engine/telemetry/tracing adapts this interface onto an SDK tracer.

import (
	randcrypto "crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"context"
)

// SpanContext carries correlation identifiers.
type SpanContext struct {
	TraceID      string
	SpanID       string
	ParentSpanID string
	Start, End   time.Time
}

// Span is a live unit of traced work.
type Span interface {
	End()
	SetAttribute(key string, value any)
	Context() SpanContext
}

// Tracer starts spans.
type Tracer interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
	Noop() bool
}

type noopTracer struct{}
type noopSpan struct{}

func (noopTracer) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	return ctx, noopSpan{}
}
func (noopTracer) Noop() bool             { return true }
func (noopSpan) End()                     {}
func (noopSpan) SetAttribute(string, any) {}
func (noopSpan) Context() SpanContext     { return SpanContext{} }

// NewTracer returns a simple in-process tracer, or a no-op when disabled.
func NewTracer(enabled bool) Tracer {
	if !enabled {
		return noopTracer{}
	}
	return simpleTracer{}
}

type simpleTracer struct{}

func (simpleTracer) Noop() bool { return false }

func (simpleTracer) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	parent := spanFromContext(ctx)
	traceID := ""
	parentID := ""
	if parent != nil {
		traceID = parent.sc.TraceID
		parentID = parent.sc.SpanID
	}
	if traceID == "" {
		traceID = newID(16)
	}
	sp := &simpleSpan{sc: SpanContext{TraceID: traceID, SpanID: newID(8), ParentSpanID: parentID, Start: time.Now()}, attrs: make(map[string]any), name: name}
	return context.WithValue(ctx, spanKey{}, sp), sp
}

type simpleSpan struct {
	mu    sync.Mutex
	sc    SpanContext
	name  string
	attrs map[string]any
	ended bool
}

func (s *simpleSpan) End() {
	s.mu.Lock()
	if !s.ended {
		s.sc.End = time.Now()
		s.ended = true
	}
	s.mu.Unlock()
}

func (s *simpleSpan) SetAttribute(key string, value any) {
	s.mu.Lock()
	s.attrs[key] = value
	s.mu.Unlock()
}

func (s *simpleSpan) Context() SpanContext { return s.sc }

type spanKey struct{}

func spanFromContext(ctx context.Context) *simpleSpan {
	if ctx == nil {
		return nil
	}
	if sp, ok := ctx.Value(spanKey{}).(*simpleSpan); ok {
		return sp
	}
	return nil
}

// ExtractIDs returns the trace/span identifiers stored in ctx, if any.
func ExtractIDs(ctx context.Context) (traceID, spanID string) {
	sp := spanFromContext(ctx)
	if sp == nil {
		return "", ""
	}
	return sp.sc.TraceID, sp.sc.SpanID
}

func newID(n int) string {
	b := make([]byte, n)
	_, _ = randcrypto.Read(b)
	return hex.EncodeToString(b)
}
