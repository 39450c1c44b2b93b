package tracing

// OpenTelemetry bridge: adapts the internal span abstraction onto an SDK
// TracerProvider so deployments can attach exporters. Zero-config by default
// (spans stay in-process until an exporter is registered on the provider).

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	oteltrace "go.opentelemetry.io/otel/trace"

	inttracing "github.com/banton/medical-patients-sub001/engine/internal/telemetry/tracing"
)

// OTelTracer implements the internal Tracer interface over the OTEL SDK.
type OTelTracer struct {
	tp     *sdktrace.TracerProvider
	tracer oteltrace.Tracer
}

// NewOTelTracer builds a tracer provider with service attribution and installs
// it as the global OTEL provider.
func NewOTelTracer(serviceName string) *OTelTracer {
	if serviceName == "" {
		serviceName = "medgen"
	}
	res := sdkresource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
	)
	tp := sdktrace.NewTracerProvider(sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)
	return &OTelTracer{tp: tp, tracer: tp.Tracer(serviceName)}
}

// Noop reports false: spans are always recorded by the SDK.
func (t *OTelTracer) Noop() bool { return false }

// StartSpan opens an OTEL span and returns it wrapped in the internal Span.
func (t *OTelTracer) StartSpan(ctx context.Context, name string) (context.Context, inttracing.Span) {
	ctx, span := t.tracer.Start(ctx, name)
	return ctx, &otelSpan{span: span}
}

// Shutdown flushes the provider.
func (t *OTelTracer) Shutdown(ctx context.Context) error { return t.tp.Shutdown(ctx) }

type otelSpan struct{ span oteltrace.Span }

func (s *otelSpan) End() { s.span.End() }

func (s *otelSpan) SetAttribute(key string, value any) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case int64:
		s.span.SetAttributes(attribute.Int64(key, v))
	case float64:
		s.span.SetAttributes(attribute.Float64(key, v))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	}
}

func (s *otelSpan) Context() inttracing.SpanContext {
	sc := s.span.SpanContext()
	return inttracing.SpanContext{TraceID: sc.TraceID().String(), SpanID: sc.SpanID().String()}
}
