package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	inttracing "github.com/banton/medical-patients-sub001/engine/internal/telemetry/tracing"
)

func TestCorrelationInjection(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))
	logger := New(base)

	tracer := inttracing.NewTracer(true)
	ctx, span := tracer.StartSpan(context.Background(), "test")
	defer span.End()

	logger.InfoCtx(ctx, "with correlation")
	out := buf.String()
	if !strings.Contains(out, "trace_id=") || !strings.Contains(out, "span_id=") {
		t.Fatalf("expected correlation ids in output: %s", out)
	}
}

func TestNoCorrelationWithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	logger := New(slog.New(slog.NewTextHandler(&buf, nil)))

	logger.WarnCtx(context.Background(), "plain")
	if strings.Contains(buf.String(), "trace_id") {
		t.Fatalf("unexpected correlation ids: %s", buf.String())
	}
}

func TestNilBaseUsesDefault(t *testing.T) {
	logger := New(nil)
	// Must not panic.
	logger.DebugCtx(context.Background(), "default logger")
	logger.ErrorCtx(context.Background(), "default logger")
}
