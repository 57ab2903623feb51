package observe

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestStartTurnSpanRecords(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { tp.Shutdown(context.Background()) })
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	ctx, span := StartTurnSpan(context.Background(), 3)
	defer span.End()

	if !trace.SpanContextFromContext(ctx).IsValid() {
		t.Fatal("turn span context is invalid")
	}
}

func TestLoggerAddsTraceIDs(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())

	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	ctx, span := tp.Tracer(scopeName).Start(context.Background(), "session.turn")
	defer span.End()

	Logger(ctx, base).Info("agent turn")
	out := buf.String()
	if !strings.Contains(out, "trace_id=") || !strings.Contains(out, "span_id=") {
		t.Fatalf("log line missing trace correlation: %s", out)
	}
}

func TestLoggerWithoutSpanReturnsBase(t *testing.T) {
	base := slog.Default()
	if got := Logger(context.Background(), base); got != base {
		t.Fatal("Logger without an active span must return the base logger")
	}
}
