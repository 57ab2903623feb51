package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// scopeName identifies the harness instrumentation scope.
const scopeName = "github.com/ravigajul/voice-ai-test/internal/observe"

// StartTurnSpan opens the span covering one conversation turn. Capture,
// transcription, generation, synthesis, and playback all run under it; the
// session loop ends it when the turn settles.
func StartTurnSpan(ctx context.Context, turn int) (context.Context, trace.Span) {
	return otel.Tracer(scopeName).Start(ctx, "session.turn",
		trace.WithAttributes(attribute.Int("conversation.turn", turn)))
}

// Logger returns base enriched with the trace and span IDs of the active
// span in ctx, so all log lines from one turn can be grouped. With no
// active span, base is returned unchanged.
func Logger(ctx context.Context, base *slog.Logger) *slog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return base
	}
	return base.With(
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
	)
}
