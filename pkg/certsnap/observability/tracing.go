package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the certsnap tracer instance.
// Uses the global OTel tracer provider.
var tracer = otel.Tracer("certsnap")

// StartFinalizeSpan starts a span for a checkpoint finalization.
func StartFinalizeSpan(ctx context.Context, title string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "certsnap.finalize",
		trace.WithAttributes(
			attribute.String("checkpoint.title", title),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartRecoverySpan starts a span for a checkpoint recovery.
func StartRecoverySpan(ctx context.Context, recoveryID, dir string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "certsnap.recovery",
		trace.WithAttributes(
			attribute.String("recovery.id", recoveryID),
			attribute.String("checkpoint.dir", dir),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartRollbackSpan starts a span for a multi-checkpoint rollback.
func StartRollbackSpan(ctx context.Context, requested int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "certsnap.rollback",
		trace.WithAttributes(
			attribute.Int("rollback.requested", requested),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span in context.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
