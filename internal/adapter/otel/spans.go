package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "claw-council"

// StartRoundSpan starts a span for a write against one round.
func StartRoundSpan(ctx context.Context, op string, roundID, agentID int64) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "round."+op,
		trace.WithAttributes(
			attribute.Int64("round.id", roundID),
			attribute.Int64("agent.id", agentID),
		),
	)
}

// StartPublishSpan starts a span for publishing a round event.
func StartPublishSpan(ctx context.Context, eventType string, roundID int64) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "event.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("event.type", eventType),
			attribute.Int64("round.id", roundID),
		),
	)
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
