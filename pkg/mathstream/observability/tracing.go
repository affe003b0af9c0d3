package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the mathstream tracer instance.
// Uses the global OTel tracer provider.
var tracer = otel.Tracer("mathstream")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartSessionSpan starts a span for a live streaming session.
	StartSessionSpan(ctx context.Context, url, sessionID string) (context.Context, trace.Span)

	// StartAggregateSpan starts a span for one statistics computation.
	StartAggregateSpan(ctx context.Context, eventCount int) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the
// provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartSessionSpan starts a span for a live streaming session.
func (m *otelSpanManager) StartSessionSpan(ctx context.Context, url, sessionID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "mathstream.session",
		trace.WithAttributes(
			attribute.String("endpoint.url", url),
			attribute.String("session.id", sessionID),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// StartAggregateSpan starts a span for one statistics computation.
func (m *otelSpanManager) StartAggregateSpan(ctx context.Context, eventCount int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "mathstream.aggregate",
		trace.WithAttributes(
			attribute.Int("event.count", eventCount),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
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
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
