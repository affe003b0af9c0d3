package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics is a MetricsRecorder that does nothing.
// Use when metrics are disabled to avoid overhead.
type NoopMetrics struct{}

// Compile-time interface check.
var _ MetricsRecorder = NoopMetrics{}

// RecordFrame does nothing.
func (NoopMetrics) RecordFrame(_ context.Context, _ string) {}

// RecordFrameDropped does nothing.
func (NoopMetrics) RecordFrameDropped(_ context.Context) {}

// RecordIngest does nothing.
func (NoopMetrics) RecordIngest(_ context.Context, _ bool) {}

// RecordReconnect does nothing.
func (NoopMetrics) RecordReconnect(_ context.Context) {}

// RecordActiveUsers does nothing.
func (NoopMetrics) RecordActiveUsers(_ context.Context, _ int64) {}

// RecordAggregation does nothing.
func (NoopMetrics) RecordAggregation(_ context.Context, _ int, _ time.Duration) {}

// NoopSpanManager is a SpanManager that does nothing.
// Use when tracing is disabled to avoid overhead.
type NoopSpanManager struct{}

// Compile-time interface check.
var _ SpanManager = NoopSpanManager{}

// noopSpan is a span that does nothing.
// We use the OTel noop package for a proper no-op span implementation.
var noopSpan = noop.Span{}

// StartSessionSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartSessionSpan(ctx context.Context, _, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// StartAggregateSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartAggregateSpan(ctx context.Context, _ int) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// EndSpanWithError does nothing.
func (NoopSpanManager) EndSpanWithError(_ trace.Span, _ error) {}

// AddSpanEvent does nothing.
func (NoopSpanManager) AddSpanEvent(_ context.Context, _ string, _ ...attribute.KeyValue) {}
