package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records mathstream metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordFrame records a decoded inbound frame by kind.
	RecordFrame(ctx context.Context, kind string)

	// RecordFrameDropped records a malformed inbound frame.
	RecordFrameDropped(ctx context.Context)

	// RecordIngest records an event ingestion attempt.
	// deduped is true when the event was discarded as a duplicate.
	RecordIngest(ctx context.Context, deduped bool)

	// RecordReconnect records a reconnect attempt.
	RecordReconnect(ctx context.Context)

	// RecordActiveUsers records the server-reported active-user gauge.
	RecordActiveUsers(ctx context.Context, count int64)

	// RecordAggregation records a statistics computation.
	RecordAggregation(ctx context.Context, eventCount int, duration time.Duration)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	frames        metric.Int64Counter
	framesDropped metric.Int64Counter
	ingested      metric.Int64Counter
	deduped       metric.Int64Counter
	reconnects    metric.Int64Counter
	activeUsers   metric.Int64Gauge
	aggLatency    metric.Float64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("mathstream")

	frames, err := meter.Int64Counter("mathstream.transport.frames",
		metric.WithDescription("Number of decoded inbound frames"),
	)
	if err != nil {
		return nil, err
	}

	framesDropped, err := meter.Int64Counter("mathstream.transport.frames_dropped",
		metric.WithDescription("Number of malformed inbound frames dropped"),
	)
	if err != nil {
		return nil, err
	}

	ingested, err := meter.Int64Counter("mathstream.ingest.events",
		metric.WithDescription("Number of events ingested into the log"),
	)
	if err != nil {
		return nil, err
	}

	deduped, err := meter.Int64Counter("mathstream.ingest.duplicates",
		metric.WithDescription("Number of duplicate events discarded"),
	)
	if err != nil {
		return nil, err
	}

	reconnects, err := meter.Int64Counter("mathstream.transport.reconnects",
		metric.WithDescription("Number of reconnect attempts"),
	)
	if err != nil {
		return nil, err
	}

	activeUsers, err := meter.Int64Gauge("mathstream.transport.active_users",
		metric.WithDescription("Server-reported active user count"),
	)
	if err != nil {
		return nil, err
	}

	aggLatency, err := meter.Float64Histogram("mathstream.stats.latency_ms",
		metric.WithDescription("Statistics computation latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		frames:        frames,
		framesDropped: framesDropped,
		ingested:      ingested,
		deduped:       deduped,
		reconnects:    reconnects,
		activeUsers:   activeUsers,
		aggLatency:    aggLatency,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordFrame records a decoded inbound frame.
func (m *otelMetrics) RecordFrame(ctx context.Context, kind string) {
	m.frames.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
	))
}

// RecordFrameDropped records a malformed inbound frame.
func (m *otelMetrics) RecordFrameDropped(ctx context.Context) {
	m.framesDropped.Add(ctx, 1)
}

// RecordIngest records an event ingestion attempt.
func (m *otelMetrics) RecordIngest(ctx context.Context, deduped bool) {
	if deduped {
		m.deduped.Add(ctx, 1)
		return
	}
	m.ingested.Add(ctx, 1)
}

// RecordReconnect records a reconnect attempt.
func (m *otelMetrics) RecordReconnect(ctx context.Context) {
	m.reconnects.Add(ctx, 1)
}

// RecordActiveUsers records the active-user gauge.
func (m *otelMetrics) RecordActiveUsers(ctx context.Context, count int64) {
	m.activeUsers.Record(ctx, count)
}

// RecordAggregation records a statistics computation.
func (m *otelMetrics) RecordAggregation(ctx context.Context, eventCount int, duration time.Duration) {
	m.aggLatency.Record(ctx, float64(duration.Microseconds())/1000.0, metric.WithAttributes(
		attribute.Int("events", eventCount),
	))
}
