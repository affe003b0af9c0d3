package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/calclabs/mathstream/pkg/mathstream/ingest"
	"github.com/calclabs/mathstream/pkg/mathstream/observability"
	"github.com/calclabs/mathstream/pkg/mathstream/wire"
)

// recordingMetrics captures aggregation recordings.
type recordingMetrics struct {
	observability.NoopMetrics
	aggregations int
	lastEvents   int
	lastDuration time.Duration
}

func (m *recordingMetrics) RecordAggregation(_ context.Context, eventCount int, duration time.Duration) {
	m.aggregations++
	m.lastEvents = eventCount
	m.lastDuration = duration
}

// recordingSpans counts aggregate span starts and ends.
type recordingSpans struct {
	observability.NoopSpanManager
	started int
	ended   int
}

func (s *recordingSpans) StartAggregateSpan(ctx context.Context, eventCount int) (context.Context, trace.Span) {
	s.started++
	return s.NoopSpanManager.StartAggregateSpan(ctx, eventCount)
}

func (s *recordingSpans) EndSpanWithError(span trace.Span, err error) {
	s.ended++
	s.NoopSpanManager.EndSpanWithError(span, err)
}

func TestComputeSnapshotRecordsAggregation(t *testing.T) {
	log := ingest.NewLog(ingest.Config{})
	log.Add(wire.QueryEvent{ID: "e1", UserID: "u1", Topic: "algebra", LaTeX: "2+2", Timestamp: time.Now().UnixMilli()})
	log.Add(wire.QueryEvent{ID: "e2", UserID: "u2", Topic: "calculus", LaTeX: `\int x`, Timestamp: time.Now().UnixMilli()})

	metrics := &recordingMetrics{}
	spans := &recordingSpans{}

	snapshot := computeSnapshot(context.Background(), nil, metrics, spans, log)
	require.Equal(t, 2, snapshot.TotalEvents)

	assert.Equal(t, 1, metrics.aggregations)
	assert.Equal(t, 2, metrics.lastEvents)
	assert.GreaterOrEqual(t, metrics.lastDuration, time.Duration(0))

	// Every computation opens and closes exactly one aggregate span.
	assert.Equal(t, 1, spans.started)
	assert.Equal(t, 1, spans.ended)
}
