package observability_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calclabs/mathstream/pkg/mathstream/observability"
)

func TestLogHelpersNilLogger(t *testing.T) {
	// Every helper must tolerate a nil logger.
	observability.LogConnected(nil, "ws://x")
	observability.LogDisconnected(nil, 1006, "gone")
	observability.LogConnectError(nil, "ws://x", errors.New("refused"))
	observability.LogReconnectScheduled(nil, 3*time.Second)
	observability.LogFrameDropped(nil, errors.New("bad frame"))
	observability.LogQueueFlush(nil, 3)
	observability.LogBacklogApplied(nil, 10)
	observability.LogEventDeduped(nil, "e1")
	observability.LogAggregation(nil, 5, 1.2)

	assert.Nil(t, observability.EnrichLogger(nil, "s1", "u1"))
}

func TestEnrichLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	enriched := observability.EnrichLogger(logger, "sess-1", "user-1")
	enriched.Info("hello")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "sess-1", record["session_id"])
	assert.Equal(t, "user-1", record["user_id"])
}

func TestLogDisconnectedFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	observability.LogDisconnected(logger, 1006, "abnormal closure")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, float64(1006), record["code"])
	assert.Equal(t, "abnormal closure", record["reason"])
}

func TestTimedOperation(t *testing.T) {
	done := observability.TimedOperation()
	time.Sleep(10 * time.Millisecond)
	elapsed := done()

	assert.GreaterOrEqual(t, elapsed, float64(5))
}

func TestNoopImplementations(t *testing.T) {
	// Noop metrics and spans must be safe with zero setup.
	var m observability.NoopMetrics
	m.RecordFrame(nil, "query_event")
	m.RecordReconnect(nil)
	m.RecordActiveUsers(nil, 3)

	var s observability.NoopSpanManager
	ctx, span := s.StartSessionSpan(nil, "ws://x", "sess-1")
	assert.Nil(t, ctx)
	s.EndSpanWithError(span, errors.New("x"))
}
