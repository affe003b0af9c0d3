// Package observability provides structured logging, metrics, and tracing
// for mathstream: connection lifecycle, frame handling, ingestion, and
// aggregation timing.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds session context to a logger.
// Returns a new logger with session_id and user_id fields.
func EnrichLogger(logger *slog.Logger, sessionID, userID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("session_id", sessionID),
		slog.String("user_id", userID),
	)
}

// LogConnected logs a successful connection.
func LogConnected(logger *slog.Logger, url string) {
	if logger == nil {
		return
	}
	logger.Info("connection established",
		slog.String("url", url),
	)
}

// LogDisconnected logs a connection close.
func LogDisconnected(logger *slog.Logger, code int, reason string) {
	if logger == nil {
		return
	}
	logger.Warn("connection closed",
		slog.Int("code", code),
		slog.String("reason", reason),
	)
}

// LogConnectError logs a failed connection attempt (non-fatal).
func LogConnectError(logger *slog.Logger, url string, err error) {
	if logger == nil {
		return
	}
	logger.Error("connection failed",
		slog.String("url", url),
		slog.String("error", err.Error()),
	)
}

// LogReconnectScheduled logs a pending reconnect attempt.
func LogReconnectScheduled(logger *slog.Logger, delay time.Duration) {
	if logger == nil {
		return
	}
	logger.Info("reconnect scheduled",
		slog.Duration("delay", delay),
	)
}

// LogFrameDropped logs a malformed inbound frame (dropped, never fatal).
func LogFrameDropped(logger *slog.Logger, err error) {
	if logger == nil {
		return
	}
	logger.Warn("frame dropped",
		slog.String("error", err.Error()),
	)
}

// LogQueueFlush logs delivery of queued outbound messages.
func LogQueueFlush(logger *slog.Logger, count int) {
	if logger == nil {
		return
	}
	logger.Debug("outbound queue flushed",
		slog.Int("count", count),
	)
}

// LogBacklogApplied logs a backlog replacement.
func LogBacklogApplied(logger *slog.Logger, count int) {
	if logger == nil {
		return
	}
	logger.Debug("backlog applied",
		slog.Int("count", count),
	)
}

// LogEventDeduped logs a silently discarded duplicate event.
func LogEventDeduped(logger *slog.Logger, eventID string) {
	if logger == nil {
		return
	}
	logger.Debug("duplicate event discarded",
		slog.String("event_id", eventID),
	)
}

// LogAggregation logs a statistics recomputation.
func LogAggregation(logger *slog.Logger, eventCount int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("statistics recomputed",
		slog.Int("events", eventCount),
		slog.Float64("duration_ms", durationMs),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
