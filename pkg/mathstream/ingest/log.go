// Package ingest maintains the bounded, deduplicated log of recent query
// events and the small recent-activity projection derived from it.
//
// The log is newest-first and capped. Readers always get copies: the
// internal slices are replaced wholesale or prepended-and-truncated,
// never mutated while shared, so a snapshot taken at any point stays
// consistent.
package ingest

import (
	"context"
	"log/slog"
	"sync"

	"github.com/calclabs/mathstream/pkg/mathstream/observability"
	"github.com/calclabs/mathstream/pkg/mathstream/wire"
)

// Default capacities.
const (
	// DefaultCapacity bounds the main event log.
	DefaultCapacity = 100

	// DefaultRecentCapacity bounds the recent-activity projection.
	DefaultRecentCapacity = 5
)

// RecentQuery is the projection kept for the recent-activity display.
type RecentQuery struct {
	ID        string `json:"id"`
	Topic     string `json:"topic"`
	LaTeX     string `json:"latex"`
	Timestamp int64  `json:"timestamp"`
}

// Config configures a Log.
type Config struct {
	// Capacity bounds the event log. Default: DefaultCapacity.
	Capacity int

	// RecentCapacity bounds the recent projection.
	// Default: DefaultRecentCapacity.
	RecentCapacity int

	// OnChange, if set, is invoked after every log mutation with the
	// new version number. Aggregation hangs off this hook.
	OnChange func(version uint64)

	// Logger receives ingestion events. May be nil.
	Logger *slog.Logger

	// Metrics records ingestion metrics. Default: NoopMetrics.
	Metrics observability.MetricsRecorder
}

// Log is the bounded, deduplicated event log. Safe for concurrent use.
type Log struct {
	capacity       int
	recentCapacity int
	onChange       func(uint64)
	logger         *slog.Logger
	metrics        observability.MetricsRecorder

	mu      sync.RWMutex
	events  []wire.QueryEvent // newest first
	recent  []RecentQuery     // newest first
	version uint64
}

// NewLog creates an empty log.
func NewLog(cfg Config) *Log {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.RecentCapacity <= 0 {
		cfg.RecentCapacity = DefaultRecentCapacity
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NoopMetrics{}
	}
	return &Log{
		capacity:       cfg.Capacity,
		recentCapacity: cfg.RecentCapacity,
		onChange:       cfg.OnChange,
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
	}
}

// ReplaceAll installs a backlog verbatim, discarding the previous log.
//
// No dedup pass is applied: the sender is trusted to supply a clean
// backlog, and duplicates inside it are preserved as-is. This is a known
// inconsistency with the incremental Add path. The recent projection is
// left untouched.
func (l *Log) ReplaceAll(events []wire.QueryEvent) {
	replaced := make([]wire.QueryEvent, len(events))
	copy(replaced, events)

	l.mu.Lock()
	l.events = replaced
	l.version++
	version := l.version
	l.mu.Unlock()

	observability.LogBacklogApplied(l.logger, len(replaced))
	l.notify(version)
}

// Add ingests one event. A duplicate ID anywhere in the current log is
// discarded silently and Add reports false. Otherwise the event is
// prepended to the log and to the recent projection, both truncated to
// their capacities.
func (l *Log) Add(evt wire.QueryEvent) bool {
	l.mu.Lock()
	for _, existing := range l.events {
		if existing.ID == evt.ID {
			l.mu.Unlock()
			observability.LogEventDeduped(l.logger, evt.ID)
			l.metrics.RecordIngest(context.Background(), true)
			return false
		}
	}

	l.events = prependEvent(l.events, evt, l.capacity)

	// Same dedup rule, applied independently against the projection.
	duplicate := false
	for _, q := range l.recent {
		if q.ID == evt.ID {
			duplicate = true
			break
		}
	}
	if !duplicate {
		l.recent = prependRecent(l.recent, RecentQuery{
			ID:        evt.ID,
			Topic:     evt.Topic,
			LaTeX:     evt.LaTeX,
			Timestamp: evt.Timestamp,
		}, l.recentCapacity)
	}

	l.version++
	version := l.version
	l.mu.Unlock()

	l.metrics.RecordIngest(context.Background(), false)
	l.notify(version)
	return true
}

// Events returns a copy of the log, newest first.
func (l *Log) Events() []wire.QueryEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]wire.QueryEvent, len(l.events))
	copy(out, l.events)
	return out
}

// Recent returns a copy of the recent-activity projection, newest first.
func (l *Log) Recent() []RecentQuery {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]RecentQuery, len(l.recent))
	copy(out, l.recent)
	return out
}

// Len returns the current log length.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// Version returns the log version. It increments on every mutation.
func (l *Log) Version() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}

func (l *Log) notify(version uint64) {
	if l.onChange != nil {
		l.onChange(version)
	}
}

// prependEvent builds a fresh slice so readers holding the old one are
// unaffected.
func prependEvent(events []wire.QueryEvent, evt wire.QueryEvent, capacity int) []wire.QueryEvent {
	out := make([]wire.QueryEvent, 0, len(events)+1)
	out = append(out, evt)
	out = append(out, events...)
	if len(out) > capacity {
		out = out[:capacity]
	}
	return out
}

func prependRecent(recent []RecentQuery, q RecentQuery, capacity int) []RecentQuery {
	out := make([]RecentQuery, 0, len(recent)+1)
	out = append(out, q)
	out = append(out, recent...)
	if len(out) > capacity {
		out = out[:capacity]
	}
	return out
}
