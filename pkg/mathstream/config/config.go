// Package config loads mathstream settings from YAML or JSON files.
// Missing or mistyped values fall back to defaults rather than failing,
// so a partial config file is always usable.
package config

import (
	"time"
)

// Settings holds everything the client and its consumers need.
type Settings struct {
	// ServerURL is the websocket event endpoint.
	ServerURL string

	// UserName is the display name announced on connect.
	UserName string

	// PingInterval is the keepalive heartbeat period.
	PingInterval time.Duration

	// ReconnectDelay is the fixed delay before a reconnect attempt.
	ReconnectDelay time.Duration

	// LogCapacity bounds the event log.
	LogCapacity int

	// RecentCapacity bounds the recent-activity projection.
	RecentCapacity int

	// HistoryPath is the SQLite history database path.
	HistoryPath string
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		ServerURL:      "ws://localhost:4000",
		UserName:       "Anonymous User",
		PingInterval:   30 * time.Second,
		ReconnectDelay: 3 * time.Second,
		LogCapacity:    100,
		RecentCapacity: 5,
		HistoryPath:    "./history.db",
	}
}

// fromMap overlays values from a decoded config map onto the defaults.
// Each accessor tolerates missing keys and wrong types.
func fromMap(m map[string]any) Settings {
	s := Default()
	s.ServerURL = getString(m, "server_url", s.ServerURL)
	s.UserName = getString(m, "user_name", s.UserName)
	s.PingInterval = getDuration(m, "ping_interval", s.PingInterval)
	s.ReconnectDelay = getDuration(m, "reconnect_delay", s.ReconnectDelay)
	s.LogCapacity = getInt(m, "log_capacity", s.LogCapacity)
	s.RecentCapacity = getInt(m, "recent_capacity", s.RecentCapacity)
	s.HistoryPath = getString(m, "history_path", s.HistoryPath)
	return s
}

// getString returns the string value for key, or defaultVal if missing
// or not a string.
func getString(m map[string]any, key, defaultVal string) string {
	v, ok := m[key]
	if !ok {
		return defaultVal
	}
	if s, ok := v.(string); ok {
		return s
	}
	return defaultVal
}

// getDuration returns the duration value for key, or defaultVal if
// missing or invalid.
//
// Accepts:
//   - string: parsed with time.ParseDuration
//   - int, int64, float64: interpreted as seconds
func getDuration(m map[string]any, key string, defaultVal time.Duration) time.Duration {
	v, ok := m[key]
	if !ok {
		return defaultVal
	}
	switch val := v.(type) {
	case string:
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	case float64:
		return time.Duration(val * float64(time.Second))
	case int:
		return time.Duration(val) * time.Second
	case int64:
		return time.Duration(val) * time.Second
	}
	return defaultVal
}

// getInt returns the integer value for key, or defaultVal if missing or
// not convertible.
//
// Accepts:
//   - int, int64: used directly
//   - float64: converted only if it has no fractional part
func getInt(m map[string]any, key string, defaultVal int) int {
	v, ok := m[key]
	if !ok {
		return defaultVal
	}
	switch val := v.(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		if val == float64(int(val)) {
			return int(val)
		}
	}
	return defaultVal
}
