package wire

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DecodeError indicates an inbound frame could not be parsed.
type DecodeError struct {
	Frame   []byte
	Message string
	Err     error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode frame: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("decode frame: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// rawFrame matches every inbound shape at once. Query event fields may
// arrive nested under "data" or flattened at the top level.
type rawFrame struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	Count *int            `json:"count"`

	// Flattened query_event fields.
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	Topic       string `json:"topic"`
	LaTeX       string `json:"latex"`
	FormulaType string `json:"formulaType"`
	Timestamp   int64  `json:"timestamp"`
}

// rawEvent is the nested "data" shape of a query_event frame.
type rawEvent struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	Topic       string `json:"topic"`
	LaTeX       string `json:"latex"`
	FormulaType string `json:"formulaType"`
	Timestamp   int64  `json:"timestamp"`
}

// Decode parses a single inbound frame.
//
// Malformed JSON returns a *DecodeError. A well-formed frame never fails:
// unknown types map to KindUnknown, and missing query event fields are
// repaired with defaults rather than rejected.
func Decode(data []byte) (Message, error) {
	var raw rawFrame
	if err := json.Unmarshal(data, &raw); err != nil {
		return Message{}, &DecodeError{Frame: data, Message: "malformed JSON", Err: err}
	}

	switch Kind(raw.Type) {
	case KindInitialEvents:
		// Backlog stays nil when the frame carries no array at all.
		// Consumers treat nil as "nothing to replace"; only an explicit
		// array, even an empty one, stands for the full backlog.
		var backlog []QueryEvent
		if len(raw.Data) > 0 && string(raw.Data) != "null" {
			if err := json.Unmarshal(raw.Data, &backlog); err != nil {
				return Message{}, &DecodeError{Frame: data, Message: "initial_events data is not an array", Err: err}
			}
		}
		return Message{Kind: KindInitialEvents, Backlog: backlog}, nil

	case KindQueryEvent:
		return Message{Kind: KindQueryEvent, Event: normalizeQueryEvent(raw)}, nil

	case KindActiveUsers:
		if raw.Count == nil {
			return Message{Kind: KindActiveUsers, ActiveUsers: -1}, nil
		}
		return Message{Kind: KindActiveUsers, ActiveUsers: *raw.Count}, nil

	case KindConnection:
		return Message{Kind: KindConnection}, nil

	default:
		return Message{Kind: KindUnknown}, nil
	}
}

// normalizeQueryEvent builds a QueryEvent from a query_event frame,
// trying the nested "data" shape first and falling back to the flattened
// top-level fields. Returns nil when neither shape carries a payload.
func normalizeQueryEvent(raw rawFrame) *QueryEvent {
	var src rawEvent
	switch {
	case len(raw.Data) > 0 && string(raw.Data) != "null":
		if err := json.Unmarshal(raw.Data, &src); err != nil {
			return nil
		}
	case raw.ID != "" || raw.LaTeX != "":
		src = rawEvent{
			ID:          raw.ID,
			UserID:      raw.UserID,
			Topic:       raw.Topic,
			LaTeX:       raw.LaTeX,
			FormulaType: raw.FormulaType,
			Timestamp:   raw.Timestamp,
		}
	default:
		return nil
	}

	evt := QueryEvent{
		ID:          src.ID,
		UserID:      src.UserID,
		Topic:       src.Topic,
		LaTeX:       src.LaTeX,
		FormulaType: src.FormulaType,
		Timestamp:   src.Timestamp,
	}
	applyDefaults(&evt)
	return &evt
}

// applyDefaults repairs missing fields at the boundary.
func applyDefaults(evt *QueryEvent) {
	now := time.Now().UnixMilli()
	if evt.ID == "" {
		evt.ID = fmt.Sprintf("%d-%s", now, uuid.New().String()[:8])
	}
	if evt.UserID == "" {
		evt.UserID = "anonymous"
	}
	if evt.Topic == "" {
		evt.Topic = "unknown"
	}
	if evt.FormulaType == "" {
		evt.FormulaType = "unknown"
	}
	if evt.Timestamp == 0 {
		evt.Timestamp = now
	}
}
