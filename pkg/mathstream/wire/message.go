// Package wire defines the JSON frame formats exchanged with the query
// event endpoint and the normalization applied to inbound payloads.
//
// Inbound frames are modeled as a tagged union: Decode inspects the
// "type" field and produces a Message with exactly one populated arm.
// Frames with an unrecognized type decode to KindUnknown rather than
// failing, so the transport can keep running when the server grows new
// message types.
package wire

// Kind identifies an inbound message variant.
type Kind string

// Inbound message kinds.
const (
	// KindInitialEvents carries the full event backlog.
	KindInitialEvents Kind = "initial_events"

	// KindQueryEvent carries a single new query event.
	KindQueryEvent Kind = "query_event"

	// KindActiveUsers updates the active-user gauge.
	KindActiveUsers Kind = "active_users"

	// KindConnection is the server's connection acknowledgement.
	KindConnection Kind = "connection"

	// KindUnknown marks frames whose type is not recognized.
	KindUnknown Kind = ""
)

// QueryEvent is one observed user query.
type QueryEvent struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	Topic       string `json:"topic"`
	LaTeX       string `json:"latex"`
	FormulaType string `json:"formulaType"`

	// Timestamp is milliseconds since the Unix epoch.
	Timestamp int64 `json:"timestamp"`
}

// Message is a decoded inbound frame. Kind selects which arm is set:
// Backlog for KindInitialEvents (nil when the frame carried no array,
// as opposed to an explicit empty array), Event for KindQueryEvent (nil
// when the frame carried no usable payload), ActiveUsers for
// KindActiveUsers.
type Message struct {
	Kind        Kind
	Backlog     []QueryEvent
	Event       *QueryEvent
	ActiveUsers int
}

// OutboundFrame is a client-to-server message.
type OutboundFrame struct {
	Type   string `json:"type"`
	UserID string `json:"userId,omitempty"`
	Name   string `json:"name,omitempty"`
}

// GetInitialEvents requests the event backlog.
func GetInitialEvents() OutboundFrame {
	return OutboundFrame{Type: "get_initial_events"}
}

// UserActive announces a connected user. Sent once per successful connect.
func UserActive(userID, name string) OutboundFrame {
	return OutboundFrame{Type: "user_active", UserID: userID, Name: name}
}

// Ping is the keepalive heartbeat frame.
func Ping() OutboundFrame {
	return OutboundFrame{Type: "ping"}
}
