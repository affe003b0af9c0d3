package wire_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calclabs/mathstream/pkg/mathstream/wire"
)

func TestDecode_MalformedJSON(t *testing.T) {
	_, err := wire.Decode([]byte(`{not json`))
	require.Error(t, err)

	var derr *wire.DecodeError
	assert.True(t, errors.As(err, &derr))
}

func TestDecode_UnknownType(t *testing.T) {
	msg, err := wire.Decode([]byte(`{"type":"server_gossip","payload":42}`))
	require.NoError(t, err)
	assert.Equal(t, wire.KindUnknown, msg.Kind)
}

func TestDecode_Connection(t *testing.T) {
	msg, err := wire.Decode([]byte(`{"type":"connection","status":"ok"}`))
	require.NoError(t, err)
	assert.Equal(t, wire.KindConnection, msg.Kind)
}

func TestDecode_InitialEvents(t *testing.T) {
	frame := `{"type":"initial_events","data":[
		{"id":"e1","userId":"u1","topic":"algebra","latex":"2+2","formulaType":"arith","timestamp":1700000000000},
		{"id":"e2","userId":"u2","topic":"calculus","latex":"\\int x","formulaType":"integral","timestamp":1700000001000}
	]}`

	msg, err := wire.Decode([]byte(frame))
	require.NoError(t, err)
	assert.Equal(t, wire.KindInitialEvents, msg.Kind)
	require.Len(t, msg.Backlog, 2)
	assert.Equal(t, "e1", msg.Backlog[0].ID)
	assert.Equal(t, "calculus", msg.Backlog[1].Topic)
}

func TestDecode_InitialEventsMissingData(t *testing.T) {
	msg, err := wire.Decode([]byte(`{"type":"initial_events"}`))
	require.NoError(t, err)
	assert.Equal(t, wire.KindInitialEvents, msg.Kind)

	// No array present: Backlog stays nil so consumers do not mistake
	// the frame for an empty backlog.
	assert.Nil(t, msg.Backlog)
}

func TestDecode_InitialEventsNullData(t *testing.T) {
	msg, err := wire.Decode([]byte(`{"type":"initial_events","data":null}`))
	require.NoError(t, err)
	assert.Equal(t, wire.KindInitialEvents, msg.Kind)
	assert.Nil(t, msg.Backlog)
}

func TestDecode_InitialEventsEmptyArray(t *testing.T) {
	msg, err := wire.Decode([]byte(`{"type":"initial_events","data":[]}`))
	require.NoError(t, err)
	assert.Equal(t, wire.KindInitialEvents, msg.Kind)

	// An explicit empty array is a real (empty) backlog, not a missing one.
	require.NotNil(t, msg.Backlog)
	assert.Empty(t, msg.Backlog)
}

func TestDecode_InitialEventsBadData(t *testing.T) {
	_, err := wire.Decode([]byte(`{"type":"initial_events","data":{"not":"an array"}}`))
	require.Error(t, err)

	var derr *wire.DecodeError
	assert.True(t, errors.As(err, &derr))
}

func TestDecode_QueryEventNested(t *testing.T) {
	frame := `{"type":"query_event","data":{"id":"e1","userId":"u1","topic":"algebra","latex":"x^2","formulaType":"poly","timestamp":1700000000000}}`

	msg, err := wire.Decode([]byte(frame))
	require.NoError(t, err)
	assert.Equal(t, wire.KindQueryEvent, msg.Kind)
	require.NotNil(t, msg.Event)
	assert.Equal(t, "e1", msg.Event.ID)
	assert.Equal(t, "x^2", msg.Event.LaTeX)
}

func TestDecode_QueryEventFlattened(t *testing.T) {
	frame := `{"type":"query_event","id":"e9","userId":"u9","topic":"geometry","latex":"a^2+b^2","formulaType":"eq","timestamp":1700000000000}`

	msg, err := wire.Decode([]byte(frame))
	require.NoError(t, err)
	require.NotNil(t, msg.Event)
	assert.Equal(t, "e9", msg.Event.ID)
	assert.Equal(t, "geometry", msg.Event.Topic)
}

func TestDecode_QueryEventNestedTakesPrecedence(t *testing.T) {
	// Both shapes present: the nested data wins.
	frame := `{"type":"query_event","id":"flat","latex":"flat","data":{"id":"nested","latex":"nested"}}`

	msg, err := wire.Decode([]byte(frame))
	require.NoError(t, err)
	require.NotNil(t, msg.Event)
	assert.Equal(t, "nested", msg.Event.ID)
	assert.Equal(t, "nested", msg.Event.LaTeX)
}

func TestDecode_QueryEventNoPayload(t *testing.T) {
	msg, err := wire.Decode([]byte(`{"type":"query_event"}`))
	require.NoError(t, err)
	assert.Equal(t, wire.KindQueryEvent, msg.Kind)
	assert.Nil(t, msg.Event)
}

func TestDecode_QueryEventNullData(t *testing.T) {
	msg, err := wire.Decode([]byte(`{"type":"query_event","data":null}`))
	require.NoError(t, err)
	assert.Nil(t, msg.Event)
}

func TestDecode_QueryEventDefaults(t *testing.T) {
	before := time.Now().UnixMilli()
	msg, err := wire.Decode([]byte(`{"type":"query_event","data":{"latex":"2+2"}}`))
	after := time.Now().UnixMilli()

	require.NoError(t, err)
	require.NotNil(t, msg.Event)

	// Missing fields are repaired, not rejected.
	assert.NotEmpty(t, msg.Event.ID)
	assert.Equal(t, "anonymous", msg.Event.UserID)
	assert.Equal(t, "unknown", msg.Event.Topic)
	assert.Equal(t, "unknown", msg.Event.FormulaType)
	assert.GreaterOrEqual(t, msg.Event.Timestamp, before)
	assert.LessOrEqual(t, msg.Event.Timestamp, after)
}

func TestDecode_QueryEventKeepsProvidedFields(t *testing.T) {
	frame := `{"type":"query_event","data":{"id":"keep","userId":"u1","topic":"algebra","latex":"2+2","formulaType":"arith","timestamp":123}}`

	msg, err := wire.Decode([]byte(frame))
	require.NoError(t, err)
	require.NotNil(t, msg.Event)
	assert.Equal(t, "keep", msg.Event.ID)
	assert.Equal(t, "u1", msg.Event.UserID)
	assert.Equal(t, int64(123), msg.Event.Timestamp)
}

func TestDecode_ActiveUsers(t *testing.T) {
	msg, err := wire.Decode([]byte(`{"type":"active_users","count":17}`))
	require.NoError(t, err)
	assert.Equal(t, wire.KindActiveUsers, msg.Kind)
	assert.Equal(t, 17, msg.ActiveUsers)
}

func TestDecode_ActiveUsersZero(t *testing.T) {
	msg, err := wire.Decode([]byte(`{"type":"active_users","count":0}`))
	require.NoError(t, err)
	assert.Equal(t, 0, msg.ActiveUsers)
}

func TestDecode_ActiveUsersMissingCount(t *testing.T) {
	msg, err := wire.Decode([]byte(`{"type":"active_users"}`))
	require.NoError(t, err)

	// A missing count is distinguishable from a count of zero.
	assert.Equal(t, -1, msg.ActiveUsers)
}

func TestOutboundFrames(t *testing.T) {
	assert.Equal(t, wire.OutboundFrame{Type: "get_initial_events"}, wire.GetInitialEvents())
	assert.Equal(t, wire.OutboundFrame{Type: "user_active", UserID: "u1", Name: "Ada"}, wire.UserActive("u1", "Ada"))
	assert.Equal(t, wire.OutboundFrame{Type: "ping"}, wire.Ping())
}
