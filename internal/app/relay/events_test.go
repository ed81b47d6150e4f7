package relay

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChatMessageStampsIdentifierAndTime(t *testing.T) {
	before := time.Now().UnixMilli()
	msg := NewChatMessage("P1", "hello", "u1", "alice")
	after := time.Now().UnixMilli()

	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "P1", msg.RoomKey)
	assert.Equal(t, "hello", msg.Body)
	assert.Equal(t, "u1", msg.Identity)
	assert.Equal(t, "alice", msg.DisplayName)
	assert.GreaterOrEqual(t, msg.Timestamp, before)
	assert.LessOrEqual(t, msg.Timestamp, after)

	other := NewChatMessage("P1", "hello", "u1", "alice")
	assert.NotEqual(t, msg.ID, other.ID)
}

func TestPresenceSnapshotWireShape(t *testing.T) {
	raw, err := marshalEvent(TypePresenceSnapshot, []string{"alice", "bob"})
	require.NoError(t, err)

	assert.JSONEq(t, `{"type":"presence-snapshot","payload":["alice","bob"]}`, string(raw))
}

func TestTypingNoticeWireShape(t *testing.T) {
	raw, err := marshalEvent(TypeTypingNotice, TypingNotice{DisplayName: "alice"})
	require.NoError(t, err)

	assert.JSONEq(t, `{"type":"typing-notice","payload":{"displayName":"alice"}}`, string(raw))
}

func TestChatMessageWireShape(t *testing.T) {
	msg := ChatMessage{
		ID:          "m1",
		RoomKey:     "P1",
		Body:        "hi",
		Identity:    "u1",
		DisplayName: "alice",
		Timestamp:   1700000000000,
	}

	raw, err := marshalEvent(TypeMessageReceived, msg)
	require.NoError(t, err)

	var frame struct {
		Type    EventType       `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(raw, &frame))
	assert.Equal(t, TypeMessageReceived, frame.Type)

	var decoded ChatMessage
	require.NoError(t, json.Unmarshal(frame.Payload, &decoded))
	assert.Equal(t, msg, decoded)
}
