package relay

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collabrelay/internal/app/membership"
)

func TestMain(m *testing.M) {
	log.Logger = zerolog.Nop()
	os.Exit(m.Run())
}

// newTestClient builds a client without a live websocket. The pumps are never
// started, so the nil transport is never touched.
func newTestClient(m *Manager) *Client {
	c := NewClient(m, nil, nil, membership.AllowAll{})
	m.Register(c)
	return c
}

type outboundFrame struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// drainFrames empties the client's send queue without blocking.
func drainFrames(t *testing.T, c *Client) []outboundFrame {
	t.Helper()

	var frames []outboundFrame
	for {
		select {
		case raw, ok := <-c.send:
			if !ok {
				return frames
			}
			var frame outboundFrame
			require.NoError(t, json.Unmarshal(raw, &frame))
			frames = append(frames, frame)
		default:
			return frames
		}
	}
}

// lastPresence returns the last presence snapshot among the queued frames, or
// nil if none was delivered.
func lastPresence(t *testing.T, c *Client) []string {
	t.Helper()

	var names []string
	found := false
	for _, frame := range drainFrames(t, c) {
		if frame.Type == TypePresenceSnapshot {
			names = nil
			require.NoError(t, json.Unmarshal(frame.Payload, &names))
			found = true
		}
	}
	if !found {
		return nil
	}
	return names
}

func framesOfType(frames []outboundFrame, eventType EventType) []outboundFrame {
	var matched []outboundFrame
	for _, frame := range frames {
		if frame.Type == eventType {
			matched = append(matched, frame)
		}
	}
	return matched
}

func TestJoinCreatesRoomAndBroadcastsPresence(t *testing.T) {
	m := NewManager()
	a := newTestClient(m)

	m.Join(a, "P1", "u1", "alice")

	assert.Equal(t, 1, m.RoomCount())
	assert.Equal(t, []string{"alice"}, m.Presence("P1"))
	assert.Equal(t, []string{"alice"}, lastPresence(t, a))
}

func TestPresenceTracksJoinAndLeaveSequence(t *testing.T) {
	m := NewManager()
	a := newTestClient(m)
	b := newTestClient(m)

	m.Join(a, "P1", "u1", "alice")
	m.Join(b, "P1", "u2", "bob")

	assert.ElementsMatch(t, []string{"alice", "bob"}, m.Presence("P1"))
	assert.ElementsMatch(t, []string{"alice", "bob"}, lastPresence(t, a))
	assert.ElementsMatch(t, []string{"alice", "bob"}, lastPresence(t, b))

	m.Message(a, "hi")

	for _, c := range []*Client{a, b} {
		frames := framesOfType(drainFrames(t, c), TypeMessageReceived)
		require.Len(t, frames, 1, "both members receive the chat message, sender included")

		var msg ChatMessage
		require.NoError(t, json.Unmarshal(frames[0].Payload, &msg))
		assert.Equal(t, "hi", msg.Body)
		assert.Equal(t, "alice", msg.DisplayName)
		assert.Equal(t, "u1", msg.Identity)
		assert.Equal(t, "P1", msg.RoomKey)
		assert.NotEmpty(t, msg.ID)
		assert.Positive(t, msg.Timestamp)
	}

	m.Disconnect(a)
	assert.Equal(t, []string{"bob"}, m.Presence("P1"))
	assert.Equal(t, []string{"bob"}, lastPresence(t, b))

	m.Disconnect(b)
	assert.Nil(t, m.Presence("P1"))
	assert.Equal(t, 0, m.RoomCount())
	assert.Equal(t, 0, m.ConnectionCount())
}

func TestSoleMemberLeavesNoResidualState(t *testing.T) {
	m := NewManager()
	a := newTestClient(m)

	m.Join(a, "P1", "u1", "alice")
	m.Disconnect(a)

	assert.Equal(t, 0, m.RoomCount())
	assert.Equal(t, 0, m.ConnectionCount())
	assert.Nil(t, m.Presence("P1"))
}

func TestDuplicateIdentityCollapsesToOneEntry(t *testing.T) {
	m := NewManager()
	first := newTestClient(m)
	second := newTestClient(m)

	m.Join(first, "P1", "u1", "alice")
	m.Join(second, "P1", "u1", "alice")

	assert.Equal(t, []string{"alice"}, m.Presence("P1"),
		"two connections with the same identity are one presence entry")

	m.Disconnect(first)
	assert.Equal(t, []string{"alice"}, m.Presence("P1"),
		"identity stays present while another connection remains")

	m.Disconnect(second)
	assert.Equal(t, 0, m.RoomCount())
}

func TestMessageBeforeJoinIsDropped(t *testing.T) {
	m := NewManager()
	a := newTestClient(m)
	b := newTestClient(m)
	m.Join(b, "P1", "u2", "bob")
	drainFrames(t, b)

	m.Message(a, "hello?")

	assert.Empty(t, drainFrames(t, a))
	assert.Empty(t, drainFrames(t, b))
}

func TestTypingExcludesSender(t *testing.T) {
	m := NewManager()
	a := newTestClient(m)
	b := newTestClient(m)
	m.Join(a, "P1", "u1", "alice")
	m.Join(b, "P1", "u2", "bob")
	drainFrames(t, a)
	drainFrames(t, b)

	m.Typing(a)

	assert.Empty(t, framesOfType(drainFrames(t, a), TypeTypingNotice))

	notices := framesOfType(drainFrames(t, b), TypeTypingNotice)
	require.Len(t, notices, 1)

	var notice TypingNotice
	require.NoError(t, json.Unmarshal(notices[0].Payload, &notice))
	assert.Equal(t, "alice", notice.DisplayName)
}

func TestMessageNeverCrossesRooms(t *testing.T) {
	m := NewManager()
	a := newTestClient(m)
	b := newTestClient(m)
	m.Join(a, "P1", "u1", "alice")
	m.Join(b, "P2", "u2", "bob")
	drainFrames(t, a)
	drainFrames(t, b)

	m.Message(a, "internal")

	assert.Empty(t, drainFrames(t, b))
	assert.Len(t, framesOfType(drainFrames(t, a), TypeMessageReceived), 1)
}

func TestRejoinClearsOldMembership(t *testing.T) {
	m := NewManager()
	a := newTestClient(m)
	b := newTestClient(m)
	m.Join(b, "P1", "u2", "bob")
	m.Join(a, "P1", "u1", "alice")

	m.Join(a, "P2", "u1", "alice")

	assert.Equal(t, []string{"bob"}, m.Presence("P1"),
		"old room presence is cleared atomically with the new join")
	assert.Equal(t, []string{"alice"}, m.Presence("P2"))
	assert.Equal(t, []string{"bob"}, lastPresence(t, b))
}

func TestRejoinLeavingEmptyRoomDropsIt(t *testing.T) {
	m := NewManager()
	a := newTestClient(m)
	m.Join(a, "P1", "u1", "alice")
	m.Join(a, "P2", "u1", "alice")

	assert.Equal(t, 1, m.RoomCount())
	assert.Nil(t, m.Presence("P1"))
}

func TestJoinWithMissingFieldsIsDropped(t *testing.T) {
	m := NewManager()
	a := newTestClient(m)

	m.Join(a, "", "u1", "alice")
	m.Join(a, "P1", "  ", "alice")

	assert.Equal(t, 0, m.RoomCount())
}

func TestJoinAfterDisconnectIsDropped(t *testing.T) {
	m := NewManager()
	a := newTestClient(m)
	m.Disconnect(a)

	m.Join(a, "P1", "u1", "alice")

	assert.Equal(t, 0, m.RoomCount())
}

func TestDisconnectIsIdempotent(t *testing.T) {
	m := NewManager()
	a := newTestClient(m)
	m.Join(a, "P1", "u1", "alice")

	m.Disconnect(a)
	m.Disconnect(a)

	assert.Equal(t, 0, m.ConnectionCount())
	assert.Equal(t, 0, m.RoomCount())
}

func TestShutdownClosesAllConnections(t *testing.T) {
	m := NewManager()
	a := newTestClient(m)
	b := newTestClient(m)
	m.Join(a, "P1", "u1", "alice")
	m.Join(b, "P1", "u2", "bob")

	m.Shutdown()

	assert.Equal(t, 0, m.ConnectionCount())
	assert.Equal(t, 0, m.RoomCount())

	for {
		if _, ok := <-a.send; !ok {
			break
		}
	}

	late := newTestClient(m)
	assert.Equal(t, 0, m.ConnectionCount(), "registrations after shutdown are refused")
	_, open := <-late.send
	assert.False(t, open)
}

func TestSlowRecipientDoesNotBlockOthers(t *testing.T) {
	m := NewManager()
	slow := newTestClient(m)
	fast := newTestClient(m)
	m.Join(slow, "P1", "u1", "alice")
	m.Join(fast, "P1", "u2", "bob")
	drainFrames(t, fast)

	// Fill the slow client's queue so further deliveries to it are dropped.
	for i := 0; i < cap(slow.send); i++ {
		slow.send <- []byte("{}")
	}

	m.Message(fast, "still flowing")

	frames := framesOfType(drainFrames(t, fast), TypeMessageReceived)
	assert.Len(t, frames, 1, "delivery to healthy recipients is unaffected")
}
