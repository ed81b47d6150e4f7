/*
Package relay contains the core logic of the real-time collaboration relay:
live websocket connections, project rooms, presence tracking, and ephemeral
broadcast of chat messages and typing signals.

This file defines the wire-level event vocabulary. Every frame in either
direction is a JSON envelope of {type, payload}. Nothing defined here is ever
persisted; events exist only for the duration of delivery.
*/
package relay

import (
	"encoding/json"
	"time"

	"collabrelay/internal/pkg/randx"
)

// EventType identifies the kind of event carried by an envelope.
type EventType string

// Inbound event types (client to relay).
const (
	TypeJoin        EventType = "join"
	TypeChatMessage EventType = "message"
	TypeTyping      EventType = "typing"
)

// Outbound event types (relay to client).
const (
	TypePresenceSnapshot EventType = "presence-snapshot"
	TypeMessageReceived  EventType = "message-received"
	TypeTypingNotice     EventType = "typing-notice"
	TypeError            EventType = "error"
)

// Event is the outbound envelope written to clients.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// InboundEvent is the envelope read from clients. The payload stays raw until
// the type is known.
type InboundEvent struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// JoinPayload carries a request to enter a project room.
type JoinPayload struct {
	RoomKey     string `json:"roomKey"`
	Identity    string `json:"identity"`
	DisplayName string `json:"displayName"`
}

// ChatPayload carries a chat submission. Only the body is trusted; room and
// sender attribution come from the connection's own state.
type ChatPayload struct {
	RoomKey     string `json:"roomKey,omitempty"`
	Body        string `json:"body"`
	Identity    string `json:"identity,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// TypingPayload carries an inbound typing notice.
type TypingPayload struct {
	RoomKey     string `json:"roomKey,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// ChatMessage is the stamped, ephemeral chat event broadcast to a room.
type ChatMessage struct {
	ID          string `json:"id"`
	RoomKey     string `json:"roomKey"`
	Body        string `json:"body"`
	Identity    string `json:"identity"`
	DisplayName string `json:"displayName"`
	Timestamp   int64  `json:"timestamp"`
}

// TypingNotice is broadcast to every room member except the origin. Receivers
// self-expire the indicator after a fixed display window.
type TypingNotice struct {
	DisplayName string `json:"displayName"`
}

// ErrorPayload is sent to a single client when an inbound event is rejected.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewChatMessage stamps a chat body with a fresh identifier and the current
// time, attributed to the given sender.
func NewChatMessage(roomKey, body, identity, displayName string) ChatMessage {
	return ChatMessage{
		ID:          randx.MessageID(),
		RoomKey:     roomKey,
		Body:        body,
		Identity:    identity,
		DisplayName: displayName,
		Timestamp:   time.Now().UnixMilli(),
	}
}

// marshalEvent encodes an outbound envelope. A marshal failure here is a
// programming error in a payload type; callers treat nil as "skip delivery".
func marshalEvent(eventType EventType, payload any) ([]byte, error) {
	return json.Marshal(Event{Type: eventType, Payload: payload})
}
