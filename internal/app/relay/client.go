/*
Package relay contains the core logic of the real-time collaboration relay.

This file defines the Client struct, representing one live websocket
connection. It runs the read and write pumps, dispatches inbound events to the
Manager, and guarantees that any exit of the read pump routes through
disconnect cleanup.
*/
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"collabrelay/internal/app/membership"
	"collabrelay/internal/pkg/auth/jwt"
	"collabrelay/internal/pkg/errs"
	"collabrelay/internal/pkg/logx"
	"collabrelay/internal/pkg/randx"
)

const (
	// timeout duration for writing to the websocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of an inbound frame.
	maxMessageSize = 8192

	// MaxBodyBytes is the maximum allowed size (in bytes) of a chat message body.
	MaxBodyBytes = 5000

	// membershipCheckTimeout bounds the authorization callout on join.
	membershipCheckTimeout = 3 * time.Second
)

// Client represents a single live websocket connection.
type Client struct {
	// id is the opaque connection identifier, assigned at transport accept.
	id string

	manager *Manager

	// underlying websocket connection.
	conn *websocket.Conn

	// claims carries the verified identity from the admission token, or nil
	// for anonymous connections.
	claims *jwt.Payload

	// checker authorizes join requests against project membership.
	checker membership.Checker

	// send queues outbound frames for the write pump. Fan-out never blocks on
	// it; a full queue drops this recipient's copy.
	send chan []byte

	// room, identity, and displayName are the connection's membership state,
	// guarded by the Manager's mutex. identity is the presence key;
	// displayName is only a rendering attribute.
	room        *Room
	identity    string
	displayName string

	// sendMu orders direct queue writes against closeSend, which may come from
	// another goroutine during shutdown.
	sendMu     sync.Mutex
	sendClosed bool

	logger zerolog.Logger
}

// NewClient constructs a Client for an upgraded websocket connection. claims
// may be nil when anonymous connections are admitted.
func NewClient(manager *Manager, conn *websocket.Conn, claims *jwt.Payload, checker membership.Checker) *Client {
	id := randx.ConnectionID()

	clientLogger := logx.Logger().With().
		Str("component", "Client").
		Str("connection_id", id).
		Logger()

	return &Client{
		id:      id,
		manager: manager,
		conn:    conn,
		claims:  claims,
		checker: checker,
		send:    make(chan []byte, 256),
		logger:  clientLogger,
	}
}

// ID returns the opaque connection identifier.
func (c *Client) ID() string {
	return c.id
}

// closeSend closes the send queue exactly once, releasing the write pump.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if !c.sendClosed {
		c.sendClosed = true
		close(c.send)
	}
}

// enqueue places a frame on the send queue unless it is closed or full.
func (c *Client) enqueue(message []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.sendClosed {
		return false
	}

	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// ReadPump reads frames from the websocket connection until it fails or
// closes, handling heartbeats and dispatching events. Cleanup always runs on
// exit, so any disconnect converges the registry and presence to truth.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (client close/going away)")
			}
			break
		}

		c.processInboundEvent(messageBytes)
	}
}

// cleanupOnDisconnect routes the connection through the Manager's disconnect
// path and closes the transport. Safe to reach twice.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Client connection cleanup starting.")

	c.manager.Disconnect(c)

	if err := c.conn.Close(); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

// processInboundEvent parses an inbound envelope and dispatches by type.
// Malformed frames are dropped with a debug log and answered with an error
// event; they never take the connection down.
func (c *Client) processInboundEvent(messageBytes []byte) {
	var inbound InboundEvent

	if err := json.Unmarshal(messageBytes, &inbound); err != nil {
		c.logger.Debug().Err(err).Msg("Client sent invalid JSON")
		c.SendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	switch inbound.Type {
	case TypeJoin:
		c.handleJoin(inbound.Payload)

	case TypeChatMessage:
		c.handleChatMessage(inbound.Payload)

	case TypeTyping:
		c.handleTyping(inbound.Payload)

	default:
		c.logger.Debug().Str("event_type", string(inbound.Type)).Msg("Client sent unsupported event type")
	}
}

// handleJoin validates a join request, resolves the effective identity,
// authorizes it against project membership, and hands it to the Manager.
func (c *Client) handleJoin(payloadBytes json.RawMessage) {
	var payload JoinPayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		c.logger.Debug().Err(err).Msg("Client sent invalid JOIN payload")
		c.SendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	identity := strings.TrimSpace(payload.Identity)
	displayName := strings.TrimSpace(payload.DisplayName)
	roomKey := strings.TrimSpace(payload.RoomKey)

	// A verified identity from the admission token always wins over the
	// caller-supplied one.
	if c.claims != nil {
		identity = c.claims.UserID
	}

	if roomKey == "" || identity == "" || displayName == "" {
		c.logger.Debug().Msg("Client sent JOIN with missing fields")
		c.SendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), membershipCheckTimeout)
	defer cancel()

	allowed, err := c.checker.Allowed(ctx, identity, roomKey)
	if err != nil {
		c.logger.Error().Err(err).Str("room_key", roomKey).Msg("Membership check failed, rejecting join.")
		c.SendError(errs.NewError(errs.ErrUnknown))
		return
	}
	if !allowed {
		c.logger.Warn().Str("room_key", roomKey).Msg("Join rejected: not a project member.")
		c.SendError(errs.NewError(errs.ErrRoomAccessDenied))
		return
	}

	c.manager.Join(c, roomKey, identity, displayName)
}

// handleChatMessage validates a chat submission and relays it for broadcast.
func (c *Client) handleChatMessage(payloadBytes json.RawMessage) {
	var payload ChatPayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		c.logger.Debug().Err(err).Msg("Client sent invalid MESSAGE payload")
		c.SendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	body := strings.TrimSpace(payload.Body)
	if body == "" {
		c.logger.Debug().Msg("Client sent empty message body")
		c.SendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	if len(body) > MaxBodyBytes {
		c.SendError(errs.NewError(errs.ErrMessageContentTooLong))
		return
	}

	c.manager.Message(c, body)
}

// handleTyping relays a typing notice. The payload carries no trusted data;
// attribution comes from the connection's joined state.
func (c *Client) handleTyping(payloadBytes json.RawMessage) {
	var payload TypingPayload
	if len(payloadBytes) > 0 {
		if err := json.Unmarshal(payloadBytes, &payload); err != nil {
			c.logger.Debug().Err(err).Msg("Client sent invalid TYPING payload")
			return
		}
	}

	c.manager.Typing(c)
}

// WritePump writes queued frames from the send channel to the websocket
// connection and keeps the heartbeat alive.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !c.writeQueuedMessage(message, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedMessage writes one frame pulled from the send channel. Returns
// false when the write pump should terminate.
func (c *Client) writeQueuedMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		c.logger.Error().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

// writePingMessage sends a periodic Ping to maintain the heartbeat. Returns
// false when the write pump should terminate.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Debug().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// SendError queues an error event for this client only.
func (c *Client) SendError(err error) {
	var code int
	var message string

	var customErr *errs.CustomError
	if errors.As(err, &customErr) {
		code = customErr.Code
		message = customErr.Message
	} else {
		code = errs.ErrUnknown
		message = "Internal server error."
	}

	messageBytes, marshalErr := marshalEvent(TypeError, ErrorPayload{Code: code, Message: message})
	if marshalErr != nil {
		c.logger.Error().Err(marshalErr).Msg("Failed to build error event")
		return
	}

	if !c.enqueue(messageBytes) {
		c.logger.Warn().Msg("Client send queue full or closed, dropping error event")
	}
}
