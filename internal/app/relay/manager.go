/*
Package relay contains the core logic of the real-time collaboration relay.

This file defines the Manager struct, the lifecycle controller for every
connection and room. It is the only component that mutates shared state: the
connection registry and the per-room membership both live behind its mutex, so
no two join/leave transitions for a room can interleave their read-modify-write
of the presence set.
*/
package relay

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"collabrelay/internal/pkg/logx"
)

// Manager orchestrates connection registration, room membership, presence
// updates, and broadcast fan-out.
type Manager struct {
	// mu guards conns, rooms, every Room's clients map, and the room-related
	// fields of every registered Client.
	mu sync.RWMutex

	// conns is the connection registry: every live connection, keyed by
	// connection ID, whether or not it has joined a room.
	conns map[string]*Client

	// rooms holds the live rooms, keyed by project identifier. A room exists
	// here exactly while it has at least one member.
	rooms map[string]*Room

	// closed refuses registrations after Shutdown.
	closed bool

	logger zerolog.Logger
}

// NewManager constructs and returns a new Manager instance.
func NewManager() *Manager {
	return &Manager{
		conns:  make(map[string]*Client),
		rooms:  make(map[string]*Room),
		logger: logx.Logger().With().Str("component", "Manager").Logger(),
	}
}

// Register adds a freshly accepted connection to the registry. The connection
// has no room yet, so nothing is visible to other clients.
func (m *Manager) Register(c *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		c.closeSend()
		return
	}

	m.conns[c.id] = c

	m.logger.Debug().
		Str("connection_id", c.id).
		Int("total_connections", len(m.conns)).
		Msg("Connection registered.")
}

// Join places the connection into the room for roomKey under the given
// identity. A connection holds at most one membership: joining while already
// in a room detaches the old membership atomically with establishing the new
// one, so no stale presence entry can leak.
func (m *Manager) Join(c *Client, roomKey, identity, displayName string) {
	roomKey = strings.TrimSpace(roomKey)
	identity = strings.TrimSpace(identity)

	if roomKey == "" || identity == "" {
		c.logger.Debug().Msg("Join dropped: missing room key or identity.")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// A disconnect may have raced the join; the registry is the truth.
	if _, ok := m.conns[c.id]; !ok {
		c.logger.Debug().Msg("Join dropped: connection already closed.")
		return
	}

	if c.room != nil && c.room.Key != roomKey {
		m.detachLocked(c)
	}

	room, ok := m.rooms[roomKey]
	if !ok {
		room = newRoom(roomKey)
		m.rooms[roomKey] = room
		m.logger.Info().Str("room_key", roomKey).Msg("Room created on first join.")
	}

	c.room = room
	c.identity = identity
	c.displayName = displayName
	room.clients[c.id] = c

	c.logger.Info().
		Str("room_key", roomKey).
		Int("room_size", room.size()).
		Msg("Connection joined room.")

	room.broadcastPresence()
}

// Message stamps the body into a chat message attributed to the connection and
// broadcasts it to the whole room, sender included. Messages from connections
// that have not joined a room are dropped.
func (m *Manager) Message(c *Client, body string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	room := c.room
	if room == nil {
		c.logger.Debug().Msg("Message dropped: connection has not joined a room.")
		return
	}

	msg := NewChatMessage(room.Key, body, c.identity, c.displayName)
	room.broadcastEvent(TypeMessageReceived, msg, "")
}

// Typing broadcasts a typing notice to every other connection in the room.
// The origin is excluded; receivers expire the indicator on their own.
func (m *Manager) Typing(c *Client) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	room := c.room
	if room == nil {
		c.logger.Debug().Msg("Typing dropped: connection has not joined a room.")
		return
	}

	room.broadcastEvent(TypeTypingNotice, TypingNotice{DisplayName: c.displayName}, c.id)
}

// Disconnect removes the connection from the registry and, if it had joined a
// room, from that room, recomputing presence for the remaining members. It is
// idempotent: a second call for an already-removed connection is a no-op.
func (m *Manager) Disconnect(c *Client) {
	m.mu.Lock()

	if _, ok := m.conns[c.id]; !ok {
		m.mu.Unlock()
		return
	}
	delete(m.conns, c.id)

	m.detachLocked(c)

	m.mu.Unlock()

	c.closeSend()

	c.logger.Debug().Msg("Connection removed from registry.")
}

// detachLocked removes the connection from its current room, drops the room if
// it became empty, and otherwise broadcasts the recomputed presence snapshot.
// Callers must hold m.mu for writing.
func (m *Manager) detachLocked(c *Client) {
	room := c.room
	if room == nil {
		return
	}

	delete(room.clients, c.id)
	c.room = nil

	if room.size() == 0 {
		delete(m.rooms, room.Key)
		m.logger.Info().Str("room_key", room.Key).Msg("Last member left. Room removed.")
		return
	}

	room.broadcastPresence()
}

// Presence returns the current presence snapshot for a room, or nil if the
// room does not exist.
func (m *Manager) Presence(roomKey string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	room, ok := m.rooms[roomKey]
	if !ok {
		return nil
	}
	return room.presenceNames()
}

// RoomCount returns the number of live rooms.
func (m *Manager) RoomCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.rooms)
}

// ConnectionCount returns the number of registered connections.
func (m *Manager) ConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.conns)
}

// Shutdown closes every registered connection's send queue and clears all
// state. Further registrations are refused.
func (m *Manager) Shutdown() {
	m.mu.Lock()

	m.closed = true
	conns := make([]*Client, 0, len(m.conns))
	for _, c := range m.conns {
		c.room = nil
		conns = append(conns, c)
	}
	m.conns = make(map[string]*Client)
	m.rooms = make(map[string]*Room)

	m.mu.Unlock()

	for _, c := range conns {
		c.closeSend()
	}

	m.logger.Info().Int("connections_closed", len(conns)).Msg("Manager shutdown complete.")
}
