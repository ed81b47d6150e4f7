/*
Package relay contains the core logic of the real-time collaboration relay.

This file defines the Room struct. A room is not a persisted entity: it exists
only as the set of live connections sharing a project key, plus the presence
set derived from them. Rooms are created implicitly on first join and dropped
by the Manager when their last member leaves.
*/
package relay

import (
	"sort"

	"github.com/rs/zerolog"

	"collabrelay/internal/pkg/logx"
)

// Room represents the fan-out scope for one project. All fields are guarded by
// the Manager's mutex; Room has no locking of its own.
type Room struct {
	// Key is the project identifier this room fans out for.
	Key string

	// clients holds every live connection joined to the room, keyed by
	// connection ID. Multiple connections may carry the same identity.
	clients map[string]*Client

	logger zerolog.Logger
}

// newRoom creates an empty room for the given project key.
func newRoom(key string) *Room {
	return &Room{
		Key:     key,
		clients: make(map[string]*Client),
		logger:  logx.Logger().With().Str("component", "Room").Str("room_key", key).Logger(),
	}
}

// size returns the number of live connections in the room.
func (r *Room) size() int {
	return len(r.clients)
}

// presenceNames recomputes the presence set from the live connections: one
// display name per distinct identity, sorted for a stable snapshot. This is
// always derived, never cached, so it cannot drift from the registry.
func (r *Room) presenceNames() []string {
	byIdentity := make(map[string]string, len(r.clients))
	for _, c := range r.clients {
		if _, seen := byIdentity[c.identity]; !seen || c.displayName < byIdentity[c.identity] {
			byIdentity[c.identity] = c.displayName
		}
	}

	names := make([]string, 0, len(byIdentity))
	for _, name := range byIdentity {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// broadcast delivers raw bytes to every connection in the room except the one
// identified by excludeID (empty means no exclusion). Delivery is best-effort:
// a full send queue drops that recipient's copy without affecting the others.
func (r *Room) broadcast(message []byte, excludeID string) {
	for id, c := range r.clients {
		if id == excludeID {
			continue
		}

		select {
		case c.send <- message:
		default:
			r.logger.Warn().
				Str("connection_id", id).
				Msg("Client send queue full, dropping event for this recipient.")
		}
	}
}

// broadcastEvent marshals an envelope and fans it out.
func (r *Room) broadcastEvent(eventType EventType, payload any, excludeID string) {
	message, err := marshalEvent(eventType, payload)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("event_type", string(eventType)).
			Msg("Error marshaling event for broadcast.")
		return
	}

	r.broadcast(message, excludeID)
}

// broadcastPresence emits the current presence snapshot to the whole room.
func (r *Room) broadcastPresence() {
	r.broadcastEvent(TypePresenceSnapshot, r.presenceNames(), "")
}
