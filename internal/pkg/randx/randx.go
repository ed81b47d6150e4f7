/*
Package randx provides generation of the unique identifiers used by the relay:
connection identifiers assigned at transport accept and message identifiers
stamped onto broadcast chat messages.
*/
package randx

import "github.com/google/uuid"

// MessageID generates a UUID v4 string used as the identifier of a chat message.
func MessageID() string {
	return uuid.New().String()
}

// ConnectionID generates a UUID v4 string identifying a single websocket connection.
func ConnectionID() string {
	return uuid.New().String()
}
