// Package gateway implements the Gateway Core: the HTTP/WebSocket
// surface, in-memory room/message/member state, the admission and
// connection semaphores, and the AI-addressed-turn wiring.
package gateway

import "time"

// Room is a named collection of members; membership and messages are
// tracked separately under their own locks (see State).
type Room struct {
	ID    string
	Name  string
	Topic string
}

// StoredMessage is the room-scoped view of a message returned by the
// HTTP surface: a plain sender string, not a parsed MemberId — the
// Gateway Core accepts any non-empty sender token over HTTP.
type StoredMessage struct {
	ID        string
	Sender    string
	Text      string
	ReplyTo   string
	CreatedAt time.Time
}
