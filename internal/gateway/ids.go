package gateway

import (
	"strings"

	"github.com/google/uuid"
)

func hex32() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// NewRoomID generates a collision-resistant "room_" + 32 hex id.
func NewRoomID() string { return "room_" + hex32() }

// NewMessageID generates a collision-resistant "msg_" + 32 hex id.
func NewMessageID() string { return "msg_" + hex32() }

// NewConnectionID generates a v4 UUID connection id.
func NewConnectionID() string { return uuid.New().String() }
