package chat

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Message kinds recognized by the gateway.
const (
	KindText      = "text"
	KindImage     = "image"
	KindVoice     = "voice"
	KindLocation  = "location"
	KindEmergency = "emergency"
)

func ValidKind(kind string) bool {
	switch kind {
	case KindText, KindImage, KindVoice, KindLocation, KindEmergency:
		return true
	}
	return false
}

// Message is a chat message addressed to a room. SenderName and SenderAvatar
// are snapshots taken at send time; they are not re-resolved on read.
type Message struct {
	ID           uuid.UUID
	RoomID       string
	SenderID     uuid.UUID
	SenderName   string
	SenderAvatar string
	Content      string
	Kind         string
	Metadata     json.RawMessage
	CreatedAt    time.Time
	Read         bool
}
