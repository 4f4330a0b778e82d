package hub

import (
	"context"
	"time"

	"github.com/google/uuid"

	"hearth/internal/logging"
)

type presenceEvent struct {
	UserID   string    `json:"userId"`
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"lastSeen"`
}

// markOnline announces the online transition to every room the user belongs
// to and writes the new state through to the user store. The write-through is
// fire-and-forget: a store failure is logged and the realtime path moves on.
func (h *Hub) markOnline(userID uuid.UUID) {
	now := h.now()
	event := presenceEvent{UserID: userID.String(), Online: true, LastSeen: now}
	for _, roomID := range h.registry.RoomsOf(userID) {
		h.broadcast(roomID, EventPresenceOnline, event, userID)
	}
	h.writePresence(userID, true, now)
}

// markOffline announces the offline transition to the rooms the user
// belonged to at disconnect time. The room list is captured by the caller
// before registry cleanup tears the membership down.
func (h *Hub) markOffline(userID uuid.UUID, roomIDs []string) {
	now := h.now()
	event := presenceEvent{UserID: userID.String(), Online: false, LastSeen: now}
	for _, roomID := range roomIDs {
		h.broadcast(roomID, EventPresenceOffline, event, userID)
	}
	h.writePresence(userID, false, now)
}

func (h *Hub) writePresence(userID uuid.UUID, online bool, lastSeen time.Time) {
	go func() {
		if err := h.users.SetPresence(context.Background(), userID, online, lastSeen); err != nil {
			logging.Error().Err(err).Str("user_id", userID.String()).Msg("presence write-through failed")
		}
	}()
}
