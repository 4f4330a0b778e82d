// Package hub is the presence-aware realtime message router: it admits
// authenticated socket connections, binds them to their circle rooms and fans
// chat, location, call-signaling and emergency events out to the right
// connections. All durable state lives behind the injected store interfaces;
// the hub itself owns only the connection registry and the in-flight call
// table.
package hub

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"hearth/internal/alerts"
	"hearth/internal/auth"
	"hearth/internal/chat"
	"hearth/internal/logging"
	"hearth/internal/notify"
	"hearth/internal/user"
)

type Hub struct {
	registry *Registry
	calls    *CallManager

	// alertRooms remembers which rooms each unresolved alert was raised in,
	// so the resolution lands in those same rooms even when the resolver's
	// own room set differs from the sender's.
	alertMu    sync.Mutex
	alertRooms map[uuid.UUID][]string

	authenticator *auth.Authenticator
	users         user.Repository
	messages      chat.Repository
	alerts        alerts.Repository
	notifier      notify.Dispatcher

	upgrader websocket.Upgrader
	now      func() time.Time
}

func NewHub(
	authenticator *auth.Authenticator,
	users user.Repository,
	messages chat.Repository,
	alertStore alerts.Repository,
	notifier notify.Dispatcher,
) *Hub {
	return &Hub{
		registry:      NewRegistry(),
		calls:         NewCallManager(),
		alertRooms:    make(map[uuid.UUID][]string),
		authenticator: authenticator,
		users:         users,
		messages:      messages,
		alerts:        alertStore,
		notifier:      notifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		now: time.Now,
	}
}

// ServeWS authenticates the handshake, upgrades the connection and admits it
// into the registry. Authentication happens strictly before admission: a
// rejected handshake creates no state.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	claimedUserID := r.URL.Query().Get("user_id")

	u, err := h.authenticator.Authenticate(r.Context(), token, claimedUserID)
	if err != nil {
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := newClient(h, conn, u)
	h.connect(c, u)
	c.start()
}

// connect registers the connection, joins the identity's circle rooms and,
// on the user's first connection, announces the online transition.
func (h *Hub) connect(c *Client, u *user.User) {
	first := h.registry.Register(c)
	for _, roomID := range u.CircleIDs {
		h.registry.JoinRoom(c.userID, roomID)
	}
	if first {
		h.markOnline(c.userID)
	}
	logging.Info().
		Str("user_id", c.userID.String()).
		Int("rooms", len(u.CircleIDs)).
		Bool("first_connection", first).
		Msg("client connected")
}

// disconnect is the sole cleanup path: force-end connected calls involving
// the user, drop the connection from the registry and, if it was the last
// one, announce the offline transition to the rooms the user just left.
func (h *Hub) disconnect(c *Client) {
	for _, call := range h.calls.EndCallsWith(c.userID) {
		h.notifyParticipants(call, EventCallEnded)
	}

	rooms := h.registry.RoomsOf(c.userID)
	last := h.registry.Unregister(c)
	close(c.done)
	if last {
		h.markOffline(c.userID, rooms)
	}
	logging.Info().
		Str("user_id", c.userID.String()).
		Bool("last_connection", last).
		Msg("client disconnected")
}

// broadcast delivers an event to every live connection of every member of the
// room, skipping excludeUserID (uuid.Nil excludes no one). Delivery is
// best-effort and non-blocking per recipient.
func (h *Hub) broadcast(roomID, event string, data interface{}, excludeUserID uuid.UUID) {
	msg := OutboundMessage{Event: event, Data: data}
	for _, memberID := range h.registry.MembersOf(roomID) {
		if memberID == excludeUserID {
			continue
		}
		for _, conn := range h.registry.Connections(memberID) {
			if !conn.trySend(msg) {
				logging.Warn().
					Str("event", event).
					Str("user_id", memberID.String()).
					Msg("send buffer full, dropping event")
			}
		}
	}
}

// sendToUser delivers an event to every live connection of one user.
func (h *Hub) sendToUser(userID uuid.UUID, event string, data interface{}) {
	msg := OutboundMessage{Event: event, Data: data}
	for _, conn := range h.registry.Connections(userID) {
		if !conn.trySend(msg) {
			logging.Warn().
				Str("event", event).
				Str("user_id", userID.String()).
				Msg("send buffer full, dropping event")
		}
	}
}

// sendError reports a failure to the originating connection only.
func (h *Hub) sendError(c *Client, detail string) {
	c.trySend(OutboundMessage{Event: EventError, Data: map[string]string{"message": detail}})
}
