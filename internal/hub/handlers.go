package hub

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"hearth/internal/alerts"
	"hearth/internal/chat"
	"hearth/internal/logging"
	"hearth/internal/notify"
)

// dispatch routes one inbound frame by event kind. Validation failures and
// unknown events are answered to the sender only; they never reach other
// connections.
func (h *Hub) dispatch(c *Client, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		h.sendError(c, "invalid JSON frame")
		return
	}

	switch env.Event {
	case EventChatSend:
		h.handleChatSend(c, env.Data)
	case EventChatTyping:
		h.handleTyping(c, env.Data)
	case EventLocationUpdate:
		h.handleLocation(c, env.Data)
	case EventCallInitiate:
		h.handleCallInitiate(c, env.Data)
	case EventCallAnswer:
		h.handleCallTransition(c, env.Data, h.calls.Answer, EventCallAnswered)
	case EventCallReject:
		h.handleCallTransition(c, env.Data, h.calls.Reject, EventCallRejected)
	case EventCallEnd:
		h.handleCallTransition(c, env.Data, h.calls.End, EventCallEnded)
	case EventEmergencyAlert:
		h.handleEmergencyAlert(c, env.Data)
	case EventEmergencyResolve:
		h.handleEmergencyResolve(c, env.Data)
	case EventRoomJoin:
		h.handleRoomJoin(c, env.Data)
	case EventRoomLeave:
		h.handleRoomLeave(c, env.Data)
	default:
		h.sendError(c, "unknown event: "+env.Event)
	}
}

type chatMessageEvent struct {
	ID           string          `json:"id"`
	RoomID       string          `json:"roomId"`
	SenderID     string          `json:"senderId"`
	SenderName   string          `json:"senderName"`
	SenderAvatar string          `json:"senderAvatar,omitempty"`
	Content      string          `json:"content"`
	Kind         string          `json:"kind"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	CreatedAt    string          `json:"createdAt"`
}

func (h *Hub) handleChatSend(c *Client, data json.RawMessage) {
	var p ChatSendPayload
	if err := json.Unmarshal(data, &p); err != nil {
		h.sendError(c, "malformed chat:send_message payload")
		return
	}
	if err := p.validate(); err != nil {
		h.sendError(c, err.Error())
		return
	}
	if !h.registry.InRoom(c.userID, p.RoomID) {
		h.sendError(c, "not a member of room "+p.RoomID)
		return
	}

	msg := &chat.Message{
		ID:           uuid.New(),
		RoomID:       p.RoomID,
		SenderID:     c.userID,
		SenderName:   c.name,
		SenderAvatar: c.avatar,
		Content:      p.Content,
		Kind:         p.Kind,
		Metadata:     p.Metadata,
		CreatedAt:    h.now(),
	}

	// Persist off the realtime path. A failed write is logged and the
	// message stays delivered-but-unsaved; see the store contract.
	go func() {
		if err := h.messages.SaveMessage(context.Background(), msg); err != nil {
			logging.Error().Err(err).Str("message_id", msg.ID.String()).Msg("message persistence failed")
		}
	}()

	event := chatMessageEvent{
		ID:           msg.ID.String(),
		RoomID:       msg.RoomID,
		SenderID:     msg.SenderID.String(),
		SenderName:   msg.SenderName,
		SenderAvatar: msg.SenderAvatar,
		Content:      msg.Content,
		Kind:         msg.Kind,
		Metadata:     msg.Metadata,
		CreatedAt:    msg.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
	h.broadcast(p.RoomID, EventChatMessage, event, c.userID)

	// The sender gets an ack on the originating connection, never an echo.
	c.trySend(OutboundMessage{Event: EventChatMessageSent, Data: map[string]string{
		"id":        msg.ID.String(),
		"roomId":    msg.RoomID,
		"createdAt": event.CreatedAt,
	}})
}

func (h *Hub) handleTyping(c *Client, data json.RawMessage) {
	var p TypingPayload
	if err := json.Unmarshal(data, &p); err != nil {
		h.sendError(c, "malformed chat:typing payload")
		return
	}
	if err := p.validate(); err != nil {
		h.sendError(c, err.Error())
		return
	}
	if !h.registry.InRoom(c.userID, p.RoomID) {
		h.sendError(c, "not a member of room "+p.RoomID)
		return
	}
	h.broadcast(p.RoomID, EventChatTyping, map[string]interface{}{
		"roomId":   p.RoomID,
		"userId":   c.userID.String(),
		"userName": c.name,
		"isTyping": p.IsTyping,
	}, c.userID)
}

func (h *Hub) handleLocation(c *Client, data json.RawMessage) {
	var p LocationPayload
	if err := json.Unmarshal(data, &p); err != nil {
		h.sendError(c, "malformed location:update payload")
		return
	}
	if err := p.validate(); err != nil {
		h.sendError(c, err.Error())
		return
	}
	event := map[string]interface{}{
		"userId":   c.userID.String(),
		"lat":      *p.Lat,
		"lng":      *p.Lng,
		"accuracy": *p.Accuracy,
		"at":       h.now().UTC(),
	}
	for _, roomID := range h.registry.RoomsOf(c.userID) {
		h.broadcast(roomID, EventLocationUpdate, event, c.userID)
	}
}

func (h *Hub) handleCallInitiate(c *Client, data json.RawMessage) {
	var p CallInitiatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		h.sendError(c, "malformed call:initiate payload")
		return
	}
	if err := p.validate(); err != nil {
		h.sendError(c, err.Error())
		return
	}
	participantIDs := make([]uuid.UUID, 0, len(p.ParticipantIDs))
	for _, raw := range p.ParticipantIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.sendError(c, "invalid participant id: "+raw)
			return
		}
		if id != c.userID {
			participantIDs = append(participantIDs, id)
		}
	}
	if len(participantIDs) == 0 {
		h.sendError(c, "call needs at least one other participant")
		return
	}

	call := h.calls.Initiate(c.userID, participantIDs)

	// Calls are addressed to users, not rooms: the callees may share no
	// room with the initiator.
	for _, id := range participantIDs {
		h.sendToUser(id, EventCallIncoming, call)
	}
	c.trySend(OutboundMessage{Event: EventCallInitiated, Data: call})
}

// handleCallTransition covers answer/reject/end, which only differ in the
// state transition applied and the event broadcast on success. A transition
// on an unknown or terminal call, or by a non-participant, is a no-op with a
// diagnostic to the caller.
func (h *Hub) handleCallTransition(c *Client, data json.RawMessage, transition func(string, uuid.UUID) (Call, bool), event string) {
	var p CallRefPayload
	if err := json.Unmarshal(data, &p); err != nil {
		h.sendError(c, "malformed call payload")
		return
	}
	if err := p.validate(); err != nil {
		h.sendError(c, err.Error())
		return
	}
	call, ok := transition(p.CallID, c.userID)
	if !ok {
		h.sendError(c, "no such call in a compatible state: "+p.CallID)
		return
	}
	h.notifyParticipants(call, event)
}

func (h *Hub) notifyParticipants(call Call, event string) {
	for _, id := range call.ParticipantIDs {
		h.sendToUser(id, event, call)
	}
}

type alertEvent struct {
	ID         string           `json:"id"`
	SenderID   string           `json:"senderId"`
	SenderName string           `json:"senderName"`
	Kind       string           `json:"kind"`
	Message    string           `json:"message,omitempty"`
	Location   *alerts.GeoPoint `json:"location,omitempty"`
	CreatedAt  string           `json:"createdAt"`
}

func (h *Hub) handleEmergencyAlert(c *Client, data json.RawMessage) {
	var p AlertPayload
	if err := json.Unmarshal(data, &p); err != nil {
		h.sendError(c, "malformed emergency:alert payload")
		return
	}
	if err := p.validate(); err != nil {
		h.sendError(c, err.Error())
		return
	}

	alert := &alerts.Alert{
		ID:         uuid.New(),
		SenderID:   c.userID,
		SenderName: c.name,
		Kind:       p.Kind,
		Message:    p.Message,
		Location:   p.Location,
		CreatedAt:  h.now(),
	}

	// Persist first, but a store failure must not suppress the broadcast:
	// an unsaved alert that reached the circle beats a saved one that
	// reached nobody.
	if err := h.alerts.SaveAlert(context.Background(), alert); err != nil {
		logging.Error().Err(err).Str("alert_id", alert.ID.String()).Msg("alert persistence failed")
	}

	event := alertEvent{
		ID:         alert.ID.String(),
		SenderID:   alert.SenderID.String(),
		SenderName: alert.SenderName,
		Kind:       alert.Kind,
		Message:    alert.Message,
		Location:   alert.Location,
		CreatedAt:  alert.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}

	rooms := h.registry.RoomsOf(c.userID)
	h.alertMu.Lock()
	h.alertRooms[alert.ID] = rooms
	h.alertMu.Unlock()

	recipients := make(map[uuid.UUID]struct{})
	for _, roomID := range rooms {
		// The sender's own devices receive the alert too; it doubles as
		// the delivery confirmation.
		h.broadcast(roomID, EventEmergencyRaised, event, uuid.Nil)
		for _, memberID := range h.registry.MembersOf(roomID) {
			if memberID != c.userID {
				recipients[memberID] = struct{}{}
			}
		}
	}

	// Out-of-band fan-out runs detached so a slow push provider can never
	// stall the socket path.
	userIDs := make([]uuid.UUID, 0, len(recipients))
	for id := range recipients {
		userIDs = append(userIDs, id)
	}
	go func() {
		err := h.notifier.Notify(context.Background(), userIDs, notify.Payload{
			Title: "Emergency alert from " + alert.SenderName,
			Body:  alert.Message,
			Data:  map[string]string{"alertId": alert.ID.String(), "kind": alert.Kind},
		})
		if err != nil {
			logging.Error().Err(err).Str("alert_id", alert.ID.String()).Msg("out-of-band alert notification failed")
		}
	}()
}

func (h *Hub) handleEmergencyResolve(c *Client, data json.RawMessage) {
	var p AlertResolvePayload
	if err := json.Unmarshal(data, &p); err != nil {
		h.sendError(c, "malformed emergency:resolve payload")
		return
	}
	if err := p.validate(); err != nil {
		h.sendError(c, err.Error())
		return
	}
	alertID, err := uuid.Parse(p.AlertID)
	if err != nil {
		h.sendError(c, "invalid alert id: "+p.AlertID)
		return
	}

	resolvedAt := h.now()
	if err := h.alerts.UpdateAlert(context.Background(), alertID, c.userID, resolvedAt); err != nil {
		logging.Error().Err(err).Str("alert_id", alertID.String()).Msg("alert resolution persistence failed")
	}

	// The resolution goes to the rooms the alert was raised in, not the
	// resolver's rooms; the two sets differ whenever the resolver shares
	// only part of the sender's circles.
	h.alertMu.Lock()
	rooms, known := h.alertRooms[alertID]
	delete(h.alertRooms, alertID)
	h.alertMu.Unlock()
	if !known {
		// Raised before a restart, or by another instance. The resolver's
		// rooms are the best remaining approximation.
		rooms = h.registry.RoomsOf(c.userID)
	}

	event := map[string]interface{}{
		"alertId":    alertID.String(),
		"resolvedBy": c.userID.String(),
		"resolvedAt": resolvedAt.UTC(),
	}
	for _, roomID := range rooms {
		h.broadcast(roomID, EventEmergencyResolved, event, uuid.Nil)
	}
}

func (h *Hub) handleRoomJoin(c *Client, data json.RawMessage) {
	var p RoomPayload
	if err := json.Unmarshal(data, &p); err != nil {
		h.sendError(c, "malformed room:join payload")
		return
	}
	if err := p.validate(); err != nil {
		h.sendError(c, err.Error())
		return
	}
	h.registry.JoinRoom(c.userID, p.RoomID)
	h.sendToUser(c.userID, EventRoomJoined, map[string]string{"roomId": p.RoomID})
}

func (h *Hub) handleRoomLeave(c *Client, data json.RawMessage) {
	var p RoomPayload
	if err := json.Unmarshal(data, &p); err != nil {
		h.sendError(c, "malformed room:leave payload")
		return
	}
	if err := p.validate(); err != nil {
		h.sendError(c, err.Error())
		return
	}
	h.registry.LeaveRoom(c.userID, p.RoomID)
	h.sendToUser(c.userID, EventRoomLeft, map[string]string{"roomId": p.RoomID})
}
