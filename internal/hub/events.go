package hub

import (
	"encoding/json"
	"fmt"

	"hearth/infrastructure"
	"hearth/internal/alerts"
	"hearth/internal/chat"
)

// Inbound event kinds.
const (
	EventChatSend         = "chat:send_message"
	EventChatTyping       = "chat:typing"
	EventLocationUpdate   = "location:update"
	EventCallInitiate     = "call:initiate"
	EventCallAnswer       = "call:answer"
	EventCallReject       = "call:reject"
	EventCallEnd          = "call:end"
	EventEmergencyAlert   = "emergency:alert"
	EventEmergencyResolve = "emergency:resolve"
	EventRoomJoin         = "room:join"
	EventRoomLeave        = "room:leave"
)

// Outbound event kinds.
const (
	EventChatMessage       = "chat:message"
	EventChatMessageSent   = "chat:message_sent"
	EventPresenceOnline    = "presence:online"
	EventPresenceOffline   = "presence:offline"
	EventCallIncoming      = "call:incoming"
	EventCallInitiated     = "call:initiated"
	EventCallAnswered      = "call:answered"
	EventCallRejected      = "call:rejected"
	EventCallEnded         = "call:ended"
	EventEmergencyRaised   = "emergency:alert"
	EventEmergencyResolved = "emergency:resolved"
	EventRoomJoined        = "room:joined"
	EventRoomLeft          = "room:left"
	EventError             = "error"
)

// Envelope is the wire frame for every inbound event. Data is decoded into
// the payload struct matching Event; unknown or malformed events are answered
// with an error event to the sender only.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// OutboundMessage is the wire frame for every delivered event.
type OutboundMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

type ChatSendPayload struct {
	RoomID   string          `json:"roomId"`
	Content  string          `json:"content"`
	Kind     string          `json:"kind"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

func (p *ChatSendPayload) validate() error {
	if p.RoomID == "" {
		return fmt.Errorf("%w: roomId is required", infrastructure.ErrInvalidInput)
	}
	if p.Content == "" {
		return fmt.Errorf("%w: content is required", infrastructure.ErrInvalidInput)
	}
	if !chat.ValidKind(p.Kind) {
		return fmt.Errorf("%w: unknown message kind %q", infrastructure.ErrInvalidInput, p.Kind)
	}
	return nil
}

type TypingPayload struct {
	RoomID   string `json:"roomId"`
	IsTyping bool   `json:"isTyping"`
}

func (p *TypingPayload) validate() error {
	if p.RoomID == "" {
		return fmt.Errorf("%w: roomId is required", infrastructure.ErrInvalidInput)
	}
	return nil
}

type LocationPayload struct {
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
	Accuracy *float64 `json:"accuracy"`
}

func (p *LocationPayload) validate() error {
	if p.Lat == nil || p.Lng == nil || p.Accuracy == nil {
		return fmt.Errorf("%w: lat, lng and accuracy are required", infrastructure.ErrInvalidInput)
	}
	return nil
}

type CallInitiatePayload struct {
	ParticipantIDs []string `json:"participantIds"`
}

func (p *CallInitiatePayload) validate() error {
	if len(p.ParticipantIDs) == 0 {
		return fmt.Errorf("%w: participantIds is required", infrastructure.ErrInvalidInput)
	}
	return nil
}

type CallRefPayload struct {
	CallID string `json:"callId"`
}

func (p *CallRefPayload) validate() error {
	if p.CallID == "" {
		return fmt.Errorf("%w: callId is required", infrastructure.ErrInvalidInput)
	}
	return nil
}

type AlertPayload struct {
	Kind     string           `json:"kind"`
	Message  string           `json:"message,omitempty"`
	Location *alerts.GeoPoint `json:"location,omitempty"`
}

func (p *AlertPayload) validate() error {
	if !alerts.ValidKind(p.Kind) {
		return fmt.Errorf("%w: unknown alert kind %q", infrastructure.ErrInvalidInput, p.Kind)
	}
	return nil
}

type AlertResolvePayload struct {
	AlertID string `json:"alertId"`
}

func (p *AlertResolvePayload) validate() error {
	if p.AlertID == "" {
		return fmt.Errorf("%w: alertId is required", infrastructure.ErrInvalidInput)
	}
	return nil
}

type RoomPayload struct {
	RoomID string `json:"roomId"`
}

func (p *RoomPayload) validate() error {
	if p.RoomID == "" {
		return fmt.Errorf("%w: roomId is required", infrastructure.ErrInvalidInput)
	}
	return nil
}
