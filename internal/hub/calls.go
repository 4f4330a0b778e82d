package hub

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type CallStatus string

const (
	CallRinging   CallStatus = "ringing"
	CallConnected CallStatus = "connected"
	CallEnded     CallStatus = "ended"
	CallMissed    CallStatus = "missed"
)

// Call is an ephemeral signaling object. It lives only in memory; a process
// restart drops in-flight calls by design.
type Call struct {
	ID             string        `json:"id"`
	InitiatorID    uuid.UUID     `json:"initiatorId"`
	ParticipantIDs []uuid.UUID   `json:"participantIds"`
	Status         CallStatus    `json:"status"`
	StartedAt      time.Time     `json:"startedAt"`
	EndedAt        *time.Time    `json:"endedAt,omitempty"`
	Duration       time.Duration `json:"duration,omitempty"`
}

func (c *Call) includes(userID uuid.UUID) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// CallManager owns the in-flight call table and enforces the state machine
//
//	ringing -> connected -> ended
//	ringing -> missed
//
// Terminal calls are removed from the table, so any transition on an ended or
// missed call is a not-found no-op. Methods return snapshots; callers never
// hold a reference into the table.
type CallManager struct {
	mu    sync.Mutex
	calls map[string]*Call
	now   func() time.Time
}

func NewCallManager() *CallManager {
	return &CallManager{
		calls: make(map[string]*Call),
		now:   time.Now,
	}
}

// Initiate creates a ringing call. The participant set is ordered with the
// initiator first. The id is derived from creation time and initiator.
func (m *CallManager) Initiate(initiatorID uuid.UUID, participantIDs []uuid.UUID) Call {
	m.mu.Lock()
	defer m.mu.Unlock()

	started := m.now()
	call := &Call{
		ID:             fmt.Sprintf("%d-%s", started.UnixMilli(), initiatorID),
		InitiatorID:    initiatorID,
		ParticipantIDs: append([]uuid.UUID{initiatorID}, participantIDs...),
		Status:         CallRinging,
		StartedAt:      started,
	}
	m.calls[call.ID] = call
	return *call
}

// Answer moves a ringing call to connected. Only a participant may answer;
// call IDs are guessable, so possession of one grants nothing.
func (m *CallManager) Answer(callID string, userID uuid.UUID) (Call, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call, ok := m.calls[callID]
	if !ok || call.Status != CallRinging || !call.includes(userID) {
		return Call{}, false
	}
	call.Status = CallConnected
	return *call, true
}

// Reject moves a ringing call to terminal missed. Participants only.
func (m *CallManager) Reject(callID string, userID uuid.UUID) (Call, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call, ok := m.calls[callID]
	if !ok || call.Status != CallRinging || !call.includes(userID) {
		return Call{}, false
	}
	m.finishLocked(call, CallMissed)
	return *call, true
}

// End moves a connected call to terminal ended. It also accepts a ringing
// call so a caller can cancel before anyone answers. Participants only.
func (m *CallManager) End(callID string, userID uuid.UUID) (Call, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call, ok := m.calls[callID]
	if !ok || (call.Status != CallConnected && call.Status != CallRinging) || !call.includes(userID) {
		return Call{}, false
	}
	m.finishLocked(call, CallEnded)
	return *call, true
}

// EndCallsWith force-ends every connected call that includes the user and
// returns the ended snapshots. Ringing calls are left alone: a callee
// dropping off before answering keeps the call ringing for the others, and
// the caller's UI owns the ringing timeout.
func (m *CallManager) EndCallsWith(userID uuid.UUID) []Call {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ended []Call
	for _, call := range m.calls {
		if call.Status == CallConnected && call.includes(userID) {
			m.finishLocked(call, CallEnded)
			ended = append(ended, *call)
		}
	}
	return ended
}

func (m *CallManager) finishLocked(call *Call, status CallStatus) {
	endedAt := m.now()
	call.Status = status
	call.EndedAt = &endedAt
	// A missed call never happened; only ended calls carry a duration.
	if status == CallEnded {
		call.Duration = endedAt.Sub(call.StartedAt)
	}
	delete(m.calls, call.ID)
}
