package hub

import (
	"sync"

	"github.com/google/uuid"
)

// Registry tracks live connections per user and room membership in both
// directions. A user may hold several connections at once (one per device);
// room membership is per user, not per connection.
//
// Invariant: userID appears in roomUsers[roomID] exactly when roomID appears
// in userRooms[userID]. Every mutation happens under one mutex so the pair of
// indices can never be observed out of step.
type Registry struct {
	mu        sync.RWMutex
	conns     map[uuid.UUID]map[*Client]struct{}
	userRooms map[uuid.UUID]map[string]struct{}
	roomUsers map[string]map[uuid.UUID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		conns:     make(map[uuid.UUID]map[*Client]struct{}),
		userRooms: make(map[uuid.UUID]map[string]struct{}),
		roomUsers: make(map[string]map[uuid.UUID]struct{}),
	}
}

// Register adds a connection and reports whether it is the user's first live
// connection (the online transition).
func (r *Registry) Register(c *Client) (first bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		r.conns[c.userID] = set
	}
	set[c] = struct{}{}
	return !ok
}

// Unregister removes a connection and reports whether it was the user's last
// one. Room bookkeeping for the user is torn down only on the last
// disconnect, so a phone going to sleep does not evict the user's tablet
// from its rooms.
func (r *Registry) Unregister(c *Client) (last bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[c.userID]
	if !ok {
		return false
	}
	delete(set, c)
	if len(set) > 0 {
		return false
	}
	delete(r.conns, c.userID)

	for roomID := range r.userRooms[c.userID] {
		r.removeMemberLocked(roomID, c.userID)
	}
	delete(r.userRooms, c.userID)
	return true
}

// Connections returns the user's live connections, or nil if offline.
func (r *Registry) Connections(userID uuid.UUID) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.conns[userID]
	if len(set) == 0 {
		return nil
	}
	out := make([]*Client, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

func (r *Registry) JoinRoom(userID uuid.UUID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[userID]; !ok {
		return // no live connection, nothing to index
	}
	rooms, ok := r.userRooms[userID]
	if !ok {
		rooms = make(map[string]struct{})
		r.userRooms[userID] = rooms
	}
	rooms[roomID] = struct{}{}

	members, ok := r.roomUsers[roomID]
	if !ok {
		members = make(map[uuid.UUID]struct{})
		r.roomUsers[roomID] = members
	}
	members[userID] = struct{}{}
}

func (r *Registry) LeaveRoom(userID uuid.UUID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms, ok := r.userRooms[userID]
	if !ok {
		return
	}
	delete(rooms, roomID)
	if len(rooms) == 0 {
		delete(r.userRooms, userID)
	}
	r.removeMemberLocked(roomID, userID)
}

func (r *Registry) RoomsOf(userID uuid.UUID) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := r.userRooms[userID]
	if len(rooms) == 0 {
		return nil
	}
	out := make([]string, 0, len(rooms))
	for roomID := range rooms {
		out = append(out, roomID)
	}
	return out
}

func (r *Registry) MembersOf(roomID string) []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.roomUsers[roomID]
	if len(members) == 0 {
		return nil
	}
	out := make([]uuid.UUID, 0, len(members))
	for userID := range members {
		out = append(out, userID)
	}
	return out
}

func (r *Registry) InRoom(userID uuid.UUID, roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.userRooms[userID][roomID]
	return ok
}

func (r *Registry) removeMemberLocked(roomID string, userID uuid.UUID) {
	members, ok := r.roomUsers[roomID]
	if !ok {
		return
	}
	delete(members, userID)
	if len(members) == 0 {
		delete(r.roomUsers, roomID)
	}
}
