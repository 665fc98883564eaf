package runtime

import (
	"planning-poker/contract"
	"sync"
)

type Set map[string]struct{}

// Registry tracks which connections are attached to which participant of
// which room. A participant may have several connections (tabs), the
// connection count tells when the participant is really gone.
type Registry struct {
	mu sync.RWMutex
	// Sessions maps a connection id to its sink.
	Sessions map[string]contract.EventSink
	// RoomMembers maps a room to its users and each user to its connection ids.
	RoomMembers map[string]map[string]Set
}

func NewRegistry() *Registry {
	return &Registry{
		Sessions:    make(map[string]contract.EventSink),
		RoomMembers: make(map[string]map[string]Set),
	}
}

// Attach adds a connection of userID to roomID. Attaching the same
// connection twice is harmless.
func (r *Registry) Attach(roomID, userID, connectionID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Sessions[connectionID] = sink
	users, ok := r.RoomMembers[roomID]
	if !ok {
		users = make(map[string]Set)
		r.RoomMembers[roomID] = users
	}
	if _, ok = users[userID]; !ok {
		users[userID] = make(Set)
	}
	users[userID][connectionID] = struct{}{}
}

// Detach removes one connection and returns how many connections userID
// still has in roomID. Empty entries are removed so nothing leaks.
func (r *Registry) Detach(roomID, userID, connectionID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.Sessions, connectionID)
	users, ok := r.RoomMembers[roomID]
	if !ok {
		return 0
	}
	connections, ok := users[userID]
	if !ok {
		return 0
	}
	delete(connections, connectionID)
	remaining := len(connections)
	if remaining == 0 {
		delete(users, userID)
	}
	if len(users) == 0 {
		delete(r.RoomMembers, roomID)
	}
	return remaining
}

// DetachUser removes every connection of userID from roomID and returns
// their ids.
func (r *Registry) DetachUser(roomID, userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, ok := r.RoomMembers[roomID]
	if !ok {
		return nil
	}
	var detached []string
	for connectionID := range users[userID] {
		delete(r.Sessions, connectionID)
		detached = append(detached, connectionID)
	}
	delete(users, userID)
	if len(users) == 0 {
		delete(r.RoomMembers, roomID)
	}
	return detached
}

func (r *Registry) GetSinksForRoom(roomID string) []contract.EventSink {
	return r.collect(roomID, func(string, string) bool { return true })
}

func (r *Registry) GetSinksForRoomExcept(roomID, connectionID string) []contract.EventSink {
	return r.collect(roomID, func(_, id string) bool { return id != connectionID })
}

func (r *Registry) GetSinksForUser(roomID, userID string) []contract.EventSink {
	return r.collect(roomID, func(uid, _ string) bool { return uid == userID })
}

func (r *Registry) GetSink(connectionID string) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sink, ok := r.Sessions[connectionID]
	return sink, ok
}

func (r *Registry) CountConnections(roomID, userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.RoomMembers[roomID][userID])
}

func (r *Registry) collect(roomID string, keep func(userID, connectionID string) bool) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sinks []contract.EventSink
	for userID, connections := range r.RoomMembers[roomID] {
		for connectionID := range connections {
			if !keep(userID, connectionID) {
				continue
			}
			if sink, ok := r.Sessions[connectionID]; ok {
				sinks = append(sinks, sink)
			}
		}
	}
	return sinks
}
