package runtime

import (
	"context"
	"planning-poker/contract"
	"planning-poker/domain/event"
	"sync"
)

// Session is the server side state of one connection: the name declared
// with user:register and the seat it holds once it joined a room.
// It replaces any global lookup by connection id.
type Session struct {
	mu           sync.Mutex
	connectionID string
	sink         contract.EventSink
	name         string
	roomID       string
	userID       string
}

func NewSession(connectionID string, sink contract.EventSink) *Session {
	return &Session{connectionID: connectionID, sink: sink}
}

func (s *Session) ConnectionID() string { return s.connectionID }

func (s *Session) Sink() contract.EventSink { return s.sink }

// Consume forwards to the transport. The session is what the registry
// holds for its connection.
func (s *Session) Consume(ctx context.Context, e event.DomainEvent) error {
	return s.sink.Consume(ctx, e)
}

func (s *Session) Register(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// Bind records the seat of the connection. The name follows the user so a
// rejoin without register still knows who it is.
func (s *Session) Bind(roomID, userID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomID, s.userID, s.name = roomID, userID, name
}

func (s *Session) Unbind() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomID, s.userID = "", ""
}

// Seat returns the room and user the connection is bound to.
func (s *Session) Seat() (roomID, userID string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID, s.userID, s.roomID != ""
}
