package event

// Scope selects the connections an outbound event is delivered to.
type Scope int

const (
	// ScopeOrigin is the connection that sent the inbound action.
	ScopeOrigin Scope = iota
	// ScopeRoom is every connection attached to the room.
	ScopeRoom
	// ScopeOthers is every connection of the room except the origin.
	ScopeOthers
	// ScopeUser is every connection of one participant.
	ScopeUser
)

func (s Scope) String() string {
	switch s {
	case ScopeOrigin:
		return "origin"
	case ScopeRoom:
		return "room"
	case ScopeOthers:
		return "others"
	case ScopeUser:
		return "user"
	}
	return "unknown"
}

// Outbound is an event addressed to a subset of a room.
type Outbound struct {
	Scope  Scope
	UserID string
	Event  DomainEvent
}

// Delivery is the telemetry record of one fanned out event.
type Delivery struct {
	RoomID    string
	Name      string
	Scope     Scope
	Delivered int
	Failed    int
}
