// Package domain contains the core concepts of an estimation session.
// No runtime, network, or storage logic should be added here.
package domain

import "time"

type Role string

const (
	RoleCreator  Role = "creator"
	RoleAdmin    Role = "admin"
	RoleVoter    Role = "voter"
	RoleObserver Role = "observer"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleCreator, RoleAdmin, RoleVoter, RoleObserver:
		return true
	}
	return false
}

// CanManage reports whether the role may drive the session (tasks, reveal,
// next, reset, finish).
func (r Role) CanManage() bool {
	return r == RoleCreator || r == RoleAdmin
}

// CountsForVote reports whether a connected user with this role is expected
// to vote before the round can auto reveal.
func (r Role) CountsForVote() bool {
	return r == RoleCreator || r == RoleAdmin || r == RoleVoter
}

// User is a participant of one room. Users are never removed while the room
// is active, a disconnect only flips Connected.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	RoomID    string    `json:"roomId"`
	Connected bool      `json:"connected"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewUser(id, roomID, name string, role Role, at time.Time) User {
	return User{ID: id, Name: name, RoomID: roomID, Connected: true, Role: role, CreatedAt: at}
}
