package event

import (
	"planning-poker/domain"
	"time"
)

// DomainEvent is anything the coordinator sends to a participant.
// EventName is the wire type of the envelope.
type DomainEvent interface {
	EventName() string
}

const (
	UserRegisteredType     = "user:registered"
	UserReconnectedType    = "user:reconnected"
	UserConnectedType      = "user:connected"
	UserDisconnectedType   = "user:disconnected"
	UserRoleChangedType    = "user:role_changed"
	UserKickedType         = "user:kicked"
	UserYouWereKickedType  = "user:you_were_kicked"
	RoomCreatedType        = "room:created"
	RoomJoinedType         = "room:joined"
	RoomUpdatedType        = "room:updated"
	TaskAddedType          = "task:added"
	TaskUpdatedType        = "task:updated"
	TaskOrderUpdatedType   = "task:order_updated"
	TaskCurrentChangedType = "task:current_changed"
	VoteRegisteredType     = "vote:registered"
	VoteUpdatedType        = "vote:updated"
	VotingRevealedType     = "voting:revealed"
	VotingNextTaskType     = "voting:next_task"
	VotingResetType        = "voting:reset"
	TimerSyncType          = "timer:sync"
	ErrorType              = "error"
)

// Envelope is the wire frame in both directions.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

func NewEnvelope(e DomainEvent) Envelope {
	return Envelope{Type: e.EventName(), Data: e}
}

type UserRegistered struct {
	User  domain.User `json:"user"`
	Token string      `json:"token,omitempty"`
}

type UserReconnected struct {
	domain.RoomState
	User domain.User `json:"user"`
}

type UserConnected struct {
	User domain.User `json:"user"`
}

type UserDisconnected struct {
	UserID string `json:"userId"`
}

type UserRoleChanged struct {
	UserID string      `json:"userId"`
	Role   domain.Role `json:"role"`
}

type UserKicked struct {
	UserID string `json:"userId"`
}

type UserYouWereKicked struct {
	Message string `json:"message"`
}

type RoomCreated struct {
	Room domain.Room `json:"room"`
}

type RoomJoined struct {
	domain.RoomState
}

type RoomUpdated struct {
	Room domain.Room `json:"room"`
}

type TaskAdded struct {
	Task domain.Task `json:"task"`
}

type TaskUpdated struct {
	Task domain.Task `json:"task"`
}

type TaskOrderUpdated struct {
	Tasks []domain.Task `json:"tasks"`
}

type TaskCurrentChanged struct {
	TaskID               string `json:"taskId"`
	PreviousTaskDuration *int   `json:"previousTaskDuration,omitempty"`
}

type VoteRegistered struct {
	UserID string `json:"userId"`
}

type VoteUpdated struct {
	UserID string `json:"userId"`
}

type VotingRevealed struct {
	domain.Tally
}

// VotingNextTask carries a nil TaskID once the queue is exhausted.
type VotingNextTask struct {
	TaskID               *string `json:"taskId"`
	PreviousTaskDuration int     `json:"previousTaskDuration"`
}

type VotingReset struct{}

type TimerSync struct {
	StartedAt time.Time `json:"startedAt"`
}

type Error struct {
	Message string `json:"message"`
}

func (UserRegistered) EventName() string     { return UserRegisteredType }
func (UserReconnected) EventName() string    { return UserReconnectedType }
func (UserConnected) EventName() string      { return UserConnectedType }
func (UserDisconnected) EventName() string   { return UserDisconnectedType }
func (UserRoleChanged) EventName() string    { return UserRoleChangedType }
func (UserKicked) EventName() string         { return UserKickedType }
func (UserYouWereKicked) EventName() string  { return UserYouWereKickedType }
func (RoomCreated) EventName() string        { return RoomCreatedType }
func (RoomJoined) EventName() string         { return RoomJoinedType }
func (RoomUpdated) EventName() string        { return RoomUpdatedType }
func (TaskAdded) EventName() string          { return TaskAddedType }
func (TaskUpdated) EventName() string        { return TaskUpdatedType }
func (TaskOrderUpdated) EventName() string   { return TaskOrderUpdatedType }
func (TaskCurrentChanged) EventName() string { return TaskCurrentChangedType }
func (VoteRegistered) EventName() string     { return VoteRegisteredType }
func (VoteUpdated) EventName() string        { return VoteUpdatedType }
func (VotingRevealed) EventName() string     { return VotingRevealedType }
func (VotingNextTask) EventName() string     { return VotingNextTaskType }
func (VotingReset) EventName() string        { return VotingResetType }
func (TimerSync) EventName() string          { return TimerSyncType }
func (Error) EventName() string              { return ErrorType }
