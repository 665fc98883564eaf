package domain

import "time"

type RoomStatus string

const (
	RoomActive   RoomStatus = "active"
	RoomFinished RoomStatus = "finished"
)

// Room is one estimation session. CurrentTaskID points at the single task
// being voted on, if any.
type Room struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Status        RoomStatus `json:"status"`
	CurrentTaskID *string    `json:"currentTaskId"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func NewRoom(id, name string, at time.Time) Room {
	return Room{ID: id, Name: name, Status: RoomActive, CreatedAt: at}
}

func (r Room) IsFinished() bool {
	return r.Status == RoomFinished
}

func (r *Room) SetCurrentTask(taskID string) {
	r.CurrentTaskID = &taskID
}

func (r *Room) ClearCurrentTask() {
	r.CurrentTaskID = nil
}

// RoomState is the snapshot handed to a client when it joins or comes back.
type RoomState struct {
	Room         Room     `json:"room"`
	Users        []User   `json:"users"`
	Tasks        []Task   `json:"tasks"`
	Votes        []Vote   `json:"votes"`
	VotedUserIDs []string `json:"votedUserIds"`
}

// RoomSummary is the end of session report.
type RoomSummary struct {
	RoomID             string `json:"roomId"`
	Slowest            []Task `json:"slowest"`
	TotalVotingSeconds int    `json:"totalVotingSeconds"`
	VotedTasks         int    `json:"votedTasks"`
}
