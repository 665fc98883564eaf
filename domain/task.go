package domain

import (
	"math"
	"time"
)

type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskVoting  TaskStatus = "voting"
	TaskVoted   TaskStatus = "voted"
)

// Task is a work item to size. Order is only meaningful among pending tasks.
// Revealed belongs to the round in progress and is cleared whenever a new
// round starts on the task.
type Task struct {
	ID                    string     `json:"id"`
	RoomID                string     `json:"roomId"`
	Title                 string     `json:"title"`
	Order                 int        `json:"order"`
	Status                TaskStatus `json:"status"`
	FinalEstimate         *int       `json:"finalEstimate"`
	VotingStartedAt       *time.Time `json:"votingStartedAt"`
	VotingDurationSeconds *int       `json:"votingDurationSeconds"`
	Revealed              bool       `json:"revealed"`
	CreatedAt             time.Time  `json:"createdAt"`
}

func NewTask(id, roomID, title string, order int, at time.Time) Task {
	return Task{ID: id, RoomID: roomID, Title: title, Order: order, Status: TaskPending, CreatedAt: at}
}

// StartVoting opens a fresh round on the task.
func (t *Task) StartVoting(at time.Time) {
	t.Status = TaskVoting
	t.VotingStartedAt = &at
	t.VotingDurationSeconds = nil
	t.FinalEstimate = nil
	t.Revealed = false
}

// BackToPending drops the running round without recording anything.
func (t *Task) BackToPending() {
	t.Status = TaskPending
	t.VotingStartedAt = nil
	t.VotingDurationSeconds = nil
	t.FinalEstimate = nil
	t.Revealed = false
}

// Close records the outcome of the round and returns the elapsed seconds.
func (t *Task) Close(estimate *int, at time.Time) int {
	duration := 0
	if t.VotingStartedAt != nil {
		duration = int(math.Floor(at.Sub(*t.VotingStartedAt).Seconds()))
		if duration < 0 {
			duration = 0
		}
	}
	t.Status = TaskVoted
	t.FinalEstimate = estimate
	t.VotingDurationSeconds = &duration
	return duration
}

func (t Task) IsVoting() bool  { return t.Status == TaskVoting }
func (t Task) IsPending() bool { return t.Status == TaskPending }
