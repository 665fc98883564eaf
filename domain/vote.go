package domain

import (
	"slices"
	"time"
)

// VoteValues is the fixed card deck, in ascending order.
var VoteValues = []int{0, 1, 2, 3, 5, 8}

func IsVoteValue(v int) bool {
	return slices.Contains(VoteValues, v)
}

// Vote is unique per (TaskID, UserID).
type Vote struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"taskId"`
	UserID    string    `json:"userId"`
	Value     int       `json:"value"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Tally is the revealed outcome of a round. Percentages only lists values
// that received at least one vote.
type Tally struct {
	Votes         []Vote      `json:"votes"`
	FinalEstimate *int        `json:"finalEstimate"`
	Percentages   map[int]int `json:"percentages"`
}
