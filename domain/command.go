package domain

import (
	"strings"

	"github.com/samber/lo"
)

// Inbound payloads. Field tags are checked by auth.ValidateCommand after
// Normalize has trimmed the free text fields.

type Command interface {
	Normalize()
}

type RegisterCommand struct {
	Name string `json:"name" validate:"required,max=64"`
}

type CreateRoomCommand struct {
	Name string `json:"name" validate:"required,max=128"`
}

type JoinRoomCommand struct {
	RoomID string `json:"roomId" validate:"required,max=64"`
}

// RejoinRoomCommand identifies the participant either by ids or by the
// signed token carried in the shareable URL.
type RejoinRoomCommand struct {
	RoomID string `json:"roomId" validate:"required_without=Token,max=64"`
	UserID string `json:"userId" validate:"required_without=Token,max=64"`
	Token  string `json:"token" validate:"required_without_all=RoomID UserID"`
}

type FinishRoomCommand struct{}

type ChangeRoleCommand struct {
	UserID string `json:"userId" validate:"required,max=64"`
	Role   Role   `json:"role" validate:"required,oneof=creator admin voter observer"`
}

type KickCommand struct {
	UserID string `json:"userId" validate:"required,max=64"`
}

type AddTaskCommand struct {
	Title string `json:"title" validate:"required,max=512"`
}

type AddTasksBulkCommand struct {
	Titles []string `json:"titles" validate:"required,min=1,max=500,dive,required,max=512"`
}

type ReorderTaskCommand struct {
	TaskID   string `json:"taskId" validate:"required,max=64"`
	NewOrder *int   `json:"newOrder" validate:"required,min=0"`
}

type UpdateTaskTitleCommand struct {
	TaskID string `json:"taskId" validate:"required,max=64"`
	Title  string `json:"title" validate:"required,max=512"`
}

type SubmitVoteCommand struct {
	Value *int `json:"value" validate:"required,oneof=0 1 2 3 5 8"`
}

type RevealVotesCommand struct{}

type NextTaskCommand struct{}

type ResetVotingCommand struct{}

func (c *RegisterCommand) Normalize()   { c.Name = strings.TrimSpace(c.Name) }
func (c *CreateRoomCommand) Normalize() { c.Name = strings.TrimSpace(c.Name) }
func (c *JoinRoomCommand) Normalize()   { c.RoomID = strings.TrimSpace(c.RoomID) }
func (c *RejoinRoomCommand) Normalize() {
	c.RoomID = strings.TrimSpace(c.RoomID)
	c.UserID = strings.TrimSpace(c.UserID)
	c.Token = strings.TrimSpace(c.Token)
}
func (c *FinishRoomCommand) Normalize() {}
func (c *ChangeRoleCommand) Normalize() { c.UserID = strings.TrimSpace(c.UserID) }
func (c *KickCommand) Normalize()       { c.UserID = strings.TrimSpace(c.UserID) }
func (c *AddTaskCommand) Normalize()    { c.Title = strings.TrimSpace(c.Title) }

// Normalize drops blank titles, a pasted list often ends with empty lines.
func (c *AddTasksBulkCommand) Normalize() {
	c.Titles = CleanTitles(c.Titles)
}
func (c *ReorderTaskCommand) Normalize() { c.TaskID = strings.TrimSpace(c.TaskID) }
func (c *UpdateTaskTitleCommand) Normalize() {
	c.TaskID = strings.TrimSpace(c.TaskID)
	c.Title = strings.TrimSpace(c.Title)
}
func (c *SubmitVoteCommand) Normalize()  {}
func (c *RevealVotesCommand) Normalize() {}
func (c *NextTaskCommand) Normalize()    {}
func (c *ResetVotingCommand) Normalize() {}

// CleanTitles trims every title and drops the empty ones.
func CleanTitles(titles []string) []string {
	return lo.FilterMap(titles, func(title string, _ int) (string, bool) {
		trimmed := strings.TrimSpace(title)
		return trimmed, trimmed != ""
	})
}
