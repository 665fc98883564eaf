package event

import "encoding/json"

// Inbound action names. voting:reset is shared with its outbound
// counterpart, see VotingResetType.
const (
	UserRegisterType    = "user:register"
	RoomCreateType      = "room:create"
	RoomJoinType        = "room:join"
	RoomRejoinType      = "room:rejoin"
	RoomFinishType      = "room:finish"
	UserChangeRoleType  = "user:change_role"
	UserKickType        = "user:kick"
	TaskAddType         = "task:add"
	TaskAddBulkType     = "task:add_bulk"
	TaskReorderType     = "task:reorder"
	TaskUpdateTitleType = "task:update_title"
	VoteSubmitType      = "vote:submit"
	VotingRevealType    = "voting:reveal"
	VotingNextType      = "voting:next"
)

// InboundEnvelope keeps the payload raw until the action is known.
type InboundEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}
