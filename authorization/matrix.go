// Package authorization decides whether a participant may perform an action.
// It has no side effects and reads nothing but its arguments.
package authorization

import (
	"planning-poker/domain"
	"planning-poker/errors"
)

type Action string

const (
	ActionChangeRole    Action = "change-role"
	ActionKick          Action = "kick"
	ActionAddTask       Action = "add-task"
	ActionAddTasksBulk  Action = "add-tasks-bulk"
	ActionReorderTask   Action = "reorder-task"
	ActionEditTaskTitle Action = "edit-task-title"
	ActionSubmitVote    Action = "submit-vote"
	ActionRevealVotes   Action = "reveal-votes"
	ActionNextTask      Action = "next-task"
	ActionResetVoting   Action = "reset-voting"
	ActionFinishRoom    Action = "finish-room"
)

type Reason string

const (
	ReasonNotAuthorized       Reason = "not-authorized"
	ReasonTargetImmutable     Reason = "target-immutable"
	ReasonInvalidRoleForActor Reason = "invalid-role-for-actor"
)

type Actor struct {
	ID        string
	Role      domain.Role
	Connected bool
}

func ActorOf(user domain.User) Actor {
	return Actor{ID: user.ID, Role: user.Role, Connected: user.Connected}
}

// Request is what is being asked. Target and NewRole are only read by the
// actions aimed at another participant.
type Request struct {
	Action    Action
	Requester Actor
	Target    *Actor
	NewRole   domain.Role
}

type Decision struct {
	Allowed bool
	Reason  Reason
}

var allow = Decision{Allowed: true}

func deny(reason Reason) Decision {
	return Decision{Reason: reason}
}

// Err converts a denial into the matching error, nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	switch d.Reason {
	case ReasonTargetImmutable:
		return errors.ErrTargetImmutable
	case ReasonInvalidRoleForActor:
		return errors.ErrInvalidRoleForActor
	default:
		return errors.ErrNotAuthorized
	}
}

func Decide(req Request) Decision {
	switch req.Action {
	case ActionChangeRole:
		return decideRoleChange(req)
	case ActionKick:
		return decideKick(req)
	case ActionAddTask, ActionAddTasksBulk, ActionReorderTask, ActionEditTaskTitle,
		ActionRevealVotes, ActionNextTask, ActionResetVoting, ActionFinishRoom:
		if req.Requester.Role.CanManage() {
			return allow
		}
		return deny(ReasonNotAuthorized)
	case ActionSubmitVote:
		if req.Requester.Role == domain.RoleObserver || !req.Requester.Role.IsValid() || !req.Requester.Connected {
			return deny(ReasonNotAuthorized)
		}
		return allow
	}
	return deny(ReasonNotAuthorized)
}

// Check is Decide returning an error.
func Check(req Request) error {
	return Decide(req).Err()
}

func decideRoleChange(req Request) Decision {
	if req.Target == nil {
		return deny(ReasonNotAuthorized)
	}
	// The creator is immutable whoever asks, including the creator.
	if req.Target.Role == domain.RoleCreator {
		return deny(ReasonTargetImmutable)
	}
	if !req.Requester.Role.CanManage() {
		return deny(ReasonNotAuthorized)
	}
	switch req.NewRole {
	case domain.RoleAdmin:
		if req.Requester.Role != domain.RoleCreator {
			return deny(ReasonInvalidRoleForActor)
		}
		return allow
	case domain.RoleVoter, domain.RoleObserver:
		// Revoking admin belongs to the creator.
		if req.Target.Role == domain.RoleAdmin && req.Requester.Role != domain.RoleCreator {
			return deny(ReasonInvalidRoleForActor)
		}
		return allow
	default:
		// There is exactly one creator per room, nobody can hand it out.
		return deny(ReasonInvalidRoleForActor)
	}
}

func decideKick(req Request) Decision {
	if req.Target == nil || !req.Requester.Role.CanManage() {
		return deny(ReasonNotAuthorized)
	}
	if req.Target.ID == req.Requester.ID {
		return deny(ReasonNotAuthorized)
	}
	if req.Target.Role == domain.RoleCreator {
		return deny(ReasonTargetImmutable)
	}
	if req.Requester.Role == domain.RoleAdmin && req.Target.Role == domain.RoleAdmin {
		return deny(ReasonNotAuthorized)
	}
	return allow
}
