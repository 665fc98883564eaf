package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"planning-poker/auth"
	"planning-poker/domain"
	"planning-poker/domain/event"
	"planning-poker/errors"
)

type route struct {
	decode func(data json.RawMessage) (domain.Command, error)
	handle func(ctx context.Context, s *Session, cmd domain.Command) error
}

// on binds a typed handler to the decoding and validation of its payload.
func on[C any, PC interface {
	*C
	domain.Command
}](handle func(ctx context.Context, s *Session, cmd PC) error) route {
	return route{
		decode: func(data json.RawMessage) (domain.Command, error) {
			cmd := PC(new(C))
			if len(data) > 0 && !bytes.Equal(data, []byte("null")) {
				if err := json.Unmarshal(data, cmd); err != nil {
					return nil, errors.ErrMalformedPayload
				}
			}
			if err := auth.ValidateCommand(cmd); err != nil {
				return nil, err
			}
			return cmd, nil
		},
		handle: func(ctx context.Context, s *Session, cmd domain.Command) error {
			return handle(ctx, s, cmd.(PC))
		},
	}
}

func (c *Coordinator) buildRoutes() map[string]route {
	return map[string]route{
		event.UserRegisterType:    on(c.register),
		event.RoomCreateType:      on(c.createRoom),
		event.RoomJoinType:        on(c.joinRoom),
		event.RoomRejoinType:      on(c.rejoinRoom),
		event.RoomFinishType:      on(c.finishRoom),
		event.UserChangeRoleType:  on(c.changeRole),
		event.UserKickType:        on(c.kick),
		event.TaskAddType:         on(c.addTask),
		event.TaskAddBulkType:     on(c.addTasksBulk),
		event.TaskReorderType:     on(c.reorderTask),
		event.TaskUpdateTitleType: on(c.updateTaskTitle),
		event.VoteSubmitType:      on(c.submitVote),
		event.VotingRevealType:    on(c.revealVotes),
		event.VotingNextType:      on(c.nextTask),
		event.VotingResetType:     on(c.resetVoting),
	}
}

// HandleMessage decodes one frame of a connection and runs its action.
// It returns once the action and its broadcasts are done, so the frames of
// a connection are handled in order. Any failure ends up as an error event
// on this connection only.
func (c *Coordinator) HandleMessage(ctx context.Context, s *Session, raw []byte) {
	var envelope event.InboundEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		c.fail(ctx, s, "", errors.ErrMalformedPayload)
		return
	}
	r, ok := c.routes[envelope.Type]
	if !ok {
		c.fail(ctx, s, envelope.Type, errors.ErrUnknownEvent)
		return
	}
	cmd, err := r.decode(envelope.Data)
	if err != nil {
		c.fail(ctx, s, envelope.Type, err)
		return
	}
	if err = r.handle(ctx, s, cmd); err != nil {
		c.fail(ctx, s, envelope.Type, err)
	}
}

// seated returns the seat of a connection that must already be in a room.
func seated(s *Session) (roomID, userID string, err error) {
	roomID, userID, ok := s.Seat()
	if !ok {
		return "", "", errors.ErrNotInRoom
	}
	return roomID, userID, nil
}
