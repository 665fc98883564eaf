package runtime

import (
	"context"
	"planning-poker/contract"
	"planning-poker/domain"
	"planning-poker/domain/event"
	"planning-poker/errors"
)

const kickedMessage = "You have been removed from the room"

// register only remembers the display name, the participant is created
// when it creates or joins a room.
func (c *Coordinator) register(_ context.Context, s *Session, cmd *domain.RegisterCommand) error {
	s.Register(cmd.Name)
	return nil
}

func (c *Coordinator) createRoom(ctx context.Context, s *Session, cmd *domain.CreateRoomCommand) error {
	name := s.Name()
	if name == "" {
		return errors.ErrNotRegistered
	}
	if err := c.leave(ctx, s); err != nil {
		return err
	}
	roomID := c.newRoomID()
	return c.exec(ctx, c.target(roomID, s), func(tx contract.Tx, out *Outbox) error {
		room, creator, err := c.rooms.Create(tx, roomID, cmd.Name, name)
		if err != nil {
			return err
		}
		state, err := c.rooms.State(tx, roomID)
		if err != nil {
			return err
		}
		token, err := c.tokens.Issue(roomID, creator.ID)
		if err != nil {
			return err
		}
		out.After(c.seat(s, creator))
		out.ToOrigin(event.RoomCreated{Room: room})
		out.ToOrigin(event.UserRegistered{User: creator, Token: token})
		out.ToOrigin(event.RoomJoined{RoomState: state})
		return nil
	})
}

func (c *Coordinator) joinRoom(ctx context.Context, s *Session, cmd *domain.JoinRoomCommand) error {
	name := s.Name()
	if name == "" {
		return errors.ErrNotRegistered
	}
	if err := c.leave(ctx, s); err != nil {
		return err
	}
	return c.exec(ctx, c.target(cmd.RoomID, s), func(tx contract.Tx, out *Outbox) error {
		state, user, err := c.rooms.Join(tx, cmd.RoomID, name)
		if err != nil {
			return err
		}
		token, err := c.tokens.Issue(cmd.RoomID, user.ID)
		if err != nil {
			return err
		}
		out.After(c.seat(s, user))
		out.ToOrigin(event.UserRegistered{User: user, Token: token})
		out.ToOrigin(event.RoomJoined{RoomState: state})
		out.ToOthers(event.UserConnected{User: user})
		return nil
	})
}

// rejoinRoom brings a known participant back, identified by ids or by the
// token of the shareable URL.
func (c *Coordinator) rejoinRoom(ctx context.Context, s *Session, cmd *domain.RejoinRoomCommand) error {
	roomID, userID := cmd.RoomID, cmd.UserID
	if cmd.Token != "" {
		claims, err := c.tokens.Parse(cmd.Token)
		if err != nil {
			return err
		}
		roomID, userID = claims.RoomID, claims.UserID
	}
	if currentRoom, currentUser, ok := s.Seat(); ok && (currentRoom != roomID || currentUser != userID) {
		if err := c.leave(ctx, s); err != nil {
			return err
		}
	}
	return c.exec(ctx, c.target(roomID, s), func(tx contract.Tx, out *Outbox) error {
		result, err := c.rooms.Rejoin(tx, roomID, userID)
		if err != nil {
			return err
		}
		out.After(c.seat(s, result.User))
		out.ToOrigin(event.UserReconnected{RoomState: result.State, User: result.User})
		if result.WasDisconnected {
			out.ToOthers(event.UserConnected{User: result.User})
		}
		return nil
	})
}

func (c *Coordinator) finishRoom(ctx context.Context, s *Session, _ *domain.FinishRoomCommand) error {
	roomID, userID, err := seated(s)
	if err != nil {
		return err
	}
	return c.exec(ctx, c.target(roomID, s), func(tx contract.Tx, out *Outbox) error {
		room, err := c.rooms.Finish(tx, roomID, userID)
		if err != nil {
			return err
		}
		out.ToRoom(event.RoomUpdated{Room: room})
		return nil
	})
}

func (c *Coordinator) changeRole(ctx context.Context, s *Session, cmd *domain.ChangeRoleCommand) error {
	roomID, userID, err := seated(s)
	if err != nil {
		return err
	}
	return c.exec(ctx, c.target(roomID, s), func(tx contract.Tx, out *Outbox) error {
		target, err := c.rooms.ChangeRole(tx, roomID, userID, cmd.UserID, cmd.Role)
		if err != nil {
			return err
		}
		out.ToRoom(event.UserRoleChanged{UserID: target.ID, Role: target.Role})
		return nil
	})
}

// kick tells the target first, then cuts its connections off the room and
// only then informs the others.
func (c *Coordinator) kick(ctx context.Context, s *Session, cmd *domain.KickCommand) error {
	roomID, userID, err := seated(s)
	if err != nil {
		return err
	}
	return c.exec(ctx, c.target(roomID, s), func(tx contract.Tx, out *Outbox) error {
		target, err := c.rooms.Kick(tx, roomID, userID, cmd.UserID)
		if err != nil {
			return err
		}
		out.ToUser(target.ID, event.UserYouWereKicked{Message: kickedMessage})
		out.After(func() { c.evict(roomID, target.ID) })
		out.ToRoom(event.UserKicked{UserID: target.ID})
		return nil
	})
}

// evict detaches every connection of userID and frees their seat, the
// connections stay open but are no longer part of the room.
func (c *Coordinator) evict(roomID, userID string) {
	for _, sink := range c.registry.GetSinksForUser(roomID, userID) {
		if session, ok := sink.(*Session); ok {
			session.Unbind()
		}
	}
	detached := c.registry.DetachUser(roomID, userID)
	c.log.Debug("Connections evicted", "room", roomID, "user", userID, "count", len(detached))
}
