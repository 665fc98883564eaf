package runtime

import (
	"context"
	"log/slog"
	"planning-poker/auth"
	"planning-poker/contract"
	"planning-poker/domain"
	"planning-poker/domain/event"
	"planning-poker/errors"
	"planning-poker/runtime/workers"
	"planning-poker/services"
)

// Coordinator is the entry point of the transports. It turns inbound actions
// into transactions run on the room actor and publishes the resulting events
// once they are committed.
type Coordinator struct {
	log          *slog.Logger
	store        contract.Store
	orchestrator *Orchestrator
	registry     contract.IRegistry
	fanout       *workers.EventFanout
	rooms        *services.RoomService
	tasks        *services.TaskService
	votes        *services.VoteService
	tokens       *auth.TokenIssuer
	newRoomID    services.IDGenerator
	routes       map[string]route
}

func NewCoordinator(log *slog.Logger, store contract.Store, orchestrator *Orchestrator,
	registry contract.IRegistry, fanout *workers.EventFanout,
	rooms *services.RoomService, tasks *services.TaskService, votes *services.VoteService,
	tokens *auth.TokenIssuer, newRoomID services.IDGenerator) *Coordinator {
	c := &Coordinator{
		log:          log,
		store:        store,
		orchestrator: orchestrator,
		registry:     registry,
		fanout:       fanout,
		rooms:        rooms,
		tasks:        tasks,
		votes:        votes,
		tokens:       tokens,
		newRoomID:    newRoomID,
	}
	c.routes = c.buildRoutes()
	return c
}

// Connect opens the session of a new connection.
func (c *Coordinator) Connect(connectionID string, sink contract.EventSink) *Session {
	c.log.Debug("Connection opened", "connection", connectionID)
	return NewSession(connectionID, sink)
}

// Disconnect is called when a connection is gone. The participant is only
// marked disconnected once its last connection left, and the admin failover
// runs at that moment.
func (c *Coordinator) Disconnect(ctx context.Context, s *Session) {
	if err := c.leave(ctx, s); err != nil {
		c.log.Warn("Disconnect failed", "connection", s.ConnectionID(), "error", err)
	}
	c.log.Debug("Connection closed", "connection", s.ConnectionID())
}

// leave releases the seat of s, if any. It waits for room in a busy queue
// since a lost leave would keep a ghost participant connected. Detach runs
// once on the actor, before and whatever the outcome of the transaction.
func (c *Coordinator) leave(ctx context.Context, s *Session) error {
	roomID, userID, ok := s.Seat()
	if !ok {
		return nil
	}
	s.Unbind()
	target := c.target(roomID, s)
	return c.orchestrator.DoWait(ctx, roomID, func(jobCtx context.Context) error {
		if remaining := c.registry.Detach(roomID, userID, s.ConnectionID()); remaining > 0 {
			return nil
		}
		return c.commit(jobCtx, target, func(tx contract.Tx, out *Outbox) error {
			result, err := c.rooms.Disconnect(tx, roomID, userID)
			if err != nil {
				return err
			}
			out.ToOthers(event.UserDisconnected{UserID: userID})
			if result.Promoted != nil {
				out.ToRoom(event.UserRoleChanged{UserID: result.Promoted.ID, Role: result.Promoted.Role})
			}
			return nil
		})
	})
}

// seat attaches the connection to the room once the transaction that gave
// it a seat committed.
func (c *Coordinator) seat(s *Session, user domain.User) func() {
	return func() {
		c.registry.Attach(user.RoomID, user.ID, s.ConnectionID(), s)
		s.Bind(user.RoomID, user.ID, user.Name)
	}
}

func (c *Coordinator) target(roomID string, s *Session) workers.Target {
	if s == nil {
		return workers.Target{RoomID: roomID}
	}
	return workers.Target{RoomID: roomID, ConnectionID: s.ConnectionID(), Origin: s.Sink()}
}

// exec runs fn on the actor of the target room inside one read-write
// transaction, then plays the outbox. Nothing is published when fn fails.
func (c *Coordinator) exec(ctx context.Context, target workers.Target, fn func(tx contract.Tx, out *Outbox) error) error {
	return c.orchestrator.Do(ctx, target.RoomID, func(jobCtx context.Context) error {
		return c.commit(jobCtx, target, fn)
	})
}

// commit must run on the actor of target.
func (c *Coordinator) commit(ctx context.Context, target workers.Target, fn func(tx contract.Tx, out *Outbox) error) error {
	var out Outbox
	if err := c.store.Update(ctx, func(tx contract.Tx) error {
		out.reset()
		return fn(tx, &out)
	}); err != nil {
		return err
	}
	c.flush(ctx, target, &out)
	return nil
}

// read runs fn on the actor of roomID inside a read-only transaction, so
// the result is consistent with what the room already broadcast.
func (c *Coordinator) read(ctx context.Context, roomID string, fn func(tx contract.Tx) error) error {
	return c.orchestrator.Do(ctx, roomID, func(jobCtx context.Context) error {
		return c.store.View(jobCtx, fn)
	})
}

func (c *Coordinator) flush(ctx context.Context, target workers.Target, out *Outbox) {
	for _, st := range out.steps {
		if st.action != nil {
			st.action()
			continue
		}
		c.fanout.Publish(ctx, target, *st.out)
	}
}

// fail reports err to the connection that caused it and nobody else.
func (c *Coordinator) fail(ctx context.Context, s *Session, action string, err error) {
	if errors.Kind(err) == nil {
		c.log.Error("Action failed", "action", action, "connection", s.ConnectionID(), "error", err)
	} else {
		c.log.Debug("Action refused", "action", action, "connection", s.ConnectionID(), "error", err)
	}
	roomID, _, _ := s.Seat()
	c.fanout.Publish(ctx, c.target(roomID, s), event.Outbound{
		Scope: event.ScopeOrigin,
		Event: event.Error{Message: errors.Public(err)},
	})
}

// CreatedRoom is the answer of the HTTP room creation.
type CreatedRoom struct {
	RoomID       string
	UserID       string
	TasksCreated int
	Token        string
}

// CreateRoom opens a room with its creator and an optional task list
// without any live connection. The creator comes in later with the token.
func (c *Coordinator) CreateRoom(ctx context.Context, roomName, userName string, titles []string) (CreatedRoom, error) {
	roomID := c.newRoomID()
	var created CreatedRoom
	err := c.exec(ctx, c.target(roomID, nil), func(tx contract.Tx, out *Outbox) error {
		room, creator, err := c.rooms.CreateOffline(tx, roomID, roomName, userName)
		if err != nil {
			return err
		}
		created = CreatedRoom{RoomID: room.ID, UserID: creator.ID}
		if titles = domain.CleanTitles(titles); len(titles) > 0 {
			added, err := c.tasks.AddBulk(tx, room.ID, creator.ID, titles)
			if err != nil {
				return err
			}
			created.TasksCreated = len(added.Tasks)
		}
		created.Token, err = c.tokens.Issue(room.ID, creator.ID)
		return err
	})
	return created, err
}

// RoomState returns the snapshot a joining participant would receive.
func (c *Coordinator) RoomState(ctx context.Context, roomID string) (domain.RoomState, error) {
	var state domain.RoomState
	err := c.read(ctx, roomID, func(tx contract.Tx) error {
		var err error
		state, err = c.rooms.State(tx, roomID)
		return err
	})
	return state, err
}

func (c *Coordinator) Summary(ctx context.Context, roomID string) (domain.RoomSummary, error) {
	var summary domain.RoomSummary
	err := c.read(ctx, roomID, func(tx contract.Tx) error {
		var err error
		summary, err = c.tasks.Summary(tx, roomID)
		return err
	})
	return summary, err
}
