package services

import (
	"log/slog"
	"planning-poker/authorization"
	"planning-poker/contract"
	"planning-poker/domain"
	"planning-poker/errors"
	"strings"

	"github.com/samber/lo"
)

// RoomService owns rooms and their roster: creation, join, rejoin, finish,
// role changes, kicks and the admin failover on disconnect.
type RoomService struct {
	log    *slog.Logger
	clock  contract.Clock
	random contract.Random
	newID  IDGenerator
}

func NewRoomService(log *slog.Logger, clock contract.Clock, random contract.Random, newID IDGenerator) *RoomService {
	return &RoomService{log: log, clock: clock, random: random, newID: newID}
}

type RejoinResult struct {
	State           domain.RoomState
	User            domain.User
	WasDisconnected bool
}

type DisconnectResult struct {
	User     domain.User
	Promoted *domain.User
}

// Create stores a new room and its creator. The room id is chosen by the
// caller so the owner of the room is known before the room exists.
func (s *RoomService) Create(tx contract.Tx, roomID, name, creatorName string) (domain.Room, domain.User, error) {
	name, creatorName = strings.TrimSpace(name), strings.TrimSpace(creatorName)
	if name == "" || creatorName == "" {
		return domain.Room{}, domain.User{}, errors.ErrEmptyName
	}
	now := s.clock.Now()
	room := domain.NewRoom(roomID, name, now)
	if err := tx.Rooms().Create(room); err != nil {
		return domain.Room{}, domain.User{}, err
	}
	creator := domain.NewUser(s.newID(), roomID, creatorName, domain.RoleCreator, now)
	if err := tx.Users().Create(creator); err != nil {
		return domain.Room{}, domain.User{}, err
	}
	s.log.Info("Room created", "room", roomID, "creator", creator.ID)
	return room, creator, nil
}

// CreateOffline is Create for a room opened without a live connection. The
// creator shows up as disconnected until its first rejoin.
func (s *RoomService) CreateOffline(tx contract.Tx, roomID, name, creatorName string) (domain.Room, domain.User, error) {
	room, creator, err := s.Create(tx, roomID, name, creatorName)
	if err != nil {
		return domain.Room{}, domain.User{}, err
	}
	creator.Connected = false
	if err = tx.Users().Update(creator); err != nil {
		return domain.Room{}, domain.User{}, err
	}
	return room, creator, nil
}

// Join adds a new voter to an active room.
func (s *RoomService) Join(tx contract.Tx, roomID, name string) (domain.RoomState, domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.RoomState{}, domain.User{}, errors.ErrEmptyName
	}
	if _, err := activeRoom(tx, roomID); err != nil {
		return domain.RoomState{}, domain.User{}, err
	}
	user := domain.NewUser(s.newID(), roomID, name, domain.RoleVoter, s.clock.Now())
	if err := tx.Users().Create(user); err != nil {
		return domain.RoomState{}, domain.User{}, err
	}
	state, err := s.State(tx, roomID)
	if err != nil {
		return domain.RoomState{}, domain.User{}, err
	}
	return state, user, nil
}

// Rejoin resumes a known participant. WasDisconnected is read before the
// user is marked connected, a duplicate tab of a connected user reports
// false.
func (s *RoomService) Rejoin(tx contract.Tx, roomID, userID string) (RejoinResult, error) {
	if _, err := tx.Rooms().FindByID(roomID); err != nil {
		return RejoinResult{}, err
	}
	user, err := member(tx, roomID, userID)
	if err != nil {
		return RejoinResult{}, err
	}
	wasDisconnected := !user.Connected
	if wasDisconnected {
		user.Connected = true
		if err = tx.Users().Update(user); err != nil {
			return RejoinResult{}, err
		}
	}
	state, err := s.State(tx, roomID)
	if err != nil {
		return RejoinResult{}, err
	}
	return RejoinResult{State: state, User: user, WasDisconnected: wasDisconnected}, nil
}

// State builds the snapshot of the room. Votes and voters only concern the
// task being voted on.
func (s *RoomService) State(tx contract.Tx, roomID string) (domain.RoomState, error) {
	room, err := tx.Rooms().FindByID(roomID)
	if err != nil {
		return domain.RoomState{}, err
	}
	users, err := tx.Users().FindByRoom(roomID)
	if err != nil {
		return domain.RoomState{}, err
	}
	tasks, err := tx.Tasks().FindByRoom(roomID)
	if err != nil {
		return domain.RoomState{}, err
	}
	state := domain.RoomState{Room: room, Users: users, Tasks: tasks, Votes: []domain.Vote{}, VotedUserIDs: []string{}}
	if current, ok := votingTask(tasks); ok {
		votes, err := tx.Votes().FindByTask(current.ID)
		if err != nil {
			return domain.RoomState{}, err
		}
		state.Votes = votes
		state.VotedUserIDs = lo.Map(votes, func(v domain.Vote, _ int) string { return v.UserID })
	}
	return state, nil
}

// Finish closes the room, nothing can be voted on afterwards.
func (s *RoomService) Finish(tx contract.Tx, roomID, requesterID string) (domain.Room, error) {
	room, err := activeRoom(tx, roomID)
	if err != nil {
		return domain.Room{}, err
	}
	if _, err = authorize(tx, roomID, requesterID, authorization.ActionFinishRoom); err != nil {
		return domain.Room{}, err
	}
	room.Status = domain.RoomFinished
	room.ClearCurrentTask()
	if err = tx.Rooms().Update(room); err != nil {
		return domain.Room{}, err
	}
	s.log.Info("Room finished", "room", roomID, "by", requesterID)
	return room, nil
}

// ChangeRole applies a role change requested by a participant. Roles are
// frozen once the room is finished.
func (s *RoomService) ChangeRole(tx contract.Tx, roomID, requesterID, targetID string, role domain.Role) (domain.User, error) {
	if _, err := activeRoom(tx, roomID); err != nil {
		return domain.User{}, err
	}
	requester, err := member(tx, roomID, requesterID)
	if err != nil {
		return domain.User{}, err
	}
	target, err := member(tx, roomID, targetID)
	if err != nil {
		return domain.User{}, err
	}
	targetActor := authorization.ActorOf(target)
	if err = authorization.Check(authorization.Request{
		Action:    authorization.ActionChangeRole,
		Requester: authorization.ActorOf(requester),
		Target:    &targetActor,
		NewRole:   role,
	}); err != nil {
		return domain.User{}, err
	}
	target.Role = role
	if err = tx.Users().Update(target); err != nil {
		return domain.User{}, err
	}
	s.log.Info("Role changed", "room", roomID, "user", targetID, "role", role, "by", requesterID)
	return target, nil
}

// Kick marks the target as disconnected. Closing its connections is left
// to the caller.
func (s *RoomService) Kick(tx contract.Tx, roomID, requesterID, targetID string) (domain.User, error) {
	if _, err := activeRoom(tx, roomID); err != nil {
		return domain.User{}, err
	}
	requester, err := member(tx, roomID, requesterID)
	if err != nil {
		return domain.User{}, err
	}
	target, err := member(tx, roomID, targetID)
	if err != nil {
		return domain.User{}, err
	}
	targetActor := authorization.ActorOf(target)
	if err = authorization.Check(authorization.Request{
		Action:    authorization.ActionKick,
		Requester: authorization.ActorOf(requester),
		Target:    &targetActor,
	}); err != nil {
		return domain.User{}, err
	}
	target.Connected = false
	if err = tx.Users().Update(target); err != nil {
		return domain.User{}, err
	}
	s.log.Info("User kicked", "room", roomID, "user", targetID, "by", requesterID)
	return target, nil
}

// Disconnect is called once the last connection of a user is gone. It marks
// the user disconnected and runs the admin failover, except on a finished
// room where roles no longer change.
func (s *RoomService) Disconnect(tx contract.Tx, roomID, userID string) (DisconnectResult, error) {
	room, err := tx.Rooms().FindByID(roomID)
	if err != nil {
		return DisconnectResult{}, err
	}
	user, err := member(tx, roomID, userID)
	if err != nil {
		return DisconnectResult{}, err
	}
	user.Connected = false
	if err = tx.Users().Update(user); err != nil {
		return DisconnectResult{}, err
	}
	if room.IsFinished() {
		return DisconnectResult{User: user}, nil
	}
	promoted, err := s.Failover(tx, roomID)
	if err != nil {
		return DisconnectResult{}, err
	}
	return DisconnectResult{User: user, Promoted: promoted}, nil
}

// Failover promotes one connected voter, drawn uniformly at random, when no
// creator or admin is connected anymore. Observers are never promoted and a
// room without eligible voter stays without admin.
func (s *RoomService) Failover(tx contract.Tx, roomID string) (*domain.User, error) {
	users, err := tx.Users().FindByRoom(roomID)
	if err != nil {
		return nil, err
	}
	if lo.SomeBy(users, func(u domain.User) bool { return u.Connected && u.Role.CanManage() }) {
		return nil, nil
	}
	eligible := lo.Filter(users, func(u domain.User, _ int) bool {
		return u.Connected && u.Role == domain.RoleVoter
	})
	if len(eligible) == 0 {
		s.log.Warn("Room left without admin", "room", roomID)
		return nil, nil
	}
	chosen := eligible[s.random.IntN(len(eligible))]
	chosen.Role = domain.RoleAdmin
	if err = tx.Users().Update(chosen); err != nil {
		return nil, err
	}
	s.log.Info("Admin failover", "room", roomID, "promoted", chosen.ID)
	return &chosen, nil
}
