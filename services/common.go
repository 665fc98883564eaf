package services

import (
	"math/rand/v2"
	"planning-poker/authorization"
	"planning-poker/contract"
	"planning-poker/domain"
	"planning-poker/errors"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// SystemClock is the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// SystemRandom draws from the runtime's shared generator, which is safe for
// concurrent use by every room.
type SystemRandom struct{}

func (SystemRandom) IntN(n int) int { return rand.IntN(n) }

// IDGenerator returns a new unique id.
type IDGenerator func() string

func NewID() string { return uuid.NewString() }

// activeRoom loads a room that still accepts mutations.
func activeRoom(tx contract.Tx, roomID string) (domain.Room, error) {
	room, err := tx.Rooms().FindByID(roomID)
	if err != nil {
		return domain.Room{}, err
	}
	if room.IsFinished() {
		return domain.Room{}, errors.ErrRoomFinished
	}
	return room, nil
}

// member loads a user and checks it belongs to roomID. A user of another
// room is reported as not found so ids cannot be guessed across rooms.
func member(tx contract.Tx, roomID, userID string) (domain.User, error) {
	user, err := tx.Users().FindByID(userID)
	if err != nil {
		return domain.User{}, err
	}
	if user.RoomID != roomID {
		return domain.User{}, errors.ErrUserNotFound
	}
	return user, nil
}

// authorize loads the requester and runs the matrix for action.
func authorize(tx contract.Tx, roomID, requesterID string, action authorization.Action) (domain.User, error) {
	requester, err := member(tx, roomID, requesterID)
	if err != nil {
		return domain.User{}, err
	}
	err = authorization.Check(authorization.Request{Action: action, Requester: authorization.ActorOf(requester)})
	return requester, err
}

// votingTask returns the task currently open for voting in the room.
func votingTask(tasks []domain.Task) (domain.Task, bool) {
	return lo.Find(tasks, func(t domain.Task) bool { return t.IsVoting() })
}

// pendingTasks keeps the pending tasks, already sorted by order.
func pendingTasks(tasks []domain.Task) []domain.Task {
	return lo.Filter(tasks, func(t domain.Task, _ int) bool { return t.IsPending() })
}

// startVoting opens a round on task and makes it the current task of room.
// Both records are persisted.
func startVoting(tx contract.Tx, room *domain.Room, task *domain.Task, at time.Time) error {
	task.StartVoting(at)
	if err := tx.Tasks().Update(*task); err != nil {
		return err
	}
	room.SetCurrentTask(task.ID)
	return tx.Rooms().Update(*room)
}
