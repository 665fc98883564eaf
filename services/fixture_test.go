package services

import (
	"context"
	"fmt"
	"log/slog"
	"planning-poker/contract"
	"planning-poker/domain"
	"planning-poker/repositories"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// fixedRandom always draws the same index, clamped to n.
type fixedRandom int

func (f fixedRandom) IntN(n int) int { return min(int(f), n-1) }

func sequentialIDs(prefix string) IDGenerator {
	var n atomic.Int64
	return func() string { return fmt.Sprintf("%s-%d", prefix, n.Add(1)) }
}

type fixture struct {
	t     *testing.T
	store *repositories.Store
	clock *fakeClock
	rooms *RoomService
	tasks *TaskService
	votes *VoteService
}

func newFixture(t *testing.T, random contract.Random) *fixture {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.Default()
	clock := &fakeClock{now: time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)}
	ids := sequentialIDs("id")
	return &fixture{
		t:     t,
		store: repositories.NewStore(db, log),
		clock: clock,
		rooms: NewRoomService(log, clock, random, ids),
		tasks: NewTaskService(log, clock, ids),
		votes: NewVoteService(log, clock, ids),
	}
}

// update runs fn in a read-write transaction and fails the test on error.
func (f *fixture) update(fn func(tx contract.Tx) error) {
	f.t.Helper()
	require.NoError(f.t, f.store.Update(context.Background(), fn))
}

// try runs fn in a read-write transaction and returns its error.
func (f *fixture) try(fn func(tx contract.Tx) error) error {
	return f.store.Update(context.Background(), fn)
}

func (f *fixture) createRoom(name, creator string) (domain.Room, domain.User) {
	f.t.Helper()
	var room domain.Room
	var user domain.User
	f.update(func(tx contract.Tx) error {
		var err error
		room, user, err = f.rooms.Create(tx, "room-"+name, name, creator)
		return err
	})
	return room, user
}

func (f *fixture) join(roomID, name string) domain.User {
	f.t.Helper()
	var user domain.User
	f.update(func(tx contract.Tx) error {
		var err error
		_, user, err = f.rooms.Join(tx, roomID, name)
		return err
	})
	return user
}

func (f *fixture) setRole(userID string, role domain.Role) {
	f.t.Helper()
	f.update(func(tx contract.Tx) error {
		user, err := tx.Users().FindByID(userID)
		if err != nil {
			return err
		}
		user.Role = role
		return tx.Users().Update(user)
	})
}

func (f *fixture) addTasks(roomID, requesterID string, titles ...string) []domain.Task {
	f.t.Helper()
	var result AddResult
	f.update(func(tx contract.Tx) error {
		var err error
		result, err = f.tasks.AddBulk(tx, roomID, requesterID, titles)
		return err
	})
	return result.Tasks
}

func (f *fixture) vote(taskID, userID string, value int) SubmitResult {
	f.t.Helper()
	var result SubmitResult
	f.update(func(tx contract.Tx) error {
		var err error
		result, err = f.votes.Submit(tx, taskID, userID, value)
		return err
	})
	return result
}

func (f *fixture) task(taskID string) domain.Task {
	f.t.Helper()
	var task domain.Task
	f.update(func(tx contract.Tx) error {
		var err error
		task, err = tx.Tasks().FindByID(taskID)
		return err
	})
	return task
}

func (f *fixture) room(roomID string) domain.Room {
	f.t.Helper()
	var room domain.Room
	f.update(func(tx contract.Tx) error {
		var err error
		room, err = tx.Rooms().FindByID(roomID)
		return err
	})
	return room
}

func (f *fixture) user(userID string) domain.User {
	f.t.Helper()
	var user domain.User
	f.update(func(tx contract.Tx) error {
		var err error
		user, err = tx.Users().FindByID(userID)
		return err
	})
	return user
}

func (f *fixture) votesOf(taskID string) []domain.Vote {
	f.t.Helper()
	var votes []domain.Vote
	f.update(func(tx contract.Tx) error {
		var err error
		votes, err = tx.Votes().FindByTask(taskID)
		return err
	})
	return votes
}
