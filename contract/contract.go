//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"planning-poker/domain"
	"planning-poker/domain/event"
	"reflect"
	"time"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
	Wait()
}

// Worker doesn't protect itself, the supervisor restarts it after a panic.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// It is only used for logging.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is one physical connection able to receive events.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry maps rooms to participants and participants to their live
// connections. A participant may hold several connections (browser tabs).
type IRegistry interface {
	Attach(roomID, userID, connectionID string, sink EventSink)
	// Detach removes one connection and returns how many the user still has.
	Detach(roomID, userID, connectionID string) int
	// DetachUser removes every connection of a user and returns their ids.
	DetachUser(roomID, userID string) []string
	GetSinksForRoom(roomID string) []EventSink
	GetSinksForRoomExcept(roomID, connectionID string) []EventSink
	GetSinksForUser(roomID, userID string) []EventSink
	GetSink(connectionID string) (EventSink, bool)
	CountConnections(roomID, userID string) int
}

// Store is the persistence gateway. Every inbound action runs in exactly one
// read-write transaction so it either fully applies or not at all.
type Store interface {
	Update(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
}

type Tx interface {
	Rooms() RoomRepository
	Users() UserRepository
	Tasks() TaskRepository
	Votes() VoteRepository
}

type RoomRepository interface {
	Create(room domain.Room) error
	FindByID(id string) (domain.Room, error)
	Update(room domain.Room) error
	Delete(id string) error
}

type UserRepository interface {
	Create(user domain.User) error
	FindByID(id string) (domain.User, error)
	FindByRoom(roomID string) ([]domain.User, error)
	Update(user domain.User) error
	Delete(id string) error
}

type TaskRepository interface {
	Create(task domain.Task) error
	FindByID(id string) (domain.Task, error)
	// FindByRoom returns the tasks sorted by order ascending.
	FindByRoom(roomID string) ([]domain.Task, error)
	Update(task domain.Task) error
	Delete(id string) error
	// MaxOrder returns -1 for a room without tasks.
	MaxOrder(roomID string) (int, error)
}

type VoteRepository interface {
	// Upsert stores the vote for (TaskID, UserID) and reports whether it
	// replaced an existing one.
	Upsert(vote domain.Vote) (domain.Vote, bool, error)
	FindByTaskAndUser(taskID, userID string) (domain.Vote, error)
	FindByTask(taskID string) ([]domain.Vote, error)
	DeleteByTask(taskID string) (int, error)
}

type Clock interface {
	Now() time.Time
}

// Random picks an index in [0, n). math/rand/v2 *Rand satisfies it.
type Random interface {
	IntN(n int) int
}
