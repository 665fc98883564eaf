package repositories

import (
	"planning-poker/domain"
	"planning-poker/errors"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

type TaskRepository struct {
	txn *badger.Txn
}

func roomTaskIndexKey(roomID, taskID string) string {
	return roomTaskIndexPrefix + roomID + ":" + taskID
}

func (t TaskRepository) Create(task domain.Task) error {
	found, err := exists(t.txn, TaskPrefix+task.ID)
	if err != nil {
		return err
	}
	if found {
		return errors.ErrTaskAlreadyExists
	}
	if err = put(t.txn, TaskPrefix+task.ID, task); err != nil {
		return err
	}
	return t.txn.Set([]byte(roomTaskIndexKey(task.RoomID, task.ID)), nil)
}

func (t TaskRepository) FindByID(id string) (domain.Task, error) {
	var task domain.Task
	err := get(t.txn, TaskPrefix+id, &task, errors.ErrTaskNotFound)
	return task, err
}

// FindByRoom returns the tasks of a room by ascending order. Voted tasks keep
// the order they had when they left the queue, so ties are broken by
// creation time to keep the listing stable.
func (t TaskRepository) FindByRoom(roomID string) ([]domain.Task, error) {
	ids := scanSuffixes(t.txn, roomTaskIndexPrefix+roomID+":")
	tasks := make([]domain.Task, 0, len(ids))
	for _, id := range ids {
		task, err := t.FindByID(id)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	slices.SortStableFunc(tasks, func(a, b domain.Task) int {
		if a.Order != b.Order {
			return a.Order - b.Order
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return tasks, nil
}

func (t TaskRepository) Update(task domain.Task) error {
	found, err := exists(t.txn, TaskPrefix+task.ID)
	if err != nil {
		return err
	}
	if !found {
		return errors.ErrTaskNotFound
	}
	return put(t.txn, TaskPrefix+task.ID, task)
}

func (t TaskRepository) Delete(id string) error {
	task, err := t.FindByID(id)
	if err != nil {
		return err
	}
	if err = t.txn.Delete([]byte(roomTaskIndexKey(task.RoomID, id))); err != nil {
		return err
	}
	return t.txn.Delete([]byte(TaskPrefix + id))
}

func (t TaskRepository) MaxOrder(roomID string) (int, error) {
	tasks, err := t.FindByRoom(roomID)
	if err != nil {
		return 0, err
	}
	if len(tasks) == 0 {
		return -1, nil
	}
	return lo.MaxBy(tasks, func(a, b domain.Task) bool { return a.Order > b.Order }).Order, nil
}
