package services

import (
	"log/slog"
	"planning-poker/authorization"
	"planning-poker/contract"
	"planning-poker/domain"
	"planning-poker/errors"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// TaskService owns the task queue of a room: creation, titles, ordering and
// the promotion of a pending task to the voting slot.
type TaskService struct {
	log   *slog.Logger
	clock contract.Clock
	newID IDGenerator
}

func NewTaskService(log *slog.Logger, clock contract.Clock, newID IDGenerator) *TaskService {
	return &TaskService{log: log, clock: clock, newID: newID}
}

// AddResult lists the created tasks. Promoted is set when one of them went
// straight to voting because the room had no voting task.
type AddResult struct {
	Tasks    []domain.Task
	Promoted *domain.Task
}

type ReorderResult struct {
	Tasks                 []domain.Task
	PreviousTaskDiscarded bool
	// Current is the task that was promoted by the reorder, if any.
	Current *domain.Task
}

func (s *TaskService) Add(tx contract.Tx, roomID, requesterID, title string) (AddResult, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return AddResult{}, errors.ErrEmptyTitle
	}
	return s.add(tx, roomID, requesterID, authorization.ActionAddTask, []string{title})
}

// AddBulk appends titles in the given order. Blank titles are skipped and
// only the first created task can be promoted.
func (s *TaskService) AddBulk(tx contract.Tx, roomID, requesterID string, titles []string) (AddResult, error) {
	titles = domain.CleanTitles(titles)
	if len(titles) == 0 {
		return AddResult{}, errors.ErrEmptyTitle
	}
	return s.add(tx, roomID, requesterID, authorization.ActionAddTasksBulk, titles)
}

func (s *TaskService) add(tx contract.Tx, roomID, requesterID string, action authorization.Action, titles []string) (AddResult, error) {
	room, err := activeRoom(tx, roomID)
	if err != nil {
		return AddResult{}, err
	}
	if _, err = authorize(tx, roomID, requesterID, action); err != nil {
		return AddResult{}, err
	}
	tasks, err := tx.Tasks().FindByRoom(roomID)
	if err != nil {
		return AddResult{}, err
	}
	maxOrder, err := tx.Tasks().MaxOrder(roomID)
	if err != nil {
		return AddResult{}, err
	}
	_, hasVoting := votingTask(tasks)

	now := s.clock.Now()
	var result AddResult
	for i, title := range titles {
		task := domain.NewTask(s.newID(), roomID, title, maxOrder+1+i, now)
		if err = tx.Tasks().Create(task); err != nil {
			return AddResult{}, err
		}
		if i == 0 && !hasVoting {
			if err = startVoting(tx, &room, &task, now); err != nil {
				return AddResult{}, err
			}
			result.Promoted = &task
		}
		result.Tasks = append(result.Tasks, task)
	}
	s.log.Debug("Tasks added", "room", roomID, "count", len(result.Tasks), "promoted", result.Promoted != nil)
	return result, nil
}

// UpdateTitle rewrites the title only, order and status are untouched.
func (s *TaskService) UpdateTitle(tx contract.Tx, roomID, requesterID, taskID, title string) (domain.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Task{}, errors.ErrEmptyTitle
	}
	if _, err := activeRoom(tx, roomID); err != nil {
		return domain.Task{}, err
	}
	if _, err := authorize(tx, roomID, requesterID, authorization.ActionEditTaskTitle); err != nil {
		return domain.Task{}, err
	}
	task, err := s.taskOfRoom(tx, roomID, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	task.Title = title
	return task, tx.Tasks().Update(task)
}

// Reorder moves a pending task inside the queue. Moving a task to position
// 0 while another task is being voted on makes it jump into the voting slot:
// the interrupted round is discarded and its task goes back to the head of
// the queue.
func (s *TaskService) Reorder(tx contract.Tx, roomID, requesterID, taskID string, newOrder int) (ReorderResult, error) {
	if newOrder < 0 {
		return ReorderResult{}, errors.ErrValidation
	}
	room, err := activeRoom(tx, roomID)
	if err != nil {
		return ReorderResult{}, err
	}
	if _, err = authorize(tx, roomID, requesterID, authorization.ActionReorderTask); err != nil {
		return ReorderResult{}, err
	}
	target, err := s.taskOfRoom(tx, roomID, taskID)
	if err != nil {
		return ReorderResult{}, err
	}
	if !target.IsPending() {
		return ReorderResult{}, errors.ErrTaskNotPending
	}

	tasks, err := tx.Tasks().FindByRoom(roomID)
	if err != nil {
		return ReorderResult{}, err
	}
	pending := pendingTasks(tasks)
	current, hasCurrent := votingTask(tasks)

	var result ReorderResult
	var queue []domain.Task
	if newOrder == 0 && hasCurrent {
		if _, err = tx.Votes().DeleteByTask(current.ID); err != nil {
			return ReorderResult{}, err
		}
		current.BackToPending()
		if err = tx.Tasks().Update(current); err != nil {
			return ReorderResult{}, err
		}
		target.Order = 0
		if err = startVoting(tx, &room, &target, s.clock.Now()); err != nil {
			return ReorderResult{}, err
		}
		queue = append([]domain.Task{current}, withoutTask(pending, target.ID)...)
		result.PreviousTaskDiscarded = true
		result.Current = &target
		s.log.Info("Voting task preempted", "room", roomID, "discarded", current.ID, "promoted", target.ID)
	} else {
		queue = withoutTask(pending, target.ID)
		queue = slices.Insert(queue, min(newOrder, len(queue)), target)
	}

	base := 0
	if hasCurrent {
		base = 1
	}
	if err = renumber(tx, queue, base); err != nil {
		return ReorderResult{}, err
	}

	if result.Tasks, err = tx.Tasks().FindByRoom(roomID); err != nil {
		return ReorderResult{}, err
	}
	return result, nil
}

// Current returns the voting task of the room.
func (s *TaskService) Current(tx contract.Tx, roomID string) (domain.Task, error) {
	tasks, err := tx.Tasks().FindByRoom(roomID)
	if err != nil {
		return domain.Task{}, err
	}
	task, ok := votingTask(tasks)
	if !ok {
		return domain.Task{}, errors.ErrNoActiveTask
	}
	return task, nil
}

func (s *TaskService) List(tx contract.Tx, roomID string) ([]domain.Task, error) {
	return tx.Tasks().FindByRoom(roomID)
}

// Summary reports the three slowest voted tasks and the total voting time.
func (s *TaskService) Summary(tx contract.Tx, roomID string) (domain.RoomSummary, error) {
	if _, err := tx.Rooms().FindByID(roomID); err != nil {
		return domain.RoomSummary{}, err
	}
	tasks, err := tx.Tasks().FindByRoom(roomID)
	if err != nil {
		return domain.RoomSummary{}, err
	}
	voted := lo.Filter(tasks, func(t domain.Task, _ int) bool {
		return t.Status == domain.TaskVoted && t.VotingDurationSeconds != nil
	})
	slices.SortStableFunc(voted, func(a, b domain.Task) int {
		return *b.VotingDurationSeconds - *a.VotingDurationSeconds
	})
	total := lo.SumBy(voted, func(t domain.Task) int { return *t.VotingDurationSeconds })
	return domain.RoomSummary{
		RoomID:             roomID,
		Slowest:            voted[:min(3, len(voted))],
		TotalVotingSeconds: total,
		VotedTasks:         len(voted),
	}, nil
}

func (s *TaskService) taskOfRoom(tx contract.Tx, roomID, taskID string) (domain.Task, error) {
	task, err := tx.Tasks().FindByID(taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if task.RoomID != roomID {
		return domain.Task{}, errors.ErrTaskNotFound
	}
	return task, nil
}

func withoutTask(tasks []domain.Task, taskID string) []domain.Task {
	return lo.Filter(tasks, func(t domain.Task, _ int) bool { return t.ID != taskID })
}

// renumber gives queue a gapless order starting at base and writes only the
// tasks whose order changed.
func renumber(tx contract.Tx, queue []domain.Task, base int) error {
	for i, task := range queue {
		if task.Order == base+i {
			continue
		}
		stored, err := tx.Tasks().FindByID(task.ID)
		if err != nil {
			return err
		}
		stored.Order = base + i
		if err = tx.Tasks().Update(stored); err != nil {
			return err
		}
	}
	return nil
}
