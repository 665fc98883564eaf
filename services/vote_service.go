package services

import (
	"log/slog"
	"math"
	"planning-poker/authorization"
	"planning-poker/contract"
	"planning-poker/domain"
	"planning-poker/errors"

	"github.com/samber/lo"
)

// VoteService runs the voting round of the current task: votes, tally,
// reveal, reset and the move to the next task.
type VoteService struct {
	log   *slog.Logger
	clock contract.Clock
	newID IDGenerator
}

func NewVoteService(log *slog.Logger, clock contract.Clock, newID IDGenerator) *VoteService {
	return &VoteService{log: log, clock: clock, newID: newID}
}

type SubmitResult struct {
	Vote     domain.Vote
	Task     domain.Task
	IsUpdate bool
	// AllVoted is true when every connected creator, admin and voter has a
	// vote on the task, and there is at least one of them.
	AllVoted        bool
	AlreadyRevealed bool
}

type NextResult struct {
	Finished domain.Task
	Duration int
	Next     *domain.Task
}

func (s *VoteService) Submit(tx contract.Tx, taskID, userID string, value int) (SubmitResult, error) {
	if !domain.IsVoteValue(value) {
		return SubmitResult{}, errors.ErrInvalidVoteValue
	}
	task, err := tx.Tasks().FindByID(taskID)
	if err != nil {
		return SubmitResult{}, err
	}
	if _, err = activeRoom(tx, task.RoomID); err != nil {
		return SubmitResult{}, err
	}
	user, err := member(tx, task.RoomID, userID)
	if err != nil {
		return SubmitResult{}, err
	}
	if err = authorization.Check(authorization.Request{
		Action:    authorization.ActionSubmitVote,
		Requester: authorization.ActorOf(user),
	}); err != nil {
		return SubmitResult{}, err
	}
	if !task.IsVoting() {
		return SubmitResult{}, errors.ErrTaskNotVoting
	}

	now := s.clock.Now()
	vote, isUpdate, err := tx.Votes().Upsert(domain.Vote{
		ID:        s.newID(),
		TaskID:    taskID,
		UserID:    userID,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return SubmitResult{}, err
	}

	allVoted, err := s.allVoted(tx, task)
	if err != nil {
		return SubmitResult{}, err
	}
	return SubmitResult{
		Vote:            vote,
		Task:            task,
		IsUpdate:        isUpdate,
		AllVoted:        allVoted,
		AlreadyRevealed: task.Revealed,
	}, nil
}

func (s *VoteService) allVoted(tx contract.Tx, task domain.Task) (bool, error) {
	users, err := tx.Users().FindByRoom(task.RoomID)
	if err != nil {
		return false, err
	}
	expected := lo.Filter(users, func(u domain.User, _ int) bool {
		return u.Connected && u.Role.CountsForVote()
	})
	if len(expected) == 0 {
		return false, nil
	}
	votes, err := tx.Votes().FindByTask(task.ID)
	if err != nil {
		return false, err
	}
	voters := lo.SliceToMap(votes, func(v domain.Vote) (string, struct{}) { return v.UserID, struct{}{} })
	return lo.EveryBy(expected, func(u domain.User) bool {
		_, ok := voters[u.ID]
		return ok
	}), nil
}

// Tally computes the outcome of the round without touching it.
func (s *VoteService) Tally(tx contract.Tx, taskID string) (domain.Tally, error) {
	if _, err := tx.Tasks().FindByID(taskID); err != nil {
		return domain.Tally{}, err
	}
	votes, err := tx.Votes().FindByTask(taskID)
	if err != nil {
		return domain.Tally{}, err
	}
	return ComputeTally(votes), nil
}

// ComputeTally counts votes over the card deck. The final estimate is the
// most voted value, a tie goes to the larger value. Percentages are rounded
// and only listed for values that got at least one vote.
func ComputeTally(votes []domain.Vote) domain.Tally {
	counts := lo.CountValuesBy(votes, func(v domain.Vote) int { return v.Value })
	tally := domain.Tally{Votes: votes, Percentages: make(map[int]int)}
	if tally.Votes == nil {
		tally.Votes = []domain.Vote{}
	}
	if len(votes) == 0 {
		return tally
	}

	bestValue, bestCount := 0, 0
	for _, value := range domain.VoteValues {
		count := counts[value]
		if count == 0 {
			continue
		}
		tally.Percentages[value] = int(math.Round(float64(count) / float64(len(votes)) * 100))
		if count > bestCount || (count == bestCount && value > bestValue) {
			bestValue, bestCount = value, count
		}
	}
	if bestCount > 0 {
		tally.FinalEstimate = &bestValue
	}
	return tally
}

// Reveal discloses the tally and flags the round as revealed. The task stays
// in voting.
func (s *VoteService) Reveal(tx contract.Tx, taskID, requesterID string) (domain.Tally, error) {
	task, err := s.gate(tx, taskID, requesterID, authorization.ActionRevealVotes)
	if err != nil {
		return domain.Tally{}, err
	}
	if !task.Revealed {
		task.Revealed = true
		if err = tx.Tasks().Update(task); err != nil {
			return domain.Tally{}, err
		}
	}
	return s.Tally(tx, taskID)
}

// MarkRevealed flags the round as revealed on behalf of the room, used when
// the last expected vote comes in.
func (s *VoteService) MarkRevealed(tx contract.Tx, taskID string) (domain.Tally, error) {
	task, err := tx.Tasks().FindByID(taskID)
	if err != nil {
		return domain.Tally{}, err
	}
	if !task.IsVoting() {
		return domain.Tally{}, errors.ErrTaskNotVoting
	}
	task.Revealed = true
	if err = tx.Tasks().Update(task); err != nil {
		return domain.Tally{}, err
	}
	return s.Tally(tx, taskID)
}

// Next closes the round with the tallied estimate and its duration, then
// promotes the earliest pending task or clears the current task.
func (s *VoteService) Next(tx contract.Tx, taskID, requesterID string) (NextResult, error) {
	task, err := s.gate(tx, taskID, requesterID, authorization.ActionNextTask)
	if err != nil {
		return NextResult{}, err
	}
	room, err := tx.Rooms().FindByID(task.RoomID)
	if err != nil {
		return NextResult{}, err
	}
	tally, err := s.Tally(tx, taskID)
	if err != nil {
		return NextResult{}, err
	}

	now := s.clock.Now()
	duration := task.Close(tally.FinalEstimate, now)
	if err = tx.Tasks().Update(task); err != nil {
		return NextResult{}, err
	}
	result := NextResult{Finished: task, Duration: duration}

	tasks, err := tx.Tasks().FindByRoom(task.RoomID)
	if err != nil {
		return NextResult{}, err
	}
	if pending := pendingTasks(tasks); len(pending) > 0 {
		next := pending[0]
		if err = startVoting(tx, &room, &next, now); err != nil {
			return NextResult{}, err
		}
		result.Next = &next
	} else {
		room.ClearCurrentTask()
		if err = tx.Rooms().Update(room); err != nil {
			return NextResult{}, err
		}
	}
	s.log.Debug("Task voted", "room", task.RoomID, "task", task.ID, "duration", duration, "estimate", tally.FinalEstimate)
	return result, nil
}

// Reset discards every vote and restarts the round on the same task.
func (s *VoteService) Reset(tx contract.Tx, taskID, requesterID string) (domain.Task, error) {
	task, err := s.gate(tx, taskID, requesterID, authorization.ActionResetVoting)
	if err != nil {
		return domain.Task{}, err
	}
	room, err := tx.Rooms().FindByID(task.RoomID)
	if err != nil {
		return domain.Task{}, err
	}
	if _, err = tx.Votes().DeleteByTask(taskID); err != nil {
		return domain.Task{}, err
	}
	if err = startVoting(tx, &room, &task, s.clock.Now()); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

// gate resolves the task, checks the room still accepts changes, runs the
// matrix and checks a round is running.
func (s *VoteService) gate(tx contract.Tx, taskID, requesterID string, action authorization.Action) (domain.Task, error) {
	task, err := tx.Tasks().FindByID(taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if _, err = activeRoom(tx, task.RoomID); err != nil {
		return domain.Task{}, err
	}
	if _, err = authorize(tx, task.RoomID, requesterID, action); err != nil {
		return domain.Task{}, err
	}
	if !task.IsVoting() {
		return domain.Task{}, errors.ErrTaskNotVoting
	}
	return task, nil
}
