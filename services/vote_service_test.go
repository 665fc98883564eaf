package services

import (
	"planning-poker/contract"
	"planning-poker/domain"
	"planning-poker/errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func votes(values ...int) []domain.Vote {
	out := make([]domain.Vote, 0, len(values))
	for i, v := range values {
		out = append(out, domain.Vote{ID: string(rune('a' + i)), Value: v})
	}
	return out
}

func TestComputeTally(t *testing.T) {
	tests := []struct {
		name        string
		votes       []domain.Vote
		estimate    *int
		percentages map[int]int
	}{
		{"no vote", nil, nil, map[int]int{}},
		{"single vote", votes(3), intPtr(3), map[int]int{3: 100}},
		{"tie goes to the larger value", votes(3, 5), intPtr(5), map[int]int{3: 50, 5: 50}},
		{"majority wins", votes(5, 5, 3), intPtr(5), map[int]int{5: 67, 3: 33}},
		{"majority on a small value", votes(1, 1, 8), intPtr(1), map[int]int{1: 67, 8: 33}},
		{"zero is a real estimate", votes(0, 0), intPtr(0), map[int]int{0: 100}},
		{"three way tie", votes(1, 2, 8), intPtr(8), map[int]int{1: 33, 2: 33, 8: 33}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			tally := ComputeTally(tt.votes)
			req.Equal(tt.estimate, tally.FinalEstimate)
			req.Equal(tt.percentages, tally.Percentages)
			req.NotNil(tally.Votes)
		})
	}
}

func intPtr(v int) *int { return &v }

func TestVoteService_Submit(t *testing.T) {
	t.Run("all connected voters trigger all voted", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, fixedRandom(0))
		room, alice := f.createRoom("sprint", "Alice")
		bob := f.join(room.ID, "Bob")
		task := f.addTasks(room.ID, alice.ID, "A")[0]

		first := f.vote(task.ID, alice.ID, 3)
		req.False(first.AllVoted)
		req.False(first.IsUpdate)

		second := f.vote(task.ID, bob.ID, 5)
		req.True(second.AllVoted)
		req.False(second.AlreadyRevealed)
	})

	t.Run("observers and disconnected users are not waited for", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, fixedRandom(0))
		room, alice := f.createRoom("sprint", "Alice")
		olga := f.join(room.ID, "Olga")
		dave := f.join(room.ID, "Dave")
		f.setRole(olga.ID, domain.RoleObserver)
		f.update(func(tx contract.Tx) error {
			_, err := f.rooms.Disconnect(tx, room.ID, dave.ID)
			return err
		})
		task := f.addTasks(room.ID, alice.ID, "A")[0]

		result := f.vote(task.ID, alice.ID, 8)

		req.True(result.AllVoted)
	})

	t.Run("second vote of a user replaces the first", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, fixedRandom(0))
		room, alice := f.createRoom("sprint", "Alice")
		f.join(room.ID, "Bob")
		task := f.addTasks(room.ID, alice.ID, "A")[0]

		f.vote(task.ID, alice.ID, 3)
		f.clock.Advance(time.Second)
		result := f.vote(task.ID, alice.ID, 8)

		req.True(result.IsUpdate)
		stored := f.votesOf(task.ID)
		req.Len(stored, 1)
		req.Equal(8, stored[0].Value)
		req.True(stored[0].UpdatedAt.After(stored[0].CreatedAt))
	})

	t.Run("observer vote is refused and leaves no record", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, fixedRandom(0))
		room, alice := f.createRoom("sprint", "Alice")
		olga := f.join(room.ID, "Olga")
		f.setRole(olga.ID, domain.RoleObserver)
		task := f.addTasks(room.ID, alice.ID, "A")[0]

		err := f.try(func(tx contract.Tx) error {
			_, err := f.votes.Submit(tx, task.ID, olga.ID, 5)
			return err
		})

		req.ErrorIs(err, errors.ErrNotAuthorized)
		req.Empty(f.votesOf(task.ID))
	})

	t.Run("value outside the deck is refused", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, fixedRandom(0))
		room, alice := f.createRoom("sprint", "Alice")
		task := f.addTasks(room.ID, alice.ID, "A")[0]

		err := f.try(func(tx contract.Tx) error {
			_, err := f.votes.Submit(tx, task.ID, alice.ID, 4)
			return err
		})

		req.ErrorIs(err, errors.ErrInvalidVoteValue)
		req.ErrorIs(err, errors.ErrValidation)
	})

	t.Run("pending task does not take votes", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, fixedRandom(0))
		room, alice := f.createRoom("sprint", "Alice")
		tasks := f.addTasks(room.ID, alice.ID, "A", "B")

		err := f.try(func(tx contract.Tx) error {
			_, err := f.votes.Submit(tx, tasks[1].ID, alice.ID, 5)
			return err
		})

		req.ErrorIs(err, errors.ErrTaskNotVoting)
	})
}

func TestVoteService_Reveal(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, fixedRandom(0))
	room, alice := f.createRoom("sprint", "Alice")
	bob := f.join(room.ID, "Bob")
	task := f.addTasks(room.ID, alice.ID, "A")[0]
	f.vote(task.ID, alice.ID, 5)

	// A voter cannot reveal
	err := f.try(func(tx contract.Tx) error {
		_, err := f.votes.Reveal(tx, task.ID, bob.ID)
		return err
	})
	req.ErrorIs(err, errors.ErrNotAuthorized)

	var tally domain.Tally
	f.update(func(tx contract.Tx) error {
		var err error
		tally, err = f.votes.Reveal(tx, task.ID, alice.ID)
		return err
	})

	req.Equal(5, *tally.FinalEstimate)
	req.Len(tally.Votes, 1)
	stored := f.task(task.ID)
	req.True(stored.Revealed)
	req.Equal(domain.TaskVoting, stored.Status)

	// A late vote after reveal is flagged so it can be re-tallied
	result := f.vote(task.ID, bob.ID, 3)
	req.True(result.AlreadyRevealed)
}

func TestVoteService_Next(t *testing.T) {
	t.Run("closes the round and promotes the next pending task", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, fixedRandom(0))
		room, alice := f.createRoom("sprint", "Alice")
		bob := f.join(room.ID, "Bob")
		tasks := f.addTasks(room.ID, alice.ID, "A", "B")
		f.vote(tasks[0].ID, alice.ID, 5)
		f.vote(tasks[0].ID, bob.ID, 5)

		f.clock.Advance(42*time.Second + 700*time.Millisecond)

		var result NextResult
		f.update(func(tx contract.Tx) error {
			var err error
			result, err = f.votes.Next(tx, tasks[0].ID, alice.ID)
			return err
		})

		req.Equal(42, result.Duration)
		finished := f.task(tasks[0].ID)
		req.Equal(domain.TaskVoted, finished.Status)
		req.Equal(5, *finished.FinalEstimate)
		req.Equal(42, *finished.VotingDurationSeconds)

		req.NotNil(result.Next)
		req.Equal(tasks[1].ID, result.Next.ID)
		next := f.task(tasks[1].ID)
		req.Equal(domain.TaskVoting, next.Status)
		req.Equal(f.clock.Now(), *next.VotingStartedAt)
		req.Equal(tasks[1].ID, *f.room(room.ID).CurrentTaskID)
	})

	t.Run("last task leaves the room without current task", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, fixedRandom(0))
		room, alice := f.createRoom("sprint", "Alice")
		task := f.addTasks(room.ID, alice.ID, "A")[0]

		var result NextResult
		f.update(func(tx contract.Tx) error {
			var err error
			result, err = f.votes.Next(tx, task.ID, alice.ID)
			return err
		})

		req.Nil(result.Next)
		req.Nil(result.Finished.FinalEstimate)
		req.Equal(0, result.Duration)
		req.Nil(f.room(room.ID).CurrentTaskID)
	})

	t.Run("summary lists the slowest tasks", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, fixedRandom(0))
		room, alice := f.createRoom("sprint", "Alice")
		tasks := f.addTasks(room.ID, alice.ID, "A", "B", "C", "D")
		for i, task := range tasks {
			f.clock.Advance(time.Duration(10*(i+1)) * time.Second)
			f.update(func(tx contract.Tx) error {
				_, err := f.votes.Next(tx, task.ID, alice.ID)
				return err
			})
		}

		var summary domain.RoomSummary
		f.update(func(tx contract.Tx) error {
			var err error
			summary, err = f.tasks.Summary(tx, room.ID)
			return err
		})

		req.Equal(4, summary.VotedTasks)
		req.Equal(100, summary.TotalVotingSeconds)
		req.Len(summary.Slowest, 3)
		req.Equal("D", summary.Slowest[0].Title)
		req.Equal("C", summary.Slowest[1].Title)
		req.Equal("B", summary.Slowest[2].Title)
	})
}

func TestVoteService_Reset(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, fixedRandom(0))
	room, alice := f.createRoom("sprint", "Alice")
	task := f.addTasks(room.ID, alice.ID, "A")[0]
	f.vote(task.ID, alice.ID, 8)
	f.update(func(tx contract.Tx) error {
		_, err := f.votes.Reveal(tx, task.ID, alice.ID)
		return err
	})
	f.clock.Advance(time.Minute)

	f.update(func(tx contract.Tx) error {
		_, err := f.votes.Reset(tx, task.ID, alice.ID)
		return err
	})

	stored := f.task(task.ID)
	req.Empty(f.votesOf(task.ID))
	req.False(stored.Revealed)
	req.Equal(domain.TaskVoting, stored.Status)
	req.Equal(f.clock.Now(), *stored.VotingStartedAt)
}

func TestVoteService_Finished_Room_Rejects_Votes(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, fixedRandom(0))
	room, alice := f.createRoom("sprint", "Alice")
	task := f.addTasks(room.ID, alice.ID, "A")[0]
	f.update(func(tx contract.Tx) error {
		_, err := f.rooms.Finish(tx, room.ID, alice.ID)
		return err
	})

	err := f.try(func(tx contract.Tx) error {
		_, err := f.votes.Submit(tx, task.ID, alice.ID, 5)
		return err
	})

	req.ErrorIs(err, errors.ErrRoomFinished)
}
