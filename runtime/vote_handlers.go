package runtime

import (
	"context"
	"planning-poker/contract"
	"planning-poker/domain"
	"planning-poker/domain/event"
)

// submitVote records the vote on the current task. A round already revealed
// is re-tallied, a round where everybody voted reveals itself.
func (c *Coordinator) submitVote(ctx context.Context, s *Session, cmd *domain.SubmitVoteCommand) error {
	roomID, userID, err := seated(s)
	if err != nil {
		return err
	}
	return c.exec(ctx, c.target(roomID, s), func(tx contract.Tx, out *Outbox) error {
		current, err := c.tasks.Current(tx, roomID)
		if err != nil {
			return err
		}
		result, err := c.votes.Submit(tx, current.ID, userID, *cmd.Value)
		if err != nil {
			return err
		}
		if result.IsUpdate {
			out.ToRoom(event.VoteUpdated{UserID: userID})
		} else {
			out.ToRoom(event.VoteRegistered{UserID: userID})
		}

		var tally *domain.Tally
		switch {
		case result.AlreadyRevealed:
			t, err := c.votes.Tally(tx, current.ID)
			if err != nil {
				return err
			}
			tally = &t
		case result.AllVoted && !result.IsUpdate:
			t, err := c.votes.MarkRevealed(tx, current.ID)
			if err != nil {
				return err
			}
			tally = &t
		}
		if tally != nil {
			out.ToRoom(event.VotingRevealed{Tally: *tally})
		}
		return nil
	})
}

func (c *Coordinator) revealVotes(ctx context.Context, s *Session, _ *domain.RevealVotesCommand) error {
	roomID, userID, err := seated(s)
	if err != nil {
		return err
	}
	return c.exec(ctx, c.target(roomID, s), func(tx contract.Tx, out *Outbox) error {
		current, err := c.tasks.Current(tx, roomID)
		if err != nil {
			return err
		}
		tally, err := c.votes.Reveal(tx, current.ID, userID)
		if err != nil {
			return err
		}
		out.ToRoom(event.VotingRevealed{Tally: tally})
		return nil
	})
}

func (c *Coordinator) nextTask(ctx context.Context, s *Session, _ *domain.NextTaskCommand) error {
	roomID, userID, err := seated(s)
	if err != nil {
		return err
	}
	return c.exec(ctx, c.target(roomID, s), func(tx contract.Tx, out *Outbox) error {
		current, err := c.tasks.Current(tx, roomID)
		if err != nil {
			return err
		}
		result, err := c.votes.Next(tx, current.ID, userID)
		if err != nil {
			return err
		}
		tasks, err := c.tasks.List(tx, roomID)
		if err != nil {
			return err
		}
		out.ToRoom(event.TaskOrderUpdated{Tasks: tasks})

		next := event.VotingNextTask{PreviousTaskDuration: result.Duration}
		if result.Next != nil {
			next.TaskID = &result.Next.ID
		}
		out.ToRoom(next)
		if result.Next != nil && result.Next.VotingStartedAt != nil {
			out.ToRoom(event.TimerSync{StartedAt: *result.Next.VotingStartedAt})
		}
		return nil
	})
}

func (c *Coordinator) resetVoting(ctx context.Context, s *Session, _ *domain.ResetVotingCommand) error {
	roomID, userID, err := seated(s)
	if err != nil {
		return err
	}
	return c.exec(ctx, c.target(roomID, s), func(tx contract.Tx, out *Outbox) error {
		current, err := c.tasks.Current(tx, roomID)
		if err != nil {
			return err
		}
		task, err := c.votes.Reset(tx, current.ID, userID)
		if err != nil {
			return err
		}
		out.ToRoom(event.VotingReset{})
		if task.VotingStartedAt != nil {
			out.ToRoom(event.TimerSync{StartedAt: *task.VotingStartedAt})
		}
		return nil
	})
}
