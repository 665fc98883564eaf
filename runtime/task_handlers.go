package runtime

import (
	"context"
	"planning-poker/contract"
	"planning-poker/domain"
	"planning-poker/domain/event"
	"planning-poker/services"
)

func (c *Coordinator) addTask(ctx context.Context, s *Session, cmd *domain.AddTaskCommand) error {
	roomID, userID, err := seated(s)
	if err != nil {
		return err
	}
	return c.exec(ctx, c.target(roomID, s), func(tx contract.Tx, out *Outbox) error {
		result, err := c.tasks.Add(tx, roomID, userID, cmd.Title)
		if err != nil {
			return err
		}
		announceAdded(out, result)
		return nil
	})
}

func (c *Coordinator) addTasksBulk(ctx context.Context, s *Session, cmd *domain.AddTasksBulkCommand) error {
	roomID, userID, err := seated(s)
	if err != nil {
		return err
	}
	return c.exec(ctx, c.target(roomID, s), func(tx contract.Tx, out *Outbox) error {
		result, err := c.tasks.AddBulk(tx, roomID, userID, cmd.Titles)
		if err != nil {
			return err
		}
		announceAdded(out, result)
		return nil
	})
}

func announceAdded(out *Outbox, result services.AddResult) {
	for _, task := range result.Tasks {
		out.ToRoom(event.TaskAdded{Task: task})
	}
	if result.Promoted != nil {
		announceCurrent(out, *result.Promoted, nil)
	}
}

// announceCurrent tells the room which task is now being voted on and
// restarts the timers of the clients.
func announceCurrent(out *Outbox, task domain.Task, previousDuration *int) {
	out.ToRoom(event.TaskCurrentChanged{TaskID: task.ID, PreviousTaskDuration: previousDuration})
	if task.VotingStartedAt != nil {
		out.ToRoom(event.TimerSync{StartedAt: *task.VotingStartedAt})
	}
}

func (c *Coordinator) reorderTask(ctx context.Context, s *Session, cmd *domain.ReorderTaskCommand) error {
	roomID, userID, err := seated(s)
	if err != nil {
		return err
	}
	return c.exec(ctx, c.target(roomID, s), func(tx contract.Tx, out *Outbox) error {
		result, err := c.tasks.Reorder(tx, roomID, userID, cmd.TaskID, *cmd.NewOrder)
		if err != nil {
			return err
		}
		out.ToRoom(event.TaskOrderUpdated{Tasks: result.Tasks})
		if result.PreviousTaskDiscarded && result.Current != nil {
			discarded := 0
			announceCurrent(out, *result.Current, &discarded)
		}
		return nil
	})
}

func (c *Coordinator) updateTaskTitle(ctx context.Context, s *Session, cmd *domain.UpdateTaskTitleCommand) error {
	roomID, userID, err := seated(s)
	if err != nil {
		return err
	}
	return c.exec(ctx, c.target(roomID, s), func(tx contract.Tx, out *Outbox) error {
		task, err := c.tasks.UpdateTitle(tx, roomID, userID, cmd.TaskID, cmd.Title)
		if err != nil {
			return err
		}
		out.ToRoom(event.TaskUpdated{Task: task})
		return nil
	})
}
