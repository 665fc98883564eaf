package workers

import (
	"context"
	"log/slog"
	"planning-poker/errors"
	"sync/atomic"
	"time"
)

// Job is one unit of work executed by a room actor.
type Job func(ctx context.Context)

// RoomWorker is the actor of one room: every job of the room runs on its
// goroutine, one at a time and in submission order. After idleTimeout
// without jobs it asks to be released and returns.
type RoomWorker struct {
	roomID      string
	jobs        chan Job
	idleTimeout time.Duration
	release     func(w *RoomWorker) bool
	log         *slog.Logger
	waiters     atomic.Int32
}

// NewRoomWorker builds the actor. release is called when the worker is
// idle, it must return true only if the worker was removed from its owner
// and no job can be enqueued anymore.
func NewRoomWorker(log *slog.Logger, roomID string, queueSize int, idleTimeout time.Duration, release func(w *RoomWorker) bool) *RoomWorker {
	return &RoomWorker{
		roomID:      roomID,
		jobs:        make(chan Job, queueSize),
		idleTimeout: idleTimeout,
		release:     release,
		log:         log.With("room", roomID),
	}
}

func (w *RoomWorker) RoomID() string { return w.roomID }

// Pending is the number of jobs waiting in the queue.
func (w *RoomWorker) Pending() int { return len(w.jobs) }

// Enqueue never blocks, a full queue is reported as ErrRoomBusy.
func (w *RoomWorker) Enqueue(job Job) error {
	select {
	case w.jobs <- job:
		return nil
	default:
		w.log.Warn("Room queue full, rejecting job")
		return errors.ErrRoomBusy
	}
}

// EnqueueWait waits for a free slot instead of refusing the job. It gives
// up when ctx or stopped is done.
func (w *RoomWorker) EnqueueWait(ctx context.Context, stopped <-chan struct{}, job Job) error {
	select {
	case w.jobs <- job:
		return nil
	default:
	}
	w.log.Debug("Room queue full, waiting for a slot")
	select {
	case w.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-stopped:
		return errors.ErrCoordinatorStopped
	}
}

// Await marks a caller about to wait for a slot, Arrived ends the mark.
// An awaited worker must not be released.
func (w *RoomWorker) Await()        { w.waiters.Add(1) }
func (w *RoomWorker) Arrived()      { w.waiters.Add(-1) }
func (w *RoomWorker) Awaited() bool { return w.waiters.Load() > 0 }

func (w *RoomWorker) Run(ctx context.Context) error {
	idle := time.NewTimer(w.idleTimeout)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping room worker")
			return nil
		case job := <-w.jobs:
			w.execute(ctx, job)
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(w.idleTimeout)
		case <-idle.C:
			if w.release(w) {
				w.log.Debug("Room worker released after idle period")
				return nil
			}
			idle.Reset(w.idleTimeout)
		}
	}
}

// execute isolates a failing job, the room keeps serving the next ones.
func (w *RoomWorker) execute(ctx context.Context, job Job) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Job panicked", "error", errors.ErrWorkerPanic, "panic", r)
		}
	}()
	job(ctx)
}
