// Package runtime runs the rooms: one actor per room, the session protocol
// on top of it and the fan out of events after each commit.
// It contains no business rule, those live in services and authorization.
package runtime

import (
	"context"
	"log/slog"
	"planning-poker/contract"
	"planning-poker/errors"
	"planning-poker/runtime/workers"
	"sync"
	"time"
)

// RoomGauge is told when room actors come and go.
type RoomGauge interface {
	RoomStarted()
	RoomReleased()
}

// Orchestrator owns the room actors. An actor is started on the first job
// of a room and released after a quiet period, rooms run in parallel while
// the jobs of one room run one at a time.
type Orchestrator struct {
	mu          sync.Mutex
	log         *slog.Logger
	supervisor  contract.ISupervisor
	gauge       RoomGauge
	rooms       map[string]*workers.RoomWorker
	queueSize   int
	idleTimeout time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor, gauge RoomGauge,
	queueSize int, idleTimeout time.Duration) *Orchestrator {
	return &Orchestrator{
		log:         log,
		supervisor:  supervisor,
		gauge:       gauge,
		rooms:       make(map[string]*workers.RoomWorker),
		queueSize:   queueSize,
		idleTimeout: idleTimeout,
	}
}

// Add registers long running workers started with the orchestrator.
func (o *Orchestrator) Add(w ...contract.Worker) {
	o.supervisor.Add(w...)
}

// Start launches the supervisor in the background and returns.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ctx != nil {
		return nil
	}
	o.ctx, o.cancel = context.WithCancel(ctx)
	o.done = make(chan struct{})
	go func() {
		defer close(o.done)
		o.supervisor.Run(o.ctx)
	}()
	o.log.Info("Orchestrator started")
	return nil
}

// Do runs fn on the actor of roomID and waits for its result. A panic in fn
// is reported as ErrWorkerPanic, the actor keeps serving. A full room queue
// refuses the job with ErrRoomBusy.
func (o *Orchestrator) Do(ctx context.Context, roomID string, fn func(ctx context.Context) error) error {
	return o.do(ctx, roomID, fn, false)
}

// DoWait is Do for jobs that must not be lost: on a full queue it waits for
// room instead of refusing. Only ctx or a stop of the orchestrator ends the
// wait.
func (o *Orchestrator) DoWait(ctx context.Context, roomID string, fn func(ctx context.Context) error) error {
	return o.do(ctx, roomID, fn, true)
}

func (o *Orchestrator) do(ctx context.Context, roomID string, fn func(ctx context.Context) error, wait bool) error {
	result := make(chan error, 1)
	job := func(jobCtx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				o.log.Error("Room job panicked", "room", roomID, "panic", r)
				result <- errors.ErrWorkerPanic
			}
		}()
		result <- fn(jobCtx)
	}

	var stopped <-chan struct{}
	var err error
	if wait {
		stopped, err = o.enqueueWait(ctx, roomID, job)
	} else {
		stopped, err = o.enqueue(roomID, job)
	}
	if err != nil {
		return err
	}

	select {
	case err = <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-stopped:
		return errors.ErrCoordinatorStopped
	}
}

// worker returns the actor of roomID, starting it if needed. o.mu must be
// held.
func (o *Orchestrator) worker(roomID string) (*workers.RoomWorker, error) {
	if o.ctx == nil || o.ctx.Err() != nil {
		return nil, errors.ErrCoordinatorStopped
	}
	w, ok := o.rooms[roomID]
	if !ok {
		w = workers.NewRoomWorker(o.log, roomID, o.queueSize, o.idleTimeout, o.release)
		o.rooms[roomID] = w
		o.supervisor.Start(o.ctx, w)
		if o.gauge != nil {
			o.gauge.RoomStarted()
		}
	}
	return w, nil
}

func (o *Orchestrator) enqueue(roomID string, job workers.Job) (<-chan struct{}, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	w, err := o.worker(roomID)
	if err != nil {
		return nil, err
	}
	return o.ctx.Done(), w.Enqueue(job)
}

// enqueueWait blocks outside the lock so other rooms keep going. The actor
// is marked as awaited first, release refuses it until the job is queued.
func (o *Orchestrator) enqueueWait(ctx context.Context, roomID string, job workers.Job) (<-chan struct{}, error) {
	o.mu.Lock()
	w, err := o.worker(roomID)
	if err != nil {
		o.mu.Unlock()
		return nil, err
	}
	stopped := o.ctx.Done()
	w.Await()
	o.mu.Unlock()
	defer w.Arrived()

	if err = w.EnqueueWait(ctx, stopped, job); err != nil {
		if ctx.Err() == nil {
			return nil, errors.ErrCoordinatorStopped
		}
		return nil, err
	}
	return stopped, nil
}

// release is called by an idle actor. It runs under the same lock as
// enqueue, so a job is either queued before the actor leaves or lands on a
// fresh actor.
func (o *Orchestrator) release(w *workers.RoomWorker) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if w.Pending() > 0 || w.Awaited() {
		return false
	}
	if o.rooms[w.RoomID()] == w {
		delete(o.rooms, w.RoomID())
		if o.gauge != nil {
			o.gauge.RoomReleased()
		}
	}
	return true
}

// ActiveRooms is the number of room actors alive.
func (o *Orchestrator) ActiveRooms() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.rooms)
}

// Backlog sums the queued jobs of every room actor against their total
// capacity.
func (o *Orchestrator) Backlog() (length, capacity int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, w := range o.rooms {
		length += w.Pending()
	}
	return length, len(o.rooms) * o.queueSize
}

// Stop cancels every actor and waits for the supervised goroutines.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.mu.Lock()
	cancel, done := o.cancel, o.done
	for roomID := range o.rooms {
		delete(o.rooms, roomID)
		if o.gauge != nil {
			o.gauge.RoomReleased()
		}
	}
	o.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	o.supervisor.Stop()
	<-done
	o.supervisor.Wait()
	o.log.Debug("Orchestrator stopped")
}
