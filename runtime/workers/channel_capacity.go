package workers

import (
	"context"
	"log/slog"
	"time"
)

// NamedQueue is a buffer whose usage is sampled. Usage returns the number of
// queued items and the capacity of the buffer.
type NamedQueue struct {
	Name  string
	Usage func() (length, capacity int)
}

// BacklogRecorder stores the last usage sampled for a queue.
type BacklogRecorder interface {
	RecordBacklog(name string, length, capacity int)
}

// ChannelCapacityWorker periodically samples the backlog of internal queues.
// Reading the length of a channel never blocks, a sample may be slightly
// stale which is fine for a gauge.
type ChannelCapacityWorker struct {
	log            *slog.Logger
	queues         []NamedQueue
	recorder       BacklogRecorder
	warnPercent    int
	metricInterval time.Duration
}

func NewChannelCapacityWorker(log *slog.Logger, queues []NamedQueue, recorder BacklogRecorder,
	warnPercent int, metricInterval time.Duration) *ChannelCapacityWorker {
	return &ChannelCapacityWorker{
		log:            log,
		queues:         queues,
		recorder:       recorder,
		warnPercent:    warnPercent,
		metricInterval: metricInterval,
	}
}

func (w *ChannelCapacityWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping capacity sampling")
			return nil
		case <-ticker.C:
			w.sample()
		}
	}
}

func (w *ChannelCapacityWorker) sample() {
	for _, q := range w.queues {
		length, capacity := q.Usage()
		w.recorder.RecordBacklog(q.Name, length, capacity)
		if capacity <= 0 {
			continue
		}
		if usage := length * 100 / capacity; usage >= w.warnPercent {
			w.log.Warn("Queue close to saturation", "queue", q.Name, "length", length, "capacity", capacity, "usage", usage)
		}
	}
}
