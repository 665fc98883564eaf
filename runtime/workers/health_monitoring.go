package workers

import (
	"context"
	"log/slog"
	"os"
	"planning-poker/observability"
	"time"

	"github.com/shirou/gopsutil/process"
)

// ProcessRecorder stores the last sample of the process health.
type ProcessRecorder interface {
	RecordProcess(stats observability.ProcessStats)
}

// HealthMonitoringWorker samples cpu and memory of the running process.
type HealthMonitoringWorker struct {
	log            *slog.Logger
	recorder       ProcessRecorder
	metricInterval time.Duration
	pid            int32
}

func NewHealthMonitoringWorker(log *slog.Logger, recorder ProcessRecorder, metricInterval time.Duration) *HealthMonitoringWorker {
	return &HealthMonitoringWorker{
		log:            log,
		recorder:       recorder,
		metricInterval: metricInterval,
		pid:            int32(os.Getpid()),
	}
}

func (w *HealthMonitoringWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(w.pid)
	if err != nil {
		return err
	}
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health monitoring")
			return nil
		case <-ticker.C:
			w.sample(p)
		}
	}
}

func (w *HealthMonitoringWorker) sample(p *process.Process) {
	stats := observability.ProcessStats{PID: w.pid, Status: observability.Unknown, SampledAt: time.Now().UTC()}
	status, err := p.Status()
	if err != nil {
		w.log.Debug("Error while finding process status", "error", err)
	} else {
		stats.Status = observability.ToStatus(status)
	}
	if stats.CPUPercent, err = p.CPUPercent(); err != nil {
		w.log.Debug("Error while finding process cpu usage", "error", err)
	}
	if stats.MemoryPercent, err = p.MemoryPercent(); err != nil {
		w.log.Debug("Error while finding process ram usage", "error", err)
	}
	if info, err := p.MemoryInfo(); err == nil {
		stats.RSSBytes = info.RSS
	}
	w.recorder.RecordProcess(stats)
}
