package workers

import (
	"context"
	"log/slog"
	"os"
	"planning-poker/observability"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type processRecorder struct {
	samples chan observability.ProcessStats
}

func (r processRecorder) RecordProcess(stats observability.ProcessStats) {
	select {
	case r.samples <- stats:
	default:
	}
}

func TestHealthMonitoringWorker_Samples_The_Process(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	recorder := processRecorder{samples: make(chan observability.ProcessStats, 1)}
	worker := NewHealthMonitoringWorker(log, recorder, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	// Then a sample of the current process is recorded
	select {
	case stats := <-recorder.samples:
		req.Equal(int32(os.Getpid()), stats.PID)
		req.False(stats.SampledAt.IsZero())
		req.NotEmpty(stats.Status)
	case <-time.After(2 * time.Second):
		req.Fail("No process sample recorded")
	}

	cancel()
	req.NoError(<-done)
}
