package workers

import (
	"context"
	"log/slog"
	"planning-poker/domain/event"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type recordingHandler struct {
	seen chan event.Delivery
}

func (h recordingHandler) Handle(d event.Delivery) { h.seen <- d }

func TestTelemetryWorker_Dispatches_To_Every_Handler(t *testing.T) {
	defer goleak.VerifyNone(t)
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	deliveries := make(chan event.Delivery, 4)
	failed := event.NewFailedDeliveryHandler(log)
	recorder := recordingHandler{seen: make(chan event.Delivery, 4)}
	worker := NewTelemetryWorker(log, deliveries, failed, recorder)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	// When two deliveries come in, one of them partially failed
	deliveries <- event.Delivery{RoomID: "room-1", Name: event.VotingRevealedType, Delivered: 3}
	deliveries <- event.Delivery{RoomID: "room-1", Name: event.VotingRevealedType, Delivered: 1, Failed: 2}

	// Then both reach the handlers in order
	for _, want := range []int{0, 2} {
		select {
		case d := <-recorder.seen:
			req.Equal(want, d.Failed)
		case <-time.After(time.Second):
			req.Fail("Delivery was not handled")
		}
	}
	req.Equal(2, failed.Failed(event.VotingRevealedType))
	req.Zero(failed.Failed(event.TimerSyncType))

	cancel()
	req.NoError(<-done)
}
