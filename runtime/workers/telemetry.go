package workers

import (
	"context"
	"log/slog"
	"planning-poker/domain/event"
)

// TelemetryWorker drains delivery records and passes each one along the
// handler chain.
type TelemetryWorker struct {
	log        *slog.Logger
	deliveries <-chan event.Delivery
	handlers   []event.Handler
}

func NewTelemetryWorker(log *slog.Logger, deliveries <-chan event.Delivery, handlers ...event.Handler) *TelemetryWorker {
	return &TelemetryWorker{log: log, deliveries: deliveries, handlers: handlers}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping telemetry")
			return nil
		case d := <-w.deliveries:
			for _, h := range w.handlers {
				h.Handle(d)
			}
		}
	}
}
