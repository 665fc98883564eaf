package workers

import (
	"context"
	"log/slog"
	"planning-poker/contract"
	"planning-poker/domain/event"
	"time"
)

// Target tells the fanout which room an outbound event belongs to and which
// connection triggered it.
type Target struct {
	RoomID       string
	ConnectionID string
	Origin       contract.EventSink
}

// EventFanout resolves the scope of an outbound event into connections and
// hands the event to each of them. It is called by the room actor after a
// commit, so events of a room leave in mutation order.
//
// Each sink gets sinkTimeout to accept the event. Delivery telemetry is sent
// without blocking and dropped when nobody keeps up.
type EventFanout struct {
	log         *slog.Logger
	registry    contract.IRegistry
	telemetry   chan<- event.Delivery
	sinkTimeout time.Duration
}

func NewEventFanout(log *slog.Logger, registry contract.IRegistry, telemetry chan<- event.Delivery, sinkTimeout time.Duration) *EventFanout {
	return &EventFanout{log: log, registry: registry, telemetry: telemetry, sinkTimeout: sinkTimeout}
}

func (f *EventFanout) Publish(ctx context.Context, target Target, out event.Outbound) {
	sinks := f.resolve(target, out)
	delivery := event.Delivery{RoomID: target.RoomID, Name: out.Event.EventName(), Scope: out.Scope}
	for _, sink := range sinks {
		if f.consume(ctx, sink, out.Event) {
			delivery.Delivered++
		} else {
			delivery.Failed++
		}
	}
	f.report(delivery)
}

func (f *EventFanout) resolve(target Target, out event.Outbound) []contract.EventSink {
	switch out.Scope {
	case event.ScopeOrigin:
		if target.Origin != nil {
			return []contract.EventSink{target.Origin}
		}
		if sink, ok := f.registry.GetSink(target.ConnectionID); ok {
			return []contract.EventSink{sink}
		}
		return nil
	case event.ScopeRoom:
		return f.registry.GetSinksForRoom(target.RoomID)
	case event.ScopeOthers:
		return f.registry.GetSinksForRoomExcept(target.RoomID, target.ConnectionID)
	case event.ScopeUser:
		return f.registry.GetSinksForUser(target.RoomID, out.UserID)
	}
	f.log.Error("Unknown outbound scope", "scope", out.Scope, "event", out.Event.EventName())
	return nil
}

func (f *EventFanout) consume(ctx context.Context, sink contract.EventSink, e event.DomainEvent) bool {
	sinkCtx, cancel := context.WithTimeout(ctx, f.sinkTimeout)
	defer cancel()
	if err := sink.Consume(sinkCtx, e); err != nil {
		f.log.Debug("Sink rejected event", "event", e.EventName(), "error", err)
		return false
	}
	return true
}

func (f *EventFanout) report(d event.Delivery) {
	if f.telemetry == nil {
		return
	}
	select {
	case f.telemetry <- d:
	default:
		f.log.Debug("Delivery telemetry lost", "event", d.Name)
	}
}
