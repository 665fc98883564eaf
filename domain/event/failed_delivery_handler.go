package event

import (
	"log/slog"
	"sync"
)

// FailedDeliveryHandler keeps track of deliveries that did not reach every
// connection. A connection that keeps failing is most likely a slow
// consumer about to be closed.
type FailedDeliveryHandler struct {
	log    *slog.Logger
	mu     sync.Mutex
	failed map[string]int
}

func NewFailedDeliveryHandler(log *slog.Logger) *FailedDeliveryHandler {
	return &FailedDeliveryHandler{log: log, failed: make(map[string]int)}
}

func (h *FailedDeliveryHandler) Handle(d Delivery) {
	if d.Failed == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failed[d.Name] += d.Failed
	h.log.Debug("Event not delivered to every connection",
		"room", d.RoomID, "event", d.Name, "scope", d.Scope, "failed", d.Failed, "total", h.failed[d.Name])
}

// Failed returns how many deliveries of name failed so far.
func (h *FailedDeliveryHandler) Failed(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.failed[name]
}
