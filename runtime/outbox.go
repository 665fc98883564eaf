package runtime

import "planning-poker/domain/event"

// step is either an outbound event or a side effect on the runtime state.
type step struct {
	out    *event.Outbound
	action func()
}

// Outbox collects what a handler wants to happen once its transaction
// committed. Steps run in the order they were added, a failed transaction
// drops them all.
type Outbox struct {
	steps []step
}

func (o *Outbox) reset() { o.steps = o.steps[:0] }

func (o *Outbox) send(scope event.Scope, userID string, e event.DomainEvent) {
	o.steps = append(o.steps, step{out: &event.Outbound{Scope: scope, UserID: userID, Event: e}})
}

func (o *Outbox) ToOrigin(e event.DomainEvent) { o.send(event.ScopeOrigin, "", e) }
func (o *Outbox) ToRoom(e event.DomainEvent)   { o.send(event.ScopeRoom, "", e) }
func (o *Outbox) ToOthers(e event.DomainEvent) { o.send(event.ScopeOthers, "", e) }

func (o *Outbox) ToUser(userID string, e event.DomainEvent) {
	o.send(event.ScopeUser, userID, e)
}

// After schedules fn between the events already queued and the next ones.
func (o *Outbox) After(fn func()) {
	o.steps = append(o.steps, step{action: fn})
}
