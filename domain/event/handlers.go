package event

// Handler reacts to the telemetry of one fanned out event.
// Handlers are chained by the telemetry worker, each one picks what it needs.
type Handler interface {
	Handle(d Delivery)
}
