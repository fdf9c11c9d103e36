package events

// Event represents a structured state change emitted by the registry.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is the default when a component does not care about event delivery.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Recorder collects emitted events in order. Tests use it to assert that
// events fire only for committed operations.
type Recorder struct {
	Events []Event
}

// Emit implements the Emitter interface.
func (r *Recorder) Emit(evt Event) {
	r.Events = append(r.Events, evt)
}

// ByType returns the recorded events matching the supplied type.
func (r *Recorder) ByType(eventType string) []Event {
	var out []Event
	for _, evt := range r.Events {
		if evt.EventType() == eventType {
			out = append(out, evt)
		}
	}
	return out
}
