package eventbus

// ObservabilityAdapter satisfies observability.Publisher, translating a
// bare channel name and telemetry map into a typed Event so the resource
// monitor never needs to import this package's Channel/Event types.
type ObservabilityAdapter struct{ bus *Bus }

// NewObservabilityAdapter wraps bus for use as an observability.Publisher.
func NewObservabilityAdapter(bus *Bus) *ObservabilityAdapter {
	return &ObservabilityAdapter{bus: bus}
}

// Publish implements observability.Publisher.
func (a *ObservabilityAdapter) Publish(channel string, telemetry map[string]float64) {
	a.bus.Publish(Event{Channel: Channel(channel), Telemetry: telemetry})
}
