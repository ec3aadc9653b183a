package eventbus

import "github.com/fntelecomllc/kbagent/internal/logging"

// LogSink adapts Bus to logging.Sink so every accepted log line is also
// published on ChannelLogMessage, giving real-time log fan-out a single
// code path instead of a second logging channel.
type LogSink struct{ bus *Bus }

// NewLogSink wraps bus as a logging.Sink.
func NewLogSink(bus *Bus) *LogSink { return &LogSink{bus: bus} }

// Accept implements logging.Sink.
func (s *LogSink) Accept(component string, level logging.Level, message string, fields map[string]any) {
	s.bus.Publish(Event{
		Channel:   ChannelLogMessage,
		LogLevel:  string(level),
		LogModule: component,
		Message:   message,
	})
}
