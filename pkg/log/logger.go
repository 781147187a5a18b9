package log

// Logger receives trace events.
// Pass nil or NoopLogger to disable tracing.
type Logger interface {
	// Log records an event. Implementations must be thread-safe and must not
	// block for long; the tunnel run loop calls Log inline.
	Log(event Event)
}

// NoopLogger discards all events.
// NoopLogger is safe for concurrent use and usable as a zero value.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// Compile-time interface satisfaction check.
var _ Logger = NoopLogger{}
