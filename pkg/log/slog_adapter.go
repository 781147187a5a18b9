package log

import (
	"context"
	"log/slog"
	"strings"
)

// SlogAdapter writes events to an slog.Logger at Debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a SlogAdapter that writes to logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	if event.SessionID != "" {
		attrs = append(attrs, slog.String("session_id", event.SessionID))
	}
	if event.Interface != "" {
		attrs = append(attrs, slog.String("interface", event.Interface))
	}
	if event.Endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", event.Endpoint))
	}

	switch {
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
	case event.ConfigChange != nil:
		attrs = append(attrs, slog.String("result", event.ConfigChange.Result))
		if event.ConfigChange.Source != "" {
			attrs = append(attrs, slog.String("source", event.ConfigChange.Source))
		}
		if len(event.ConfigChange.Keys) > 0 {
			attrs = append(attrs, slog.String("keys", strings.Join(event.ConfigChange.Keys, ",")))
		}
	case event.Handshake != nil:
		attrs = append(attrs, slog.Time("handshake", event.Handshake.At))
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "trace", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
