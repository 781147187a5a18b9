package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bvweerd/wgtunnel/pkg/log"
)

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [session:id] LAYER Type
	ts := event.Timestamp.UTC().Format(timestampFormat)
	fmt.Fprintf(w, "%s [session:%s] %s %s\n",
		ts, shortenSessionID(event.SessionID), event.Layer.String(), strings.ToUpper(eventType(event)))

	if event.Interface != "" || event.Endpoint != "" {
		fmt.Fprintf(w, "  Interface: %s  Endpoint: %s\n", orDash(event.Interface), orDash(event.Endpoint))
	}

	switch {
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	case event.ConfigChange != nil:
		formatConfigChangeDetails(w, event.ConfigChange)
	case event.Handshake != nil:
		fmt.Fprintf(w, "  At: %s\n", event.Handshake.At.UTC().Format(time.RFC3339))
	}

	fmt.Fprintln(w) // Blank line between events
}

// formatStateChangeDetails writes state change details.
func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity.String())
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

// formatErrorDetails writes error details.
func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer.String())
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

func formatConfigChangeDetails(w io.Writer, cc *log.ConfigChangeEvent) {
	fmt.Fprintf(w, "  Result: %s\n", cc.Result)
	if cc.Source != "" {
		fmt.Fprintf(w, "  Source: %s\n", cc.Source)
	}
	if len(cc.Keys) > 0 {
		fmt.Fprintf(w, "  Keys: %s\n", strings.Join(cc.Keys, ", "))
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// RunView executes the view command.
func RunView(path string, filter log.Filter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if errors.Is(err, log.ErrTruncated) {
			fmt.Fprintf(output, "warning: %v\n", err)
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		formatEvent(output, event)
	}

	return nil
}
