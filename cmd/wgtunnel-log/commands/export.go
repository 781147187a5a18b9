package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bvweerd/wgtunnel/pkg/log"
)

// RunExport exports the log file to the specified format.
func RunExport(path, format, output string) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	// Determine output writer
	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "jsonl":
		return exportJSONL(reader, w)
	case "csv":
		return exportCSV(reader, w)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
	return nil
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"timestamp", "session_id", "layer", "category", "interface", "endpoint", "type", "detail"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		row := []string{
			event.Timestamp.UTC().Format(timestampFormat),
			event.SessionID,
			event.Layer.String(),
			event.Category.String(),
			event.Interface,
			event.Endpoint,
			eventType(event),
			eventDetail(event),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return nil
}

// eventDetail summarises the payload in one CSV cell.
func eventDetail(event log.Event) string {
	switch {
	case event.StateChange != nil:
		return event.StateChange.Entity.String() + ":" + event.StateChange.OldState + "->" + event.StateChange.NewState
	case event.Error != nil:
		return event.Error.Context + ": " + event.Error.Message
	case event.ConfigChange != nil:
		return event.ConfigChange.Result + " " + strings.Join(event.ConfigChange.Keys, ";")
	case event.Handshake != nil:
		return event.Handshake.At.UTC().Format(timestampFormat)
	default:
		return ""
	}
}
