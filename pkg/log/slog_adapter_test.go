package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

func logToJSON(t *testing.T, event Event) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	NewSlogAdapter(slog.New(handler)).Log(event)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output %q: %v", buf.String(), err)
	}
	return entry
}

func TestSlogAdapterStateChange(t *testing.T) {
	entry := logToJSON(t, Event{
		Timestamp: time.Now(),
		SessionID: "session-1",
		Layer:     LayerTunnel,
		Category:  CategoryState,
		Interface: "wg0",
		StateChange: &StateChangeEvent{
			Entity:   StateEntityPeer,
			OldState: "DOWN",
			NewState: "UP",
		},
	})

	want := map[string]string{
		"msg":        "trace",
		"layer":      "TUNNEL",
		"category":   "STATE",
		"session_id": "session-1",
		"interface":  "wg0",
		"entity":     "PEER",
		"old_state":  "DOWN",
		"new_state":  "UP",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s: got %v, want %q", k, entry[k], v)
		}
	}
	if _, ok := entry["reason"]; ok {
		t.Error("reason should be omitted when empty")
	}
}

func TestSlogAdapterConfigChange(t *testing.T) {
	entry := logToJSON(t, Event{
		Layer:    LayerConfig,
		Category: CategoryConfig,
		ConfigChange: &ConfigChangeEvent{
			Result: "CHANGED",
			Source: "console",
			Keys:   []string{"persistent_keepalive"},
		},
	})

	if entry["result"] != "CHANGED" || entry["source"] != "console" {
		t.Errorf("got result=%v source=%v", entry["result"], entry["source"])
	}
	if entry["keys"] != "persistent_keepalive" {
		t.Errorf("keys: got %v", entry["keys"])
	}
}

func TestSlogAdapterError(t *testing.T) {
	entry := logToJSON(t, Event{
		Layer:    LayerEngine,
		Category: CategoryError,
		Error:    &ErrorEventData{Layer: LayerEngine, Message: "boom", Context: "add allowed ip"},
	})

	if entry["error_msg"] != "boom" || entry["error_context"] != "add allowed ip" {
		t.Errorf("got %v", entry)
	}
}

func TestSlogAdapterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	NewSlogAdapter(slog.New(handler)).Log(Event{Layer: LayerTunnel})

	if buf.Len() != 0 {
		t.Errorf("expected no output at Info level, got %q", buf.String())
	}
}
