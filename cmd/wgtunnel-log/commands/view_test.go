package commands

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bvweerd/wgtunnel/pkg/log"
)

const testSession = "3f2a9c1e-7b44-4d0a-9a55-0d1c2e3f4a5b"

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.wglog")

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	return path
}

func sampleEvents() []log.Event {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)
	return []log.Event{
		{
			Timestamp: ts,
			Layer:     log.LayerConfig,
			Category:  log.CategoryConfig,
			ConfigChange: &log.ConfigChangeEvent{
				Result: "CHANGED_RESTART",
				Source: "rest",
				Keys:   []string{"endpoint", "enabled"},
			},
		},
		{
			Timestamp: ts.Add(time.Second),
			SessionID: testSession,
			Layer:     log.LayerTunnel,
			Category:  log.CategoryState,
			Interface: "wg0",
			Endpoint:  "vpn.example.com:51820",
			StateChange: &log.StateChangeEvent{
				Entity:   log.StateEntityTunnel,
				OldState: "CONNECTING",
				NewState: "CONNECTED",
			},
		},
		{
			Timestamp: ts.Add(2 * time.Second),
			SessionID: testSession,
			Layer:     log.LayerEngine,
			Category:  log.CategoryHandshake,
			Interface: "wg0",
			Handshake: &log.HandshakeEvent{At: ts.Add(2 * time.Second)},
		},
		{
			Timestamp: ts.Add(3 * time.Second),
			SessionID: testSession,
			Layer:     log.LayerEngine,
			Category:  log.CategoryError,
			Error: &log.ErrorEventData{
				Layer:   log.LayerEngine,
				Message: "endpoint unresolved",
				Context: "connect",
			},
		},
	}
}

func TestFormatEventStateChange(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sampleEvents()[1])
	out := buf.String()

	for _, want := range []string{
		"2026-01-28T10:15:33.123456Z",
		"[session:3f2a9c1e]",
		"TUNNEL STATE",
		"Interface: wg0  Endpoint: vpn.example.com:51820",
		"Entity: TUNNEL",
		"CONNECTING -> CONNECTED",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestFormatEventConfigChange(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sampleEvents()[0])
	out := buf.String()

	if !strings.Contains(out, "[session:-]") {
		t.Errorf("expected empty session marker, got:\n%s", out)
	}
	if !strings.Contains(out, "Result: CHANGED_RESTART") {
		t.Errorf("expected result, got:\n%s", out)
	}
	if !strings.Contains(out, "Keys: endpoint, enabled") {
		t.Errorf("expected keys, got:\n%s", out)
	}
}

func TestFormatEventError(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sampleEvents()[3])
	out := buf.String()

	if !strings.Contains(out, "Message: endpoint unresolved") {
		t.Errorf("expected message, got:\n%s", out)
	}
	if !strings.Contains(out, "Context: connect") {
		t.Errorf("expected context, got:\n%s", out)
	}
}

func TestRunViewWithFilter(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	layer := log.LayerEngine
	var buf bytes.Buffer
	if err := RunView(path, log.Filter{Layer: &layer}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	out := buf.String()
	if strings.Contains(out, "TUNNEL STATE") || strings.Contains(out, "CONFIG CONFIG") {
		t.Errorf("filter did not exclude other layers:\n%s", out)
	}
	if got := strings.Count(out, "ENGINE "); got != 2 {
		t.Errorf("expected 2 engine events, got %d:\n%s", got, out)
	}
}

func TestRunViewMissingFile(t *testing.T) {
	var buf bytes.Buffer
	if err := RunView(filepath.Join(t.TempDir(), "missing.wglog"), log.Filter{}, &buf); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParseFlags(t *testing.T) {
	if l, err := ParseLayerFlag("Tunnel"); err != nil || l != log.LayerTunnel {
		t.Errorf("ParseLayerFlag(Tunnel) = %v, %v", l, err)
	}
	if _, err := ParseLayerFlag("wire"); err == nil {
		t.Error("expected error for unknown layer")
	}
	if c, err := ParseCategoryFlag("HANDSHAKE"); err != nil || c != log.CategoryHandshake {
		t.Errorf("ParseCategoryFlag(HANDSHAKE) = %v, %v", c, err)
	}
	if _, err := ParseCategoryFlag("message"); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestFilterOptionsBuild(t *testing.T) {
	opts := FilterOptions{
		SessionID: testSession,
		TimeStart: "2026-01-28T10:00:00Z",
		TimeEnd:   "2026-01-28T11:00:00Z",
		Layer:     "engine",
		Category:  "error",
	}
	f, err := opts.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if f.SessionID != testSession || f.Layer == nil || *f.Layer != log.LayerEngine ||
		f.Category == nil || *f.Category != log.CategoryError ||
		f.TimeStart == nil || f.TimeEnd == nil {
		t.Errorf("unexpected filter: %+v", f)
	}

	if _, err := (FilterOptions{TimeStart: "yesterday"}).Build(); err == nil {
		t.Error("expected error for bad time-start")
	}

	f, err = (FilterOptions{Entity: "Route", Source: "rest", Operation: "connect", Interface: "wg0"}).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if f.Entity == nil || *f.Entity != log.StateEntityRoute || f.Source != "rest" ||
		f.Operation != "connect" || f.Interface != "wg0" {
		t.Errorf("unexpected filter: %+v", f)
	}
	if _, err := (FilterOptions{Entity: "zone"}).Build(); err == nil {
		t.Error("expected error for unknown entity")
	}
}
