package commands

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/bvweerd/wgtunnel/pkg/log"
)

func TestStatsSummary(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Total Events: 4",
		"ENGINE:",
		"TUNNEL:",
		"CONFIG:",
		"HANDSHAKE:",
		"Sessions: 1",
		"[3f2a9c1e] 3 events",
		"Endpoint: vpn.example.com:51820",
		"Connects: 1  Disconnects: 0",
		"Handshakes: 1",
		"Config Changes: 1",
		"Errors: 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestStatsCountsDisconnects(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	state := func(offset time.Duration, from, to string) log.Event {
		return log.Event{
			Timestamp:   ts.Add(offset),
			SessionID:   testSession,
			Layer:       log.LayerTunnel,
			Category:    log.CategoryState,
			StateChange: &log.StateChangeEvent{Entity: log.StateEntityTunnel, OldState: from, NewState: to},
		}
	}
	path := createTestLogFile(t, []log.Event{
		state(0, "CONNECTING", "CONNECTED"),
		state(time.Second, "CONNECTED", "CONNECTING"),
		state(2*time.Second, "CONNECTING", "CONNECTED"),
	})

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	if out := buf.String(); !strings.Contains(out, "Connects: 2  Disconnects: 1") {
		t.Errorf("unexpected connect counts:\n%s", out)
	}
}

func TestStatsEmptyFile(t *testing.T) {
	path := createTestLogFile(t, nil)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Total Events: 0") || !strings.Contains(out, "Sessions: 0") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if strings.Contains(out, "Time Range") {
		t.Errorf("empty log should not print a time range:\n%s", out)
	}
}

func TestStatsReportsTruncation(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	// A map header announcing entries that never arrive.
	if _, err := f.Write([]byte{0xa5, 0x01}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	f.Close()

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Total Events: 4", "Truncated: last event incomplete"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}
