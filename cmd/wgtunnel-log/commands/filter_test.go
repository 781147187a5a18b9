package commands

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/bvweerd/wgtunnel/pkg/log"
)

func readAll(t *testing.T, path string) []log.Event {
	t.Helper()
	r, err := log.NewReader(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer r.Close()

	var events []log.Event
	for {
		e, err := r.Next()
		if err == io.EOF {
			return events
		}
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		events = append(events, e)
	}
}

func TestFilterBySession(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "filtered.wglog")

	n, err := RunFilter(path, out, FilterOptions{SessionID: testSession})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 events written, got %d", n)
	}

	events := readAll(t, out)
	if len(events) != 3 {
		t.Fatalf("expected 3 events in output, got %d", len(events))
	}
	for _, e := range events {
		if e.SessionID != testSession {
			t.Errorf("unexpected session %q", e.SessionID)
		}
	}
}

func TestFilterByCategory(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "filtered.wglog")

	n, err := RunFilter(path, out, FilterOptions{Category: "handshake"})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 event, got %d", n)
	}
	if events := readAll(t, out); events[0].Handshake == nil {
		t.Error("expected handshake payload")
	}
}

func TestFilterInvalidOptions(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	if _, err := RunFilter(path, filepath.Join(t.TempDir(), "x.wglog"), FilterOptions{Layer: "wire"}); err == nil {
		t.Fatal("expected error for invalid layer")
	}
}
