package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/bvweerd/wgtunnel/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents      int
	EventsByLayer    map[log.Layer]int
	EventsByCategory map[log.Category]int
	Sessions         map[string]*SessionStats
	Errors           int
	ConfigChanges    int

	// Truncated is set when the file ends inside an event.
	Truncated bool
	TimeRange struct {
		Start time.Time
		End   time.Time
	}
}

// SessionStats holds statistics for a single tunnel session.
type SessionStats struct {
	FirstSeen     time.Time
	LastSeen      time.Time
	Events        int
	Endpoint      string
	Connects      int
	Disconnects   int
	Handshakes    int
	LastHandshake time.Time
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLayer:    make(map[log.Layer]int),
		EventsByCategory: make(map[log.Category]int),
		Sessions:         make(map[string]*SessionStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if errors.Is(err, log.ErrTruncated) {
			stats.Truncated = true
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}

	printStats(w, stats)
	return nil
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++

	// Track time range
	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	if event.Error != nil {
		s.Errors++
	}
	if event.ConfigChange != nil {
		s.ConfigChanges++
	}

	// Config events are produced outside any session.
	if event.SessionID == "" {
		return
	}

	sess, ok := s.Sessions[event.SessionID]
	if !ok {
		sess = &SessionStats{
			FirstSeen: event.Timestamp,
			LastSeen:  event.Timestamp,
		}
		s.Sessions[event.SessionID] = sess
	}
	sess.Events++
	if event.Timestamp.After(sess.LastSeen) {
		sess.LastSeen = event.Timestamp
	}
	if event.Endpoint != "" && sess.Endpoint == "" {
		sess.Endpoint = event.Endpoint
	}

	if sc := event.StateChange; sc != nil && sc.Entity == log.StateEntityTunnel {
		switch {
		case sc.NewState == "CONNECTED":
			sess.Connects++
		case sc.OldState == "CONNECTED":
			sess.Disconnects++
		}
	}
	if event.Handshake != nil {
		sess.Handshakes++
		if event.Handshake.At.After(sess.LastHandshake) {
			sess.LastHandshake = event.Handshake.At
		}
	}
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== wgtunnel Event Log Statistics ===")
	fmt.Fprintln(w)

	// Time range
	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	if stats.Truncated {
		fmt.Fprintln(w, "Truncated: last event incomplete")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerEngine, log.LayerTunnel, log.LayerConfig} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryState, log.CategoryError, log.CategoryConfig, log.CategoryHandshake} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Sessions: %d\n", len(stats.Sessions))
	if len(stats.Sessions) > 0 {
		type sessionInfo struct {
			id    string
			stats *SessionStats
		}
		sessions := make([]sessionInfo, 0, len(stats.Sessions))
		for id, ss := range stats.Sessions {
			sessions = append(sessions, sessionInfo{id, ss})
		}
		sort.Slice(sessions, func(i, j int) bool {
			return sessions[i].stats.FirstSeen.Before(sessions[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, s := range sessions {
			duration := s.stats.LastSeen.Sub(s.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortenSessionID(s.id), s.stats.Events, duration)
			if s.stats.Endpoint != "" {
				fmt.Fprintf(w, "           Endpoint: %s\n", s.stats.Endpoint)
			}
			fmt.Fprintf(w, "           Connects: %d  Disconnects: %d\n", s.stats.Connects, s.stats.Disconnects)
			if s.stats.Handshakes > 0 {
				fmt.Fprintf(w, "           Handshakes: %d (last: %s)\n",
					s.stats.Handshakes, s.stats.LastHandshake.Format(time.RFC3339))
			}
		}
	}

	if stats.ConfigChanges > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Config Changes: %d\n", stats.ConfigChanges)
	}
	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
