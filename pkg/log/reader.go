package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// ErrTruncated is returned by Reader.Next when the file ends inside an
// event, as happens when the daemon dies mid-write.
var ErrTruncated = errors.New("event log truncated")

// Filter selects trace events. Zero fields match everything.
type Filter struct {
	SessionID string
	Layer     *Layer
	Category  *Category

	// Interface matches the tunnel interface name.
	Interface string

	// Entity keeps state changes of one entity (tunnel, peer or route).
	// Events without a state change never match.
	Entity *StateEntity

	// Source keeps config changes from one producer. "rest" also matches
	// "rest:<user>". Events without a config change never match.
	Source string

	// Operation keeps errors raised by one operation (init, connect,
	// disconnect, add allowed ip). Events without an error never match.
	Operation string

	// [TimeStart, TimeEnd)
	TimeStart *time.Time
	TimeEnd   *time.Time
}

// Matches reports whether event satisfies every set criterion.
func (f *Filter) Matches(event Event) bool {
	switch {
	case f.SessionID != "" && event.SessionID != f.SessionID:
		return false
	case f.Layer != nil && event.Layer != *f.Layer:
		return false
	case f.Category != nil && event.Category != *f.Category:
		return false
	case f.Interface != "" && event.Interface != f.Interface:
		return false
	case f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart):
		return false
	case f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd):
		return false
	}

	if f.Entity != nil && (event.StateChange == nil || event.StateChange.Entity != *f.Entity) {
		return false
	}
	if f.Source != "" && (event.ConfigChange == nil || !sourceMatches(event.ConfigChange.Source, f.Source)) {
		return false
	}
	if f.Operation != "" && (event.Error == nil || event.Error.Context != f.Operation) {
		return false
	}
	return true
}

func sourceMatches(source, want string) bool {
	if source == want {
		return true
	}
	producer, _, ok := strings.Cut(source, ":")
	return ok && producer == want
}

// Reader streams events from a CBOR trace file.
type Reader struct {
	file    *os.File
	decoder *cbor.Decoder
	filter  Filter
	read    int
}

// NewReader opens path and returns every event in it.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens path and returns only events matching filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{
		file:    f,
		decoder: NewDecoder(f),
		filter:  filter,
	}, nil
}

// Next returns the next matching event. It returns io.EOF at a clean end of
// file and ErrTruncated when the last event is incomplete.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		if err := r.decoder.Decode(&event); err != nil {
			switch {
			case errors.Is(err, io.EOF):
				return Event{}, io.EOF
			case errors.Is(err, io.ErrUnexpectedEOF):
				return Event{}, fmt.Errorf("%w after %d events", ErrTruncated, r.read)
			}
			return Event{}, fmt.Errorf("event %d: %w", r.read+1, err)
		}
		r.read++

		if r.filter.Matches(event) {
			return event, nil
		}
	}
}

// Decoded returns the number of events decoded so far, matching or not.
func (r *Reader) Decoded() int {
	return r.read
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}
