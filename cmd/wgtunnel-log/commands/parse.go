// Package commands implements the wgtunnel-log CLI commands.
package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/bvweerd/wgtunnel/pkg/log"
)

// timestampFormat is used for every rendered event time.
const timestampFormat = "2006-01-02T15:04:05.000000Z"

// ParseLayerFlag parses a layer string from command-line flag (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "engine":
		return log.LayerEngine, nil
	case "tunnel":
		return log.LayerTunnel, nil
	case "config":
		return log.LayerConfig, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be engine, tunnel, or config)", s)
	}
}

// ParseCategoryFlag parses a category string from command-line flag (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	case "config":
		return log.CategoryConfig, nil
	case "handshake":
		return log.CategoryHandshake, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be state, error, config, or handshake)", s)
	}
}

// ParseEntityFlag parses a state entity string from command-line flag (case-insensitive).
func ParseEntityFlag(s string) (log.StateEntity, error) {
	switch strings.ToLower(s) {
	case "tunnel":
		return log.StateEntityTunnel, nil
	case "peer":
		return log.StateEntityPeer, nil
	case "route":
		return log.StateEntityRoute, nil
	default:
		return 0, fmt.Errorf("invalid entity: %s (must be tunnel, peer, or route)", s)
	}
}

// FilterOptions holds the raw filter flags shared by view and filter.
type FilterOptions struct {
	SessionID string
	TimeStart string
	TimeEnd   string
	Layer     string
	Category  string
	Interface string
	Entity    string
	Source    string
	Operation string
}

// Build converts the options into a log.Filter.
func (o FilterOptions) Build() (log.Filter, error) {
	filter := log.Filter{
		SessionID: o.SessionID,
		Interface: o.Interface,
		Source:    o.Source,
		Operation: o.Operation,
	}

	if o.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, o.TimeStart)
		if err != nil {
			return filter, fmt.Errorf("invalid time-start format: %w", err)
		}
		filter.TimeStart = &t
	}

	if o.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, o.TimeEnd)
		if err != nil {
			return filter, fmt.Errorf("invalid time-end format: %w", err)
		}
		filter.TimeEnd = &t
	}

	if o.Layer != "" {
		l, err := ParseLayerFlag(o.Layer)
		if err != nil {
			return filter, err
		}
		filter.Layer = &l
	}

	if o.Category != "" {
		c, err := ParseCategoryFlag(o.Category)
		if err != nil {
			return filter, err
		}
		filter.Category = &c
	}

	if o.Entity != "" {
		e, err := ParseEntityFlag(o.Entity)
		if err != nil {
			return filter, err
		}
		filter.Entity = &e
	}

	return filter, nil
}

// eventType returns a short label for the event payload.
func eventType(event log.Event) string {
	switch {
	case event.StateChange != nil:
		return "state"
	case event.Error != nil:
		return "error"
	case event.ConfigChange != nil:
		return "config"
	case event.Handshake != nil:
		return "handshake"
	default:
		return "unknown"
	}
}

// shortenSessionID returns the first 8 characters of the session ID.
func shortenSessionID(id string) string {
	if id == "" {
		return "-"
	}
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}
