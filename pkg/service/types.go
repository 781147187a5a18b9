package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bvweerd/wgtunnel/pkg/discovery"
	"github.com/bvweerd/wgtunnel/pkg/log"
	"github.com/bvweerd/wgtunnel/pkg/persistence"
	"github.com/bvweerd/wgtunnel/pkg/security"
	"github.com/bvweerd/wgtunnel/pkg/settings"
	"github.com/bvweerd/wgtunnel/pkg/tunnel"
)

// Service errors.
var (
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrAlreadyRunning = errors.New("service already running")
	ErrStopped        = errors.New("service stopped")
)

// ServiceState represents the service state.
type ServiceState uint8

const (
	// StateIdle - service created but not running.
	StateIdle ServiceState = iota

	// StateRunning - run loop active.
	StateRunning

	// StateStopped - run loop returned.
	StateStopped
)

// String returns the state name.
func (s ServiceState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Update sources recorded in config change events.
const (
	SourceREST    = "rest"
	SourceConsole = "console"
)

// Config configures a TunnelService.
type Config struct {
	// FS holds the persisted configuration document.
	FS persistence.FS

	// SettingsPath is the document path on FS.
	SettingsPath string

	// Codec encodes the document. Nil means JSON.
	Codec persistence.Codec

	// Engine drives the tunnel.
	Engine tunnel.Engine

	// Interface names the tunnel interface in events.
	Interface string

	// PollInterval is the run loop tick.
	PollInterval time.Duration

	// RetryInterval is the minimum time between reconnect attempts.
	RetryInterval time.Duration

	Logger *slog.Logger

	// EventLogger receives the event trace. Nil disables tracing.
	EventLogger log.Logger

	// Advertiser announces the REST surface. Nil disables advertising.
	Advertiser discovery.Advertiser

	// Instance, Port and Version describe the advertised service.
	Instance string
	Port     uint16
	Version  string

	// Security guards the HTTP surface. Nil leaves it open.
	Security *security.Manager

	// RestartSchedule is a cron expression (five fields or a descriptor
	// such as "@daily") at which an enabled tunnel is restarted. Empty
	// disables scheduled restarts.
	RestartSchedule string

	// Now replaces time.Now.
	Now func() time.Time
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SettingsPath:  settings.FilePath,
		PollInterval:  time.Second,
		RetryInterval: tunnel.RetryInterval,
	}
}

// Validate checks if the config is valid.
func (c *Config) Validate() error {
	if c.Engine == nil {
		return ErrInvalidConfig
	}
	if c.SettingsPath == "" || c.SettingsPath[0] != '/' {
		return ErrInvalidConfig
	}
	if c.PollInterval <= 0 {
		return ErrInvalidConfig
	}
	if c.RestartSchedule != "" {
		if _, err := cron.ParseStandard(c.RestartSchedule); err != nil {
			return fmt.Errorf("%w: restart schedule: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}
