package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/bvweerd/wgtunnel/pkg/persistence"
	"github.com/bvweerd/wgtunnel/pkg/security"
)

// Settings store backends.
const (
	StoreFS    = "fs"
	StoreRedis = "redis"
)

// Config holds the daemon configuration.
type Config struct {
	// DataDir is the root of the persisted settings tree.
	DataDir string `yaml:"data_dir"`

	// Listen is the REST listen address.
	Listen string `yaml:"listen"`

	LogLevel string `yaml:"log_level"` // debug, info, warn, error

	// EventLog is the CBOR event trace file. Empty disables it.
	EventLog string `yaml:"event_log"`

	Interface     string        `yaml:"interface"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	RetryInterval time.Duration `yaml:"retry_interval"`

	// MDNS advertises the REST surface.
	MDNS bool `yaml:"mdns"`

	// Codec is the settings document format: json or cbor.
	Codec string `yaml:"codec"`

	// Standalone runs without touching the host network.
	Standalone bool `yaml:"standalone"`

	Interactive bool `yaml:"interactive"`

	// Store selects the settings backend: fs or redis.
	Store       string `yaml:"store"`
	RedisURL    string `yaml:"redis_url"`
	RedisPrefix string `yaml:"redis_prefix"`

	// JWTSecret enables token checks on the REST surface.
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`

	// RestartSchedule is a cron expression for periodic tunnel restarts.
	RestartSchedule string `yaml:"restart_schedule"`
}

// DefaultConfig returns the daemon defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir:       "/var/lib/wgtunnel",
		Listen:        ":8080",
		LogLevel:      "info",
		Interface:     "wg0",
		PollInterval:  time.Second,
		RetryInterval: 5 * time.Second,
		Codec:         "json",
		Store:         StoreFS,
	}
}

// LoadConfig reads a YAML config file over the defaults. A missing file
// yields the defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return config, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}
	if _, err := listenPort(c.Listen); err != nil {
		errs = append(errs, fmt.Errorf("listen: %w", err))
	}
	if _, ok := parseLevel(c.LogLevel); !ok {
		errs = append(errs, fmt.Errorf("unknown log_level %q", c.LogLevel))
	}
	if c.Interface == "" {
		errs = append(errs, errors.New("interface is required"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, errors.New("poll_interval must be positive"))
	}
	if c.RetryInterval <= 0 {
		errs = append(errs, errors.New("retry_interval must be positive"))
	}
	if _, err := persistence.CodecByName(c.Codec); err != nil {
		errs = append(errs, err)
	}
	switch c.Store {
	case StoreFS:
	case StoreRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("redis_url is required for the redis store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store %q", c.Store))
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < security.MinSecretLen {
		errs = append(errs, fmt.Errorf("jwt_secret: %w", security.ErrSecretTooShort))
	}
	if c.TokenTTL < 0 {
		errs = append(errs, errors.New("token_ttl must not be negative"))
	}
	if c.RestartSchedule != "" {
		if _, err := cron.ParseStandard(c.RestartSchedule); err != nil {
			errs = append(errs, fmt.Errorf("restart_schedule: %w", err))
		}
	}
	return errors.Join(errs...)
}

// listenPort returns the port of a host:port listen address.
func listenPort(addr string) (uint16, error) {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", port)
	}
	return uint16(n), nil
}

func parseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
