// Command wgtunnel runs a WireGuard client tunnel from a persisted
// configuration.
//
// The daemon restores the tunnel settings from its data directory, brings the
// tunnel up through the wg and ip tools, keeps it connected and serves the
// settings and status over REST.
//
// Usage:
//
//	wgtunnel [flags]
//
// Flags:
//
//	-config string        Configuration file path (YAML)
//	-data-dir string      Settings root directory (default "/var/lib/wgtunnel")
//	-listen string        REST listen address (default ":8080")
//	-log-level string     Log level: debug, info, warn, error (default "info")
//	-event-log string     CBOR event trace file
//	-interface string     WireGuard interface name (default "wg0")
//	-mdns                 Advertise the REST surface via mDNS
//	-standalone           Run without touching the host network
//	-interactive          Start the interactive console
//	-store string         Settings backend: fs, redis (default "fs")
//	-redis-url string     Redis URL for the redis store
//	-jwt-secret string    Require bearer tokens signed with this secret
//	-restart-schedule     Cron expression for periodic tunnel restarts
//	-issue-token string   Print an admin token for the named user and exit
//
// Examples:
//
//	# Run with a config file
//	wgtunnel -config /etc/wgtunnel/wgtunnel.yaml
//
//	# Try the REST surface without a WireGuard kernel module
//	wgtunnel -standalone -data-dir ./data -interactive
//
//	# Keep settings in Redis and restart the tunnel nightly
//	wgtunnel -store redis -redis-url redis://localhost:6379/0 -restart-schedule "0 3 * * *"
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bvweerd/wgtunnel/cmd/wgtunnel/interactive"
	"github.com/bvweerd/wgtunnel/pkg/discovery"
	"github.com/bvweerd/wgtunnel/pkg/engine"
	"github.com/bvweerd/wgtunnel/pkg/log"
	"github.com/bvweerd/wgtunnel/pkg/persistence"
	"github.com/bvweerd/wgtunnel/pkg/security"
	"github.com/bvweerd/wgtunnel/pkg/service"
	"github.com/bvweerd/wgtunnel/pkg/tunnel"
)

var version = "dev"

var (
	configFile  string
	flagConfig  = DefaultConfig()
	showVersion bool
	issueToken  string
)

func init() {
	flag.StringVar(&configFile, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&flagConfig.DataDir, "data-dir", flagConfig.DataDir, "Settings root directory")
	flag.StringVar(&flagConfig.Listen, "listen", flagConfig.Listen, "REST listen address")
	flag.StringVar(&flagConfig.LogLevel, "log-level", flagConfig.LogLevel, "Log level: debug, info, warn, error")
	flag.StringVar(&flagConfig.EventLog, "event-log", "", "CBOR event trace file")
	flag.StringVar(&flagConfig.Interface, "interface", flagConfig.Interface, "WireGuard interface name")
	flag.DurationVar(&flagConfig.PollInterval, "poll-interval", flagConfig.PollInterval, "Tunnel poll interval")
	flag.DurationVar(&flagConfig.RetryInterval, "retry-interval", flagConfig.RetryInterval, "Minimum time between reconnect attempts")
	flag.StringVar(&flagConfig.Codec, "codec", flagConfig.Codec, "Settings document format: json, cbor")
	flag.BoolVar(&flagConfig.MDNS, "mdns", false, "Advertise the REST surface via mDNS")
	flag.BoolVar(&flagConfig.Standalone, "standalone", false, "Run without touching the host network")
	flag.BoolVar(&flagConfig.Interactive, "interactive", false, "Start the interactive console")
	flag.StringVar(&flagConfig.Store, "store", flagConfig.Store, "Settings backend: fs, redis")
	flag.StringVar(&flagConfig.RedisURL, "redis-url", "", "Redis URL for the redis store")
	flag.StringVar(&flagConfig.JWTSecret, "jwt-secret", "", "Require bearer tokens signed with this secret")
	flag.StringVar(&flagConfig.RestartSchedule, "restart-schedule", "", "Cron expression for periodic tunnel restarts")
	flag.StringVar(&issueToken, "issue-token", "", "Print an admin token for the named user and exit")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
}

func main() {
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		return
	}

	cfg, err := resolveConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(2)
	}

	if issueToken != "" {
		token, err := newToken(cfg, issueToken)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// resolveConfig loads the config file and applies explicitly set flags on
// top of it.
func resolveConfig() (*Config, error) {
	cfg := DefaultConfig()
	if configFile != "" {
		loaded, err := LoadConfig(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "data-dir":
			cfg.DataDir = flagConfig.DataDir
		case "listen":
			cfg.Listen = flagConfig.Listen
		case "log-level":
			cfg.LogLevel = flagConfig.LogLevel
		case "event-log":
			cfg.EventLog = flagConfig.EventLog
		case "interface":
			cfg.Interface = flagConfig.Interface
		case "poll-interval":
			cfg.PollInterval = flagConfig.PollInterval
		case "retry-interval":
			cfg.RetryInterval = flagConfig.RetryInterval
		case "codec":
			cfg.Codec = flagConfig.Codec
		case "mdns":
			cfg.MDNS = flagConfig.MDNS
		case "standalone":
			cfg.Standalone = flagConfig.Standalone
		case "interactive":
			cfg.Interactive = flagConfig.Interactive
		case "store":
			cfg.Store = flagConfig.Store
		case "redis-url":
			cfg.RedisURL = flagConfig.RedisURL
		case "jwt-secret":
			cfg.JWTSecret = flagConfig.JWTSecret
		case "restart-schedule":
			cfg.RestartSchedule = flagConfig.RestartSchedule
		}
	})

	return cfg, cfg.Validate()
}

func run(cfg *Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var console *interactive.Console
	var logOut io.Writer = os.Stderr
	if cfg.Interactive {
		c, err := interactive.New()
		if err != nil {
			return err
		}
		console = c
		logOut = console.Stderr()
	}

	level, _ := parseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}))

	events, closeEvents, err := newEventLogger(cfg, logger)
	if err != nil {
		return err
	}
	defer closeEvents()

	codec, _ := persistence.CodecByName(cfg.Codec)
	port, _ := listenPort(cfg.Listen)

	store, closeStore, err := newSettingsFS(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	sec, err := newSecurity(cfg)
	if err != nil {
		return err
	}

	svcConfig := service.DefaultConfig()
	svcConfig.FS = store
	svcConfig.Codec = codec
	svcConfig.Engine = newEngine(cfg, logger)
	svcConfig.Interface = cfg.Interface
	svcConfig.PollInterval = cfg.PollInterval
	svcConfig.RetryInterval = cfg.RetryInterval
	svcConfig.Logger = logger
	svcConfig.EventLogger = events
	svcConfig.Instance = instanceName()
	svcConfig.Port = port
	svcConfig.Version = version
	svcConfig.Security = sec
	svcConfig.RestartSchedule = cfg.RestartSchedule
	if cfg.MDNS {
		advCfg := discovery.DefaultAdvertiserConfig()
		advCfg.Logger = logger
		svcConfig.Advertiser = discovery.NewMDNSAdvertiser(advCfg)
	}

	svc, err := service.New(svcConfig)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	svc.Begin()

	logger.Info("wgtunnel starting",
		"version", version,
		"data_dir", cfg.DataDir,
		"listen", cfg.Listen,
		"interface", cfg.Interface,
		"store", cfg.Store,
		"auth", sec != nil,
		"standalone", cfg.Standalone)

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           svc.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("rest server failed", "error", err)
			cancel()
		}
	}()

	if console != nil {
		go console.Run(ctx, cancel, svc)
	}

	runErr := svc.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("rest server shutdown failed", "error", err)
	}

	logger.Info("wgtunnel stopped")
	return runErr
}

// newSettingsFS opens the settings backend selected by cfg.Store. The data
// directory is created when missing.
func newSettingsFS(cfg *Config) (persistence.FS, func(), error) {
	if cfg.Store != StoreRedis {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		return persistence.NewDirFS(cfg.DataDir), func() {}, nil
	}
	rfs, err := persistence.NewRedisFSFromURL(cfg.RedisURL, cfg.RedisPrefix)
	if err != nil {
		return nil, nil, err
	}
	return rfs, func() { _ = rfs.Close() }, nil
}

// newSecurity returns nil when no secret is configured.
func newSecurity(cfg *Config) (*security.Manager, error) {
	if cfg.JWTSecret == "" {
		return nil, nil
	}
	return security.NewManager(cfg.JWTSecret, cfg.TokenTTL)
}

func newToken(cfg *Config, username string) (string, error) {
	sec, err := newSecurity(cfg)
	if err != nil {
		return "", err
	}
	if sec == nil {
		return "", errors.New("jwt_secret is not configured")
	}
	return sec.Issue(security.User{Username: username, Admin: true})
}

func newEngine(cfg *Config, logger *slog.Logger) tunnel.Engine {
	if cfg.Standalone {
		return engine.NewNoopEngine()
	}
	return engine.NewCommandEngine(engine.CommandConfig{
		Interface: cfg.Interface,
		Logger:    logger,
	})
}

// newEventLogger builds the event trace sink. At debug level events are
// mirrored to the operational log.
func newEventLogger(cfg *Config, logger *slog.Logger) (log.Logger, func(), error) {
	var loggers []log.Logger
	closeFn := func() {}

	if cfg.EventLog != "" {
		fl, err := log.NewFileLogger(cfg.EventLog)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open event log: %w", err)
		}
		loggers = append(loggers, fl)
		closeFn = func() {
			if err := fl.Close(); err != nil {
				logger.Warn("event log close failed", "error", err)
			}
		}
	}
	if level, _ := parseLevel(cfg.LogLevel); level == slog.LevelDebug {
		loggers = append(loggers, log.NewSlogAdapter(logger))
	}

	switch len(loggers) {
	case 0:
		return log.NoopLogger{}, closeFn, nil
	case 1:
		return loggers[0], closeFn, nil
	default:
		return log.NewMultiLogger(loggers...), closeFn, nil
	}
}

func instanceName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "wgtunnel"
	}
	if len(host) > discovery.MaxInstanceNameLen {
		host = host[:discovery.MaxInstanceNameLen]
	}
	return host
}
