package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/robfig/cron/v3"

	"github.com/bvweerd/wgtunnel/pkg/discovery"
	"github.com/bvweerd/wgtunnel/pkg/log"
	"github.com/bvweerd/wgtunnel/pkg/persistence"
	"github.com/bvweerd/wgtunnel/pkg/settings"
	"github.com/bvweerd/wgtunnel/pkg/stateful"
	"github.com/bvweerd/wgtunnel/pkg/tunnel"
)

// StatusPath is the REST path of the tunnel status resource.
const StatusPath = "/rest/wireguardStatus"

// SettingsPath is the REST path of the tunnel settings resource.
const SettingsPath = "/rest/wireguardSettings"

// StatusStreamPath is the WebSocket path streaming status reports.
const StatusStreamPath = "/ws/wireguardStatus"

// stopTimeout bounds the engine teardown on shutdown.
const stopTimeout = 10 * time.Second

// TunnelService runs one WireGuard tunnel from its persisted configuration.
type TunnelService struct {
	config Config
	logger *slog.Logger
	events log.Logger
	now    func() time.Time

	store       *stateful.Service[settings.TunnelConfig]
	persistence *persistence.FSPersistence[settings.TunnelConfig]
	manager     *tunnel.Manager
	advertiser  discovery.Advertiser

	// updateMu serialises UpdateSettings so change events see consistent
	// before and after values.
	updateMu sync.Mutex

	restartPending atomic.Bool

	upgrader websocket.Upgrader

	// stopped is closed when the run loop exits; open status streams end.
	stopped  chan struct{}
	stopOnce sync.Once

	mu    sync.Mutex
	state ServiceState
}

// New creates a TunnelService. The configuration is not loaded until Begin.
func New(config Config) (*TunnelService, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s := &TunnelService{
		config:     config,
		logger:     config.Logger,
		events:     config.EventLogger,
		now:        config.Now,
		advertiser: config.Advertiser,
		stopped:    make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     sameOrigin,
		},
	}
	if s.events == nil {
		s.events = log.NoopLogger{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.advertiser == nil {
		s.advertiser = discovery.NoopAdvertiser{}
	}

	s.store = stateful.New(settings.Defaults())

	popts := []persistence.Option{persistence.WithLogger(config.Logger)}
	if config.Codec != nil {
		popts = append(popts, persistence.WithCodec(config.Codec))
	}
	s.persistence = persistence.New(
		settings.Read,
		settings.Update,
		s.store,
		config.FS,
		config.SettingsPath,
		popts...,
	)

	mopts := []tunnel.Option{
		tunnel.WithLogger(config.Logger),
		tunnel.WithEventLogger(s.events),
		tunnel.WithClock(s.now),
		tunnel.WithInterface(config.Interface),
	}
	if config.RetryInterval > 0 {
		mopts = append(mopts, tunnel.WithRetryInterval(config.RetryInterval))
	}
	s.manager = tunnel.NewManager(config.Engine, mopts...)

	return s, nil
}

// Store returns the configuration store.
func (s *TunnelService) Store() *stateful.Service[settings.TunnelConfig] {
	return s.store
}

// Persistence returns the persistence binding of the store.
func (s *TunnelService) Persistence() *persistence.FSPersistence[settings.TunnelConfig] {
	return s.persistence
}

// Manager returns the tunnel manager.
func (s *TunnelService) Manager() *tunnel.Manager {
	return s.manager
}

// State returns the service state.
func (s *TunnelService) State() ServiceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Begin restores the stored configuration and stages it on the manager.
func (s *TunnelService) Begin() {
	s.persistence.LoadFromStore()
	s.manager.Begin(s.store.Get())
}

// Run starts the tunnel and drives it until ctx is cancelled. On return the
// tunnel is stopped and the advertisement withdrawn.
func (s *TunnelService) Run(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateRunning:
		s.mu.Unlock()
		return ErrAlreadyRunning
	case StateStopped:
		s.mu.Unlock()
		return ErrStopped
	}
	s.state = StateRunning
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.state = StateStopped
		s.mu.Unlock()
	}()

	s.manager.Start(ctx)
	s.advertise(ctx)

	if s.config.RestartSchedule != "" {
		sched := cron.New()
		if _, err := sched.AddFunc(s.config.RestartSchedule, s.scheduledRestart); err != nil {
			s.shutdown()
			return fmt.Errorf("%w: restart schedule: %v", ErrInvalidConfig, err)
		}
		sched.Start()
		defer func() { <-sched.Stop().Done() }()
		if s.logger != nil {
			s.logger.Info("tunnel restart scheduled", "schedule", s.config.RestartSchedule)
		}
	}

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one iteration of the run loop: a pending restart is applied
// first, then the manager is polled.
func (s *TunnelService) Tick(ctx context.Context) {
	if s.restartPending.Swap(false) {
		s.restart(ctx)
	}
	s.manager.Loop(ctx)
	s.refreshAdvertisement()
}

// RequestRestart asks the run loop to restart the tunnel on its next tick.
func (s *TunnelService) RequestRestart() {
	s.restartPending.Store(true)
}

// RestartPending reports whether a restart request is waiting.
func (s *TunnelService) RestartPending() bool {
	return s.restartPending.Load()
}

// scheduledRestart re-resolves the endpoint by restarting the tunnel.
func (s *TunnelService) scheduledRestart() {
	if !s.manager.Enabled() {
		return
	}
	s.debugLog("scheduled tunnel restart")
	s.RequestRestart()
}

func (s *TunnelService) restart(ctx context.Context) {
	if s.logger != nil {
		s.logger.Info("restarting tunnel")
	}
	s.manager.Stop(ctx)
	s.manager.Begin(s.store.Get())
	s.manager.Start(ctx)
}

func (s *TunnelService) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.manager.Stop(ctx)
	if err := s.advertiser.Stop(); err != nil && s.logger != nil {
		s.logger.Warn("mdns stop failed", "error", err)
	}
	s.stopOnce.Do(func() { close(s.stopped) })
}

func (s *TunnelService) debugLog(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

// UpdateSettings validates root and applies it to the store. Missing keys
// take their factory defaults. A CHANGED_RESTART result raises a restart
// request.
func (s *TunnelService) UpdateSettings(root stateful.Object, source string) (stateful.UpdateResult, error) {
	var candidate settings.TunnelConfig
	settings.Update(root, &candidate)
	if err := candidate.Validate(); err != nil {
		return stateful.Unchanged, err
	}

	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	prev := s.store.Get()
	result := s.store.Update(root, settings.Update)
	if result == stateful.Unchanged {
		return result, nil
	}

	keys := settings.ChangedKeys(prev, s.store.Get())
	if s.logger != nil {
		s.logger.Info("tunnel settings updated", "source", source, "result", result, "keys", keys)
	}
	s.events.Log(log.Event{
		Timestamp: s.now(),
		Layer:     log.LayerConfig,
		Category:  log.CategoryConfig,
		Interface: s.config.Interface,
		ConfigChange: &log.ConfigChangeEvent{
			Result: result.String(),
			Source: source,
			Keys:   keys,
		},
	})

	if result == stateful.ChangedRestart {
		s.RequestRestart()
	}
	return result, nil
}

// SetSetting changes one key of the stored configuration.
func (s *TunnelService) SetSetting(key string, value any, source string) (stateful.UpdateResult, error) {
	root := s.store.ReadObject(settings.Read)
	if _, ok := root[key]; !ok {
		return stateful.Unchanged, fmt.Errorf("%w: unknown key %q", ErrInvalidConfig, key)
	}
	root[key] = value
	return s.UpdateSettings(root, source)
}

func (s *TunnelService) advertise(ctx context.Context) {
	if _, ok := s.advertiser.(discovery.NoopAdvertiser); ok {
		return
	}
	if err := s.advertiser.Advertise(ctx, s.serviceInfo()); err != nil && s.logger != nil {
		s.logger.Warn("mdns advertisement failed", "error", err)
	}
}

func (s *TunnelService) refreshAdvertisement() {
	err := s.advertiser.Update(s.serviceInfo())
	if err != nil && !errors.Is(err, discovery.ErrNotAdvertising) && s.logger != nil {
		s.logger.Warn("mdns update failed", "error", err)
	}
}

func (s *TunnelService) serviceInfo() *discovery.ServiceInfo {
	return &discovery.ServiceInfo{
		Instance: s.config.Instance,
		Port:     s.config.Port,
		Path:     StatusPath,
		Enabled:  s.store.Get().Enabled,
		State:    s.manager.State().String(),
		Version:  s.config.Version,
	}
}
