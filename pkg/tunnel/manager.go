package tunnel

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bvweerd/wgtunnel/pkg/log"
	"github.com/bvweerd/wgtunnel/pkg/settings"
)

// beginStopTimeout bounds the disconnect Begin issues for a running session.
const beginStopTimeout = 10 * time.Second

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the operational logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithEventLogger sets the trace event logger.
func WithEventLogger(events log.Logger) Option {
	return func(m *Manager) {
		if events != nil {
			m.events = events
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithRetryInterval overrides RetryInterval.
func WithRetryInterval(d time.Duration) Option {
	return func(m *Manager) { m.pacer = NewPacer(d) }
}

// WithInterface names the tunnel interface in trace events.
func WithInterface(name string) Option {
	return func(m *Manager) { m.iface = name }
}

// Manager drives an Engine through the tunnel lifecycle.
type Manager struct {
	engine Engine
	logger *slog.Logger
	events log.Logger
	now    func() time.Time
	iface  string

	// opMu serialises Begin, Start, Stop and Loop.
	opMu  sync.Mutex
	pacer *Pacer

	// mu guards the fields below for Status readers.
	mu        sync.RWMutex
	state     State
	enabled   bool
	cfg       settings.TunnelConfig
	handshake time.Time
	sessionID string
	attempts  int
}

// NewManager creates a Manager driving engine.
func NewManager(engine Engine, opts ...Option) *Manager {
	m := &Manager{
		engine: engine,
		events: log.NoopLogger{},
		now:    time.Now,
		pacer:  NewPacer(RetryInterval),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Begin stages cfg for the next Start. An ineligible cfg disables the
// manager and is otherwise ignored. A running session is disconnected first,
// so Begin followed by Start restarts the tunnel.
func (m *Manager) Begin(cfg settings.TunnelConfig) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if m.State() != StateIdle {
		ctx, cancel := context.WithTimeout(context.Background(), beginStopTimeout)
		m.disconnect(ctx, "reconfigured")
		cancel()
	}

	if !cfg.Eligible() {
		m.mu.Lock()
		m.enabled = false
		m.mu.Unlock()
		m.debugLog("tunnel disabled or incomplete, not staging configuration")
		return
	}

	m.mu.Lock()
	m.cfg = cfg
	m.enabled = true
	m.state = StateIdle
	m.handshake = time.Time{}
	m.mu.Unlock()

	m.debugLog("tunnel configuration staged", "endpoint", endpointOf(cfg), "address", cfg.Address)
}

// Start initializes the engine and issues the first connect request.
// It does nothing when the manager is disabled or already started.
func (m *Manager) Start(ctx context.Context) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.RLock()
	enabled, state, cfg := m.enabled, m.state, m.cfg
	m.mu.RUnlock()

	if !enabled || state != StateIdle {
		return
	}

	if err := m.engine.Init(cfg); err != nil {
		m.warnLog("tunnel engine init failed", "error", err)
		m.emitError(log.LayerEngine, err, "init")
		return
	}

	m.mu.Lock()
	m.sessionID = uuid.NewString()
	m.mu.Unlock()

	m.engine.ResetEndpoint()
	m.connect(ctx, "start")

	m.pacer.Reset()
	m.markAttempt(m.now())
	m.setState(StateInitialized, "started")

	if m.logger != nil {
		m.logger.Info("tunnel started", "endpoint", endpointOf(cfg), "session_id", m.SessionID())
	}
}

// Stop disconnects the engine. It does nothing when the manager is idle.
func (m *Manager) Stop(ctx context.Context) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if m.State() == StateIdle {
		return
	}
	m.disconnect(ctx, "stopped")
}

// disconnect tears down the engine session and returns to Idle.
func (m *Manager) disconnect(ctx context.Context, reason string) {
	if err := m.engine.Disconnect(ctx); err != nil {
		m.warnLog("tunnel disconnect failed", "error", err)
		m.emitError(log.LayerEngine, err, "disconnect")
	}

	m.pacer.Reset()
	m.mu.Lock()
	m.attempts = 0
	m.mu.Unlock()

	m.setState(StateIdle, reason)
	if m.logger != nil {
		m.logger.Info("tunnel stopped", "reason", reason)
	}
}

// markAttempt records a connect request on the pacer and publishes the
// attempt count to status readers.
func (m *Manager) markAttempt(now time.Time) {
	m.pacer.Mark(now)
	m.mu.Lock()
	m.attempts = m.pacer.Attempts()
	m.mu.Unlock()
}

// Loop polls the engine once. Call it periodically from the run loop.
func (m *Manager) Loop(ctx context.Context) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	state := m.State()
	if state == StateIdle {
		return
	}

	up := m.engine.PeerIsUp(ctx)

	switch {
	case up && state != StateConnected:
		m.setState(StateConnected, "peer up")
		if m.logger != nil {
			m.logger.Info("tunnel peer up", "endpoint", endpointOf(m.Config()))
		}
		m.reconcileRoute(ctx)
	case !up && state == StateConnected:
		m.setState(StateInitialized, "peer down")
		if m.logger != nil {
			m.logger.Info("tunnel peer down", "endpoint", endpointOf(m.Config()))
		}
	}

	if !up {
		now := m.now()
		if m.pacer.Due(now) {
			m.connect(ctx, "retry")
			m.markAttempt(now)
		}
		return
	}

	m.recordHandshake(ctx)
}

// connect issues a connect request and logs its classification.
func (m *Manager) connect(ctx context.Context, reason string) {
	err := m.engine.Connect(ctx)
	switch {
	case err == nil:
		m.debugLog("tunnel connect requested", "reason", reason)
		return
	case errors.Is(err, ErrRetryDNS):
		if m.logger != nil {
			m.logger.Info("tunnel endpoint lookup pending", "reason", reason, "endpoint", endpointOf(m.Config()))
		}
	case errors.Is(err, ErrUnresolvedEndpoint):
		m.warnLog("tunnel endpoint could not be resolved", "reason", reason, "endpoint", endpointOf(m.Config()))
	default:
		m.debugLog("tunnel connect failed, retrying on schedule", "reason", reason, "error", err)
	}
	m.emitError(log.LayerEngine, err, "connect")
}

// reconcileRoute installs the tunnel network as an allowed IP.
func (m *Manager) reconcileRoute(ctx context.Context) {
	network, mask, err := m.Config().RouteNetwork()
	if err == nil {
		err = m.engine.AddAllowedIP(ctx, network, mask)
	}
	if err != nil {
		m.warnLog("tunnel route reconciliation failed", "error", err)
		m.emitError(log.LayerEngine, err, "add allowed ip")
		return
	}

	m.debugLog("tunnel route installed", "network", network, "mask", mask)
	m.emit(log.Event{
		Layer:    log.LayerEngine,
		Category: log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityRoute,
			NewState: network.String() + "/" + mask.String(),
			Reason:   "peer up",
		},
	})
}

func (m *Manager) recordHandshake(ctx context.Context) {
	ts, err := m.engine.LatestHandshake(ctx)
	if err != nil || ts.IsZero() {
		return
	}

	m.mu.Lock()
	changed := !ts.Equal(m.handshake)
	m.handshake = ts
	m.mu.Unlock()

	if changed {
		m.emit(log.Event{
			Layer:     log.LayerTunnel,
			Category:  log.CategoryHandshake,
			Handshake: &log.HandshakeEvent{At: ts},
		})
	}
}

// setState moves to next, clearing the handshake whenever the peer is not
// up, and emits a state change event.
func (m *Manager) setState(next State, reason string) {
	m.mu.Lock()
	prev := m.state
	m.state = next
	if next != StateConnected {
		m.handshake = time.Time{}
	}
	m.mu.Unlock()

	if prev == next {
		return
	}
	m.emit(log.Event{
		Layer:    log.LayerTunnel,
		Category: log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityTunnel,
			OldState: prev.String(),
			NewState: next.String(),
			Reason:   reason,
		},
	})
}

func (m *Manager) emitError(layer log.Layer, err error, op string) {
	m.emit(log.Event{
		Layer:    layer,
		Category: log.CategoryError,
		Error:    &log.ErrorEventData{Layer: layer, Message: err.Error(), Context: op},
	})
}

func (m *Manager) emit(event log.Event) {
	m.mu.RLock()
	event.SessionID = m.sessionID
	if m.cfg.Endpoint != "" {
		event.Endpoint = endpointOf(m.cfg)
	}
	m.mu.RUnlock()

	event.Timestamp = m.now()
	event.Interface = m.iface
	m.events.Log(event)
}

func (m *Manager) debugLog(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Debug(msg, args...)
	}
}

func (m *Manager) warnLog(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Warn(msg, args...)
	}
}

func endpointOf(cfg settings.TunnelConfig) string {
	return net.JoinHostPort(cfg.Endpoint, strconv.Itoa(int(cfg.Port)))
}
