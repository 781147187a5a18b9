package tunnel

import (
	"time"

	"github.com/bvweerd/wgtunnel/pkg/settings"
)

// Status is the read-only view of a tunnel used by reporting code.
type Status interface {
	Enabled() bool
	Connected() bool
	LatestHandshake() time.Time
}

// Snapshot is a consistent copy of the tunnel status.
type Snapshot struct {
	Enabled         bool
	Connected       bool
	State           State
	LatestHandshake time.Time
	SessionID       string

	// ConnectAttempts counts connect requests since the last Start,
	// including the initial one.
	ConnectAttempts int
}

// Enabled reports whether an eligible configuration is staged.
func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

// Connected reports whether the peer is up.
func (m *Manager) Connected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateConnected
}

// LatestHandshake returns the last handshake time seen while connected, or
// the zero time.
func (m *Manager) LatestHandshake() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.handshake
}

// State returns the lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// SessionID returns the ID assigned at the last successful engine init.
func (m *Manager) SessionID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessionID
}

// Config returns the staged configuration.
func (m *Manager) Config() settings.TunnelConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Snapshot returns all status fields at once.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		Enabled:         m.enabled,
		Connected:       m.state == StateConnected,
		State:           m.state,
		LatestHandshake: m.handshake,
		SessionID:       m.sessionID,
		ConnectAttempts: m.attempts,
	}
}

// Compile-time interface satisfaction check.
var _ Status = (*Manager)(nil)
