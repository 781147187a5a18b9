package engine

import (
	"context"
	"net/netip"
	"sync"
	"time"

	"github.com/bvweerd/wgtunnel/pkg/settings"
	"github.com/bvweerd/wgtunnel/pkg/tunnel"
)

// NoopEngine is an in-process engine without a real interface. The peer
// counts as up from the first connect request until Disconnect.
type NoopEngine struct {
	mu          sync.Mutex
	now         func() time.Time
	initialized bool
	up          bool
	handshake   time.Time
	cfg         settings.TunnelConfig
	allowed     []netip.Prefix
	connects    int
}

// NewNoopEngine creates a NoopEngine.
func NewNoopEngine() *NoopEngine {
	return &NoopEngine{now: time.Now}
}

// Init records cfg.
func (e *NoopEngine) Init(cfg settings.TunnelConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
	e.initialized = true
	e.up = false
	e.allowed = nil
	return nil
}

// ResetEndpoint does nothing.
func (e *NoopEngine) ResetEndpoint() {}

// Connect marks the peer up and records a handshake.
func (e *NoopEngine) Connect(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return ErrNotInitialized
	}
	e.connects++
	e.up = true
	e.handshake = e.now()
	return nil
}

// Disconnect marks the peer down.
func (e *NoopEngine) Disconnect(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.initialized = false
	e.up = false
	e.handshake = time.Time{}
	return nil
}

// PeerIsUp reports whether Connect has been called since Init.
func (e *NoopEngine) PeerIsUp(context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.up
}

// LatestHandshake returns the time of the last Connect.
func (e *NoopEngine) LatestHandshake(context.Context) (time.Time, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handshake.IsZero() {
		return time.Time{}, tunnel.ErrNoHandshake
	}
	return e.handshake, nil
}

// AddAllowedIP records the allowed network.
func (e *NoopEngine) AddAllowedIP(_ context.Context, network, mask netip.Addr) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.allowed = append(e.allowed, netip.PrefixFrom(network, maskBits(mask)))
	return nil
}

// AllowedIPs returns the networks added since Init.
func (e *NoopEngine) AllowedIPs() []netip.Prefix {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]netip.Prefix(nil), e.allowed...)
}

// Connects returns the number of connect requests.
func (e *NoopEngine) Connects() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connects
}

// Compile-time interface satisfaction check.
var _ tunnel.Engine = (*NoopEngine)(nil)
