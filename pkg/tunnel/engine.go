package tunnel

import (
	"context"
	"errors"
	"net/netip"
	"time"

	"github.com/bvweerd/wgtunnel/pkg/settings"
)

// Connect classifications an Engine may return. Any other error is a
// generic failure retried on schedule.
var (
	// ErrRetryDNS means the endpoint lookup did not complete yet.
	ErrRetryDNS = errors.New("endpoint lookup pending")

	// ErrUnresolvedEndpoint means the endpoint name does not resolve.
	ErrUnresolvedEndpoint = errors.New("endpoint unresolved")

	// ErrNoHandshake is returned by LatestHandshake before the first handshake.
	ErrNoHandshake = errors.New("no handshake yet")
)

// Engine is the tunnel protocol implementation the manager drives.
// All methods are called from the manager's run loop.
type Engine interface {
	// Init prepares the engine for cfg. It does not contact the peer.
	Init(cfg settings.TunnelConfig) error

	// ResetEndpoint drops any cached endpoint resolution.
	ResetEndpoint()

	// Connect requests a connection to the peer.
	Connect(ctx context.Context) error

	// Disconnect tears the tunnel down.
	Disconnect(ctx context.Context) error

	// PeerIsUp reports whether the peer is currently reachable.
	PeerIsUp(ctx context.Context) bool

	// LatestHandshake returns the time of the most recent handshake.
	LatestHandshake(ctx context.Context) (time.Time, error)

	// AddAllowedIP routes network/mask through the tunnel.
	AddAllowedIP(ctx context.Context, network, mask netip.Addr) error
}
