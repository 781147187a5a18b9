package engine

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/bits"
	"net"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bvweerd/wgtunnel/pkg/settings"
	"github.com/bvweerd/wgtunnel/pkg/tunnel"
	"github.com/bvweerd/wgtunnel/pkg/wgkey"
)

// DefaultInterface is the interface name used when none is configured.
const DefaultInterface = "wg0"

// PeerTimeout is how long after the latest handshake a peer counts as up.
// It matches WireGuard's reject-after time.
const PeerTimeout = 180 * time.Second

// Engine errors.
var (
	ErrNotInitialized = errors.New("engine not initialized")
	ErrInvalidConfig  = errors.New("invalid tunnel configuration")
)

// Resolver looks up endpoint host names.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// CommandConfig configures a CommandEngine.
type CommandConfig struct {
	// Interface is the WireGuard interface name.
	Interface string

	// KeyDir holds the short-lived key files handed to wg. Empty uses the
	// system temp directory.
	KeyDir string

	Runner   Runner
	Resolver Resolver
	Logger   *slog.Logger

	// Now replaces time.Now.
	Now func() time.Time
}

// CommandEngine drives a kernel WireGuard interface through wg and ip.
type CommandEngine struct {
	iface    string
	keyDir   string
	runner   Runner
	resolver Resolver
	logger   *slog.Logger
	now      func() time.Time

	mu          sync.Mutex
	cfg         settings.TunnelConfig
	peer        string
	resolved    string
	initialized bool
}

// NewCommandEngine creates a CommandEngine.
func NewCommandEngine(cfg CommandConfig) *CommandEngine {
	e := &CommandEngine{
		iface:    cfg.Interface,
		keyDir:   cfg.KeyDir,
		runner:   cfg.Runner,
		resolver: cfg.Resolver,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}
	if e.iface == "" {
		e.iface = DefaultInterface
	}
	if e.runner == nil {
		e.runner = ExecRunner{}
	}
	if e.resolver == nil {
		e.resolver = net.DefaultResolver
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Interface returns the interface name.
func (e *CommandEngine) Interface() string {
	return e.iface
}

// Init creates the interface if needed, installs the local key and address
// and registers the peer without an endpoint.
func (e *CommandEngine) Init(cfg settings.TunnelConfig) error {
	priv, err := wgkey.Parse(cfg.PrivateKey)
	if err != nil {
		return fmt.Errorf("%w: private key: %w", ErrInvalidConfig, err)
	}
	peer, err := wgkey.Parse(cfg.PeerPublicKey)
	if err != nil {
		return fmt.Errorf("%w: peer public key: %w", ErrInvalidConfig, err)
	}
	var psk wgkey.Key
	if cfg.PresharedKey != "" {
		if psk, err = wgkey.Parse(cfg.PresharedKey); err != nil {
			return fmt.Errorf("%w: preshared key: %w", ErrInvalidConfig, err)
		}
	}
	_, mask, err := cfg.RouteNetwork()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	local := netip.PrefixFrom(netip.MustParseAddr(cfg.Address), maskBits(mask))

	// Init has no context in the engine contract; bound the setup commands.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := e.runner.Output(ctx, "ip", "link", "show", "dev", e.iface); err != nil {
		if err := e.runner.Run(ctx, "ip", "link", "add", "dev", e.iface, "type", "wireguard"); err != nil {
			return err
		}
	}

	privFile, err := e.writeKeyFile(priv)
	if err != nil {
		return err
	}
	defer os.Remove(privFile)

	if err := e.runner.Run(ctx, "wg", "set", e.iface, "private-key", privFile); err != nil {
		return err
	}
	if err := e.runner.Run(ctx, "ip", "addr", "replace", local.String(), "dev", e.iface); err != nil {
		return err
	}
	if err := e.runner.Run(ctx, "ip", "link", "set", "dev", e.iface, "up"); err != nil {
		return err
	}

	args := []string{"set", e.iface, "peer", peer.String()}
	if !psk.IsZero() {
		pskFile, err := e.writeKeyFile(psk)
		if err != nil {
			return err
		}
		defer os.Remove(pskFile)
		args = append(args, "preshared-key", pskFile)
	}
	if err := e.runner.Run(ctx, "wg", args...); err != nil {
		return err
	}

	e.mu.Lock()
	e.cfg = cfg
	e.peer = peer.String()
	e.resolved = ""
	e.initialized = true
	e.mu.Unlock()

	e.debugLog("wireguard interface configured", "interface", e.iface, "address", local)
	return nil
}

func (e *CommandEngine) writeKeyFile(k wgkey.Key) (string, error) {
	f, err := os.CreateTemp(e.keyDir, "wgtunnel-key-*")
	if err != nil {
		return "", fmt.Errorf("create key file: %w", err)
	}
	if _, err := f.WriteString(k.String() + "\n"); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write key file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write key file: %w", err)
	}
	return f.Name(), nil
}

// ResetEndpoint forgets the resolved endpoint address.
func (e *CommandEngine) ResetEndpoint() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resolved = ""
}

// Connect resolves the endpoint if needed and points the peer at it.
func (e *CommandEngine) Connect(ctx context.Context) error {
	e.mu.Lock()
	initialized, cfg, peer, resolved := e.initialized, e.cfg, e.peer, e.resolved
	e.mu.Unlock()

	if !initialized {
		return ErrNotInitialized
	}

	if resolved == "" {
		addr, err := e.resolve(ctx, cfg.Endpoint)
		if err != nil {
			return err
		}
		resolved = net.JoinHostPort(addr.String(), strconv.Itoa(int(cfg.Port)))

		e.mu.Lock()
		e.resolved = resolved
		e.mu.Unlock()
	}

	args := []string{"set", e.iface, "peer", peer, "endpoint", resolved}
	if cfg.PersistentKeepalive > 0 {
		args = append(args, "persistent-keepalive", strconv.Itoa(int(cfg.PersistentKeepalive)))
	}
	return e.runner.Run(ctx, "wg", args...)
}

// resolve maps host to an address, preferring IPv4.
func (e *CommandEngine) resolve(ctx context.Context, host string) (netip.Addr, error) {
	if addr, err := netip.ParseAddr(host); err == nil {
		return addr, nil
	}

	addrs, err := e.resolver.LookupHost(ctx, host)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) {
			switch {
			case dnsErr.IsNotFound:
				return netip.Addr{}, fmt.Errorf("%w: %s", tunnel.ErrUnresolvedEndpoint, host)
			case dnsErr.IsTemporary || dnsErr.IsTimeout:
				return netip.Addr{}, fmt.Errorf("%w: %s", tunnel.ErrRetryDNS, host)
			}
		}
		return netip.Addr{}, fmt.Errorf("resolve %s: %w", host, err)
	}

	var fallback netip.Addr
	for _, a := range addrs {
		addr, err := netip.ParseAddr(a)
		if err != nil {
			continue
		}
		if addr.Is4() {
			return addr, nil
		}
		if !fallback.IsValid() {
			fallback = addr
		}
	}
	if fallback.IsValid() {
		return fallback, nil
	}
	return netip.Addr{}, fmt.Errorf("%w: %s", tunnel.ErrUnresolvedEndpoint, host)
}

// Disconnect removes the peer and deletes the interface.
func (e *CommandEngine) Disconnect(ctx context.Context) error {
	e.mu.Lock()
	initialized, peer := e.initialized, e.peer
	e.initialized = false
	e.resolved = ""
	e.mu.Unlock()

	if !initialized {
		return nil
	}

	var errs []error
	if err := e.runner.Run(ctx, "wg", "set", e.iface, "peer", peer, "remove"); err != nil {
		errs = append(errs, err)
	}
	if err := e.runner.Run(ctx, "ip", "link", "del", "dev", e.iface); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// PeerIsUp reports whether the latest handshake is younger than PeerTimeout.
func (e *CommandEngine) PeerIsUp(ctx context.Context) bool {
	ts, err := e.LatestHandshake(ctx)
	if err != nil {
		return false
	}
	return e.now().Sub(ts) < PeerTimeout
}

// LatestHandshake reads the peer's latest handshake from wg show.
func (e *CommandEngine) LatestHandshake(ctx context.Context) (time.Time, error) {
	e.mu.Lock()
	initialized, peer := e.initialized, e.peer
	e.mu.Unlock()

	if !initialized {
		return time.Time{}, ErrNotInitialized
	}

	out, err := e.runner.Output(ctx, "wg", "show", e.iface, "latest-handshakes")
	if err != nil {
		return time.Time{}, err
	}
	return parseLatestHandshake(out, peer)
}

// parseLatestHandshake finds peer in "<public-key>\t<unix-seconds>" lines.
func parseLatestHandshake(out []byte, peer string) (time.Time, error) {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 2 || fields[0] != peer {
			continue
		}
		secs, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse handshake time %q: %w", fields[1], err)
		}
		if secs == 0 {
			return time.Time{}, tunnel.ErrNoHandshake
		}
		return time.Unix(secs, 0), nil
	}
	return time.Time{}, tunnel.ErrNoHandshake
}

// AddAllowedIP routes network/mask through the peer.
func (e *CommandEngine) AddAllowedIP(ctx context.Context, network, mask netip.Addr) error {
	e.mu.Lock()
	initialized, peer := e.initialized, e.peer
	e.mu.Unlock()

	if !initialized {
		return ErrNotInitialized
	}
	if !network.Is4() || !mask.Is4() {
		return fmt.Errorf("%w: allowed ip %s/%s", ErrInvalidConfig, network, mask)
	}

	prefix := netip.PrefixFrom(network, maskBits(mask)).String()
	if err := e.runner.Run(ctx, "wg", "set", e.iface, "peer", peer, "allowed-ips", prefix); err != nil {
		return err
	}
	return e.runner.Run(ctx, "ip", "route", "replace", prefix, "dev", e.iface)
}

func (e *CommandEngine) debugLog(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}

// maskBits returns the prefix length of a contiguous IPv4 mask.
func maskBits(mask netip.Addr) int {
	b := mask.As4()
	v := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	return bits.LeadingZeros32(^v)
}

// Compile-time interface satisfaction check.
var _ tunnel.Engine = (*CommandEngine)(nil)
