package settings

import (
	"encoding/json"
	"math"
	"net/netip"

	"github.com/bvweerd/wgtunnel/pkg/stateful"
)

// FilePath is where the tunnel configuration is persisted.
const FilePath = "/config/wireguardSettings.json"

// Document keys.
const (
	KeyEnabled             = "enabled"
	KeyPrivateKey          = "private_key"
	KeyPeerPublicKey       = "peer_public_key"
	KeyPresharedKey        = "preshared_key"
	KeyAddress             = "address"
	KeyNetmask             = "netmask"
	KeyEndpoint            = "endpoint"
	KeyPort                = "port"
	KeyPersistentKeepalive = "persistent_keepalive"
)

// Factory defaults.
const (
	DefaultEnabled             = false
	DefaultNetmask             = "255.255.255.255"
	DefaultPort         uint16 = 51820
	DefaultKeepalive    uint16 = 25
	DefaultPrivateKey          = ""
	DefaultPeerPublicKey       = ""
	DefaultPresharedKey        = ""
	DefaultAddress             = ""
	DefaultEndpoint            = ""
)

// TunnelConfig describes one WireGuard tunnel.
type TunnelConfig struct {
	Enabled             bool   `json:"enabled"`
	PrivateKey          string `json:"private_key"`
	PeerPublicKey       string `json:"peer_public_key"`
	PresharedKey        string `json:"preshared_key"`
	Address             string `json:"address"`
	Netmask             string `json:"netmask"`
	Endpoint            string `json:"endpoint"`
	Port                uint16 `json:"port"`
	PersistentKeepalive uint16 `json:"persistent_keepalive"`
}

// Defaults returns the factory configuration.
func Defaults() TunnelConfig {
	return TunnelConfig{
		Enabled:             DefaultEnabled,
		PrivateKey:          DefaultPrivateKey,
		PeerPublicKey:       DefaultPeerPublicKey,
		PresharedKey:        DefaultPresharedKey,
		Address:             DefaultAddress,
		Netmask:             DefaultNetmask,
		Endpoint:            DefaultEndpoint,
		Port:                DefaultPort,
		PersistentKeepalive: DefaultKeepalive,
	}
}

// Eligible reports whether the tunnel may be started.
func (c TunnelConfig) Eligible() bool {
	return c.Enabled &&
		c.PrivateKey != "" &&
		c.PeerPublicKey != "" &&
		c.Endpoint != "" &&
		c.Address != ""
}

// Read writes c into root.
func Read(c TunnelConfig, root stateful.Object) {
	root[KeyEnabled] = c.Enabled
	root[KeyPrivateKey] = c.PrivateKey
	root[KeyPeerPublicKey] = c.PeerPublicKey
	root[KeyPresharedKey] = c.PresharedKey
	root[KeyAddress] = c.Address
	root[KeyNetmask] = c.Netmask
	root[KeyEndpoint] = c.Endpoint
	root[KeyPort] = c.Port
	root[KeyPersistentKeepalive] = c.PersistentKeepalive
}

// Update replaces every field of c from root. Missing or mistyped keys take
// the factory default.
func Update(root stateful.Object, c *TunnelConfig) stateful.UpdateResult {
	prev := *c

	c.Enabled = boolField(root, KeyEnabled, DefaultEnabled)
	c.PrivateKey = stringField(root, KeyPrivateKey, DefaultPrivateKey)
	c.PeerPublicKey = stringField(root, KeyPeerPublicKey, DefaultPeerPublicKey)
	c.PresharedKey = stringField(root, KeyPresharedKey, DefaultPresharedKey)
	c.Address = stringField(root, KeyAddress, DefaultAddress)
	c.Netmask = stringField(root, KeyNetmask, DefaultNetmask)
	c.Endpoint = stringField(root, KeyEndpoint, DefaultEndpoint)
	c.Port = uint16Field(root, KeyPort, DefaultPort)
	c.PersistentKeepalive = uint16Field(root, KeyPersistentKeepalive, DefaultKeepalive)

	switch {
	case prev == *c:
		return stateful.Unchanged
	case prev.Enabled != c.Enabled || prev.Endpoint != c.Endpoint || prev.Address != c.Address:
		return stateful.ChangedRestart
	default:
		return stateful.Changed
	}
}

// ChangedKeys lists the document keys whose values differ between a and b.
func ChangedKeys(a, b TunnelConfig) []string {
	var keys []string
	add := func(changed bool, key string) {
		if changed {
			keys = append(keys, key)
		}
	}
	add(a.Enabled != b.Enabled, KeyEnabled)
	add(a.PrivateKey != b.PrivateKey, KeyPrivateKey)
	add(a.PeerPublicKey != b.PeerPublicKey, KeyPeerPublicKey)
	add(a.PresharedKey != b.PresharedKey, KeyPresharedKey)
	add(a.Address != b.Address, KeyAddress)
	add(a.Netmask != b.Netmask, KeyNetmask)
	add(a.Endpoint != b.Endpoint, KeyEndpoint)
	add(a.Port != b.Port, KeyPort)
	add(a.PersistentKeepalive != b.PersistentKeepalive, KeyPersistentKeepalive)
	return keys
}

// Redacted returns a copy with the secret keys masked.
func (c TunnelConfig) Redacted() TunnelConfig {
	if c.PrivateKey != "" {
		c.PrivateKey = redactedSecret
	}
	if c.PresharedKey != "" {
		c.PresharedKey = redactedSecret
	}
	return c
}

const redactedSecret = "********"

// RouteNetwork returns the tunnel network (address AND netmask) and the mask.
func (c TunnelConfig) RouteNetwork() (network, mask netip.Addr, err error) {
	addr, err := netip.ParseAddr(c.Address)
	if err != nil || !addr.Is4() {
		return netip.Addr{}, netip.Addr{}, ErrInvalidAddress
	}
	mask, err = netip.ParseAddr(c.Netmask)
	if err != nil || !mask.Is4() {
		return netip.Addr{}, netip.Addr{}, ErrInvalidNetmask
	}

	a := addr.As4()
	m := mask.As4()
	var n [4]byte
	for i := range n {
		n[i] = a[i] & m[i]
	}
	return netip.AddrFrom4(n), mask, nil
}

func boolField(root stateful.Object, key string, def bool) bool {
	if v, ok := root[key].(bool); ok {
		return v
	}
	return def
}

func stringField(root stateful.Object, key string, def string) string {
	if v, ok := root[key].(string); ok {
		return v
	}
	return def
}

// uint16Field accepts the numeric types produced by the JSON and CBOR
// decoders as well as native Go integers.
func uint16Field(root stateful.Object, key string, def uint16) uint16 {
	var n float64
	switch v := root[key].(type) {
	case uint16:
		return v
	case float64:
		n = v
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case uint64:
		n = float64(v)
	case uint32:
		n = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return def
		}
		n = f
	default:
		return def
	}
	if n < 0 || n > math.MaxUint16 || n != math.Trunc(n) {
		return def
	}
	return uint16(n)
}
