package discovery

import (
	"errors"
	"time"
)

// Service constants.
const (
	// ServiceType is the DNS-SD service type of the gateway.
	ServiceType = "_wgtunnel._tcp"

	// Domain is the mDNS domain.
	Domain = "local."

	// DefaultPort is advertised when ServiceInfo.Port is zero.
	DefaultPort = 8080

	// DefaultTTL is the DNS record TTL.
	DefaultTTL = 120 * time.Second

	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63
)

// TXT record keys.
const (
	TXTKeyPath    = "path"
	TXTKeyEnabled = "en"
	TXTKeyState   = "st"
	TXTKeyVersion = "ver"
)

// Errors.
var (
	ErrNotAdvertising      = errors.New("not advertising")
	ErrInstanceNameTooLong = errors.New("instance name too long")
	ErrMissingInfo         = errors.New("missing service info")
)

// ServiceInfo describes the advertised gateway.
type ServiceInfo struct {
	// Instance is the DNS-SD instance name.
	Instance string

	// Port is the REST listener port.
	Port uint16

	// Path is the status resource path.
	Path string

	Enabled bool

	// State is the tunnel state name, e.g. CONNECTED.
	State string

	Version string
}
