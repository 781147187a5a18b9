package settings

import (
	"errors"
	"fmt"
	"net/netip"

	"github.com/bvweerd/wgtunnel/pkg/wgkey"
)

// Validation errors.
var (
	ErrMissingPrivateKey    = errors.New("private key is required")
	ErrMissingPeerPublicKey = errors.New("peer public key is required")
	ErrMissingAddress       = errors.New("address is required")
	ErrMissingEndpoint      = errors.New("endpoint is required")
	ErrInvalidAddress       = errors.New("address must be an IPv4 address")
	ErrInvalidNetmask       = errors.New("netmask must be an IPv4 netmask")
	ErrInvalidKey           = errors.New("invalid key")
)

// Validate checks c the way the settings form does. A disabled tunnel is
// always valid so partial drafts can be stored.
func (c TunnelConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	var errs []error
	if c.PrivateKey == "" {
		errs = append(errs, ErrMissingPrivateKey)
	} else if !wgkey.Valid(c.PrivateKey) {
		errs = append(errs, fmt.Errorf("%w: private_key", ErrInvalidKey))
	}
	if c.PeerPublicKey == "" {
		errs = append(errs, ErrMissingPeerPublicKey)
	} else if !wgkey.Valid(c.PeerPublicKey) {
		errs = append(errs, fmt.Errorf("%w: peer_public_key", ErrInvalidKey))
	}
	if c.PresharedKey != "" && !wgkey.Valid(c.PresharedKey) {
		errs = append(errs, fmt.Errorf("%w: preshared_key", ErrInvalidKey))
	}
	if c.Address == "" {
		errs = append(errs, ErrMissingAddress)
	} else if a, err := netip.ParseAddr(c.Address); err != nil || !a.Is4() {
		errs = append(errs, ErrInvalidAddress)
	}
	if !validNetmask(c.Netmask) {
		errs = append(errs, ErrInvalidNetmask)
	}
	if c.Endpoint == "" {
		errs = append(errs, ErrMissingEndpoint)
	}

	return errors.Join(errs...)
}

// validNetmask accepts dotted IPv4 masks with contiguous leading ones.
func validNetmask(s string) bool {
	m, err := netip.ParseAddr(s)
	if err != nil || !m.Is4() {
		return false
	}
	b := m.As4()
	v := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	inverted := ^v
	return inverted&(inverted+1) == 0
}
