package discovery

import (
	"context"
	"log/slog"
	"time"
)

// Advertiser announces the gateway service.
type Advertiser interface {
	// Advertise starts advertising info, replacing any earlier advertisement.
	Advertise(ctx context.Context, info *ServiceInfo) error

	// Update refreshes the TXT records of the running advertisement.
	Update(info *ServiceInfo) error

	// Stop withdraws the advertisement.
	Stop() error
}

// AdvertiserConfig configures advertiser behavior.
type AdvertiserConfig struct {
	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string

	// TTL is the DNS record TTL.
	// Default: 120 seconds.
	TTL time.Duration

	Logger *slog.Logger
}

// DefaultAdvertiserConfig returns the default advertiser configuration.
func DefaultAdvertiserConfig() AdvertiserConfig {
	return AdvertiserConfig{
		Interface: "",
		TTL:       DefaultTTL,
	}
}

// NoopAdvertiser accepts every call and advertises nothing.
type NoopAdvertiser struct{}

func (NoopAdvertiser) Advertise(context.Context, *ServiceInfo) error { return nil }
func (NoopAdvertiser) Update(*ServiceInfo) error                     { return nil }
func (NoopAdvertiser) Stop() error                                   { return nil }

var (
	_ Advertiser = NoopAdvertiser{}
	_ Advertiser = (*MDNSAdvertiser)(nil)
)
