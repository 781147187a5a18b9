package discovery

import (
	"context"
	"fmt"
	"net"
	"slices"
	"sync"

	"github.com/enbility/zeroconf/v3"
)

// server is the part of *zeroconf.Server the advertiser uses.
type server interface {
	SetText(txt []string)
	Shutdown()
}

type registerFunc func(instance, service, domain string, port int, txt []string, ifaces []net.Interface, opts ...zeroconf.ServerOption) (server, error)

type zeroconfServer struct {
	s *zeroconf.Server
}

func (z zeroconfServer) SetText(txt []string) { z.s.SetText(txt) }
func (z zeroconfServer) Shutdown()            { z.s.Shutdown() }

func zeroconfRegister(instance, service, domain string, port int, txt []string, ifaces []net.Interface, opts ...zeroconf.ServerOption) (server, error) {
	s, err := zeroconf.Register(instance, service, domain, port, txt, ifaces, opts...)
	if err != nil {
		return nil, err
	}
	return zeroconfServer{s: s}, nil
}

// MDNSAdvertiser implements the Advertiser interface using zeroconf.
type MDNSAdvertiser struct {
	config   AdvertiserConfig
	register registerFunc

	mu     sync.Mutex
	server server
	txt    []string
}

// NewMDNSAdvertiser creates a new mDNS advertiser.
func NewMDNSAdvertiser(config AdvertiserConfig) *MDNSAdvertiser {
	return &MDNSAdvertiser{
		config:   config,
		register: zeroconfRegister,
	}
}

// getInterfaces returns the network interfaces to use for advertising.
// Returns nil to use all interfaces.
func (a *MDNSAdvertiser) getInterfaces() []net.Interface {
	if a.config.Interface == "" {
		return nil
	}

	iface, err := net.InterfaceByName(a.config.Interface)
	if err != nil {
		if a.config.Logger != nil {
			a.config.Logger.Warn("mdns interface not found, using all interfaces", "interface", a.config.Interface, "error", err)
		}
		return nil
	}
	return []net.Interface{*iface}
}

// Advertise starts advertising the gateway service.
func (a *MDNSAdvertiser) Advertise(ctx context.Context, info *ServiceInfo) error {
	if info == nil {
		return ErrMissingInfo
	}
	if err := ValidateInstanceName(info.Instance); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Stop existing if any
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	port := int(info.Port)
	if port == 0 {
		port = DefaultPort
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	txt := TXTRecordsToStrings(EncodeTXT(info))
	srv, err := a.register(info.Instance, ServiceType, Domain, port, txt, a.getInterfaces(), opts...)
	if err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}

	a.server = srv
	a.txt = txt
	if a.config.Logger != nil {
		a.config.Logger.Info("mdns advertisement started", "instance", info.Instance, "port", port)
	}
	return nil
}

// Update refreshes TXT records. Unchanged records are not re-announced.
func (a *MDNSAdvertiser) Update(info *ServiceInfo) error {
	if info == nil {
		return ErrMissingInfo
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil {
		return ErrNotAdvertising
	}

	txt := TXTRecordsToStrings(EncodeTXT(info))
	if slices.Equal(txt, a.txt) {
		return nil
	}
	a.server.SetText(txt)
	a.txt = txt
	return nil
}

// Stop withdraws the advertisement. Stopping twice is not an error.
func (a *MDNSAdvertiser) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
		a.txt = nil
	}
	return nil
}

// Advertising reports whether an advertisement is active.
func (a *MDNSAdvertiser) Advertising() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.server != nil
}
