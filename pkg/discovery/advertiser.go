package discovery

import (
	"context"
	"time"

	"github.com/enbility/zeroconf/v3/api"
)

// Advertiser provides mDNS presence advertising for this orchestrator
// instance.
type Advertiser interface {
	// Advertise starts advertising this orchestrator instance. Calling
	// it again while already advertising replaces the prior
	// advertisement (updated TXT records, for example after an
	// endpoint count or queue depth change).
	Advertise(ctx context.Context, info *SelfInfo) error

	// Stop stops advertising.
	Stop() error
}

// AdvertiserConfig configures advertiser behavior.
type AdvertiserConfig struct {
	// Interface specifies which network interface to use. Empty means
	// all interfaces.
	Interface string

	// TTL is the DNS record TTL. Default: 120 seconds.
	TTL time.Duration

	// Quiet suppresses all mDNS network operations when true; methods
	// return nil without sending multicast traffic. Used in tests that
	// don't want real network I/O.
	Quiet bool

	// ConnectionFactory creates multicast connections. If nil, uses
	// the default zeroconf connection factory. Set in tests to inject
	// mock connections.
	ConnectionFactory api.ConnectionFactory

	// InterfaceProvider lists network interfaces. If nil, uses the
	// default zeroconf interface provider. Set in tests to inject mock
	// interface lists.
	InterfaceProvider api.InterfaceProvider
}

// DefaultAdvertiserConfig returns the default advertiser configuration.
func DefaultAdvertiserConfig() AdvertiserConfig {
	return AdvertiserConfig{TTL: TTL}
}
