package discovery

import (
	"errors"
	"time"
)

// ServiceType is the mDNS service type orchestrators advertise and
// browse for.
const ServiceType = "_homestead-orch._tcp"

// Domain is the mDNS domain.
const Domain = "local"

// DefaultPort is the default orchestrator operator-console port.
const DefaultPort = 8090

// TXT record keys.
const (
	TXTKeyVersion      = "V"  // protocol version
	TXTKeyEndpoints    = "EP" // serial endpoint count
	TXTKeyQueuedCount  = "Q"  // total queued command count across devices
)

// Timing constants.
const (
	// TTL is the DNS record TTL for advertised services.
	TTL = 120 * time.Second

	// BrowseTimeout is the default timeout for peer browsing.
	BrowseTimeout = 10 * time.Second
)

// MaxInstanceNameLen is the DNS label limit.
const MaxInstanceNameLen = 63

// Errors returned by this package.
var (
	ErrMissingRequired     = errors.New("discovery: missing required TXT field")
	ErrInvalidTXTRecord    = errors.New("discovery: invalid TXT record format")
	ErrInstanceNameTooLong = errors.New("discovery: instance name exceeds 63 characters")
	ErrAlreadyAdvertising  = errors.New("discovery: already advertising")
)

// SelfInfo describes the orchestrator instance being advertised.
type SelfInfo struct {
	// InstanceID identifies this orchestrator instance (e.g. a short
	// hostname-derived id). Used as the mDNS instance name.
	InstanceID string

	// Version is this build's protocol version string.
	Version string

	// EndpointCount is the endpoint count advertised in the EP TXT
	// record, as supplied by the caller.
	EndpointCount int

	// QueuedCount is the total number of commands queued across every
	// device at advertisement time.
	QueuedCount int

	// Port is the operator-console port to advertise.
	Port uint16

	// Host is a hostname field. MDNSAdvertiser does not read it;
	// zeroconf.Register derives the advertised host itself.
	Host string
}

// PeerInfo describes another orchestrator instance found via mDNS
// browsing. Used only for operator-visible logging — nothing in this
// repository dispatches to, or otherwise acts on, a discovered peer.
type PeerInfo struct {
	InstanceID    string
	Host          string
	Port          uint16
	Addresses     []string
	Version       string
	EndpointCount int
	QueuedCount   int
}
