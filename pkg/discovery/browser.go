package discovery

import (
	"context"
	"time"

	"github.com/enbility/zeroconf/v3/api"
)

// Browser searches for other orchestrator instances on the LAN.
// Informational only: results are logged for operator visibility and
// never drive dispatch, routing, or scheduling decisions.
type Browser interface {
	// BrowsePeers searches for other orchestrator instances. Returns a
	// channel of discovered peers, closed when ctx is cancelled.
	BrowsePeers(ctx context.Context) (<-chan *PeerInfo, error)

	// Stop stops all active browsing operations.
	Stop()
}

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// BrowseTimeout is carried in the config (default: 10 seconds).
	// BrowsePeers does not apply it: browsing runs until ctx is
	// cancelled or Stop is called.
	BrowseTimeout time.Duration

	// Interface specifies which network interface to use. Empty means
	// all interfaces.
	Interface string

	// ConnectionFactory creates multicast connections. If nil, uses
	// the default zeroconf connection factory. Set in tests to inject
	// mock connections.
	ConnectionFactory api.ConnectionFactory

	// InterfaceProvider lists network interfaces. If nil, uses the
	// default zeroconf interface provider. Set in tests to inject mock
	// interface lists.
	InterfaceProvider api.InterfaceProvider
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{BrowseTimeout: BrowseTimeout}
}

// ServiceEntry is a transport-agnostic view of one raw mDNS service
// record, used internally to convert zeroconf's ServiceEntry into a
// PeerInfo.
type ServiceEntry struct {
	Instance string
	Host     string
	Port     uint16
	Text     []string
	Addrs    []string
}

// ToPeerInfo converts a ServiceEntry to a PeerInfo, decoding its TXT
// records.
func (e *ServiceEntry) ToPeerInfo() (*PeerInfo, error) {
	txt := StringsToTXTRecords(e.Text)
	version, endpoints, queued, err := DecodePeerTXT(txt)
	if err != nil {
		return nil, err
	}

	return &PeerInfo{
		InstanceID:    e.Instance,
		Host:          e.Host,
		Port:          e.Port,
		Addresses:     e.Addrs,
		Version:       version,
		EndpointCount: endpoints,
		QueuedCount:   queued,
	}, nil
}

// mergeAddresses combines addresses from multiple network interfaces
// into one de-duplicated list.
func mergeAddresses(existing, added []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, a := range existing {
		seen[a] = struct{}{}
	}
	out := existing
	for _, a := range added {
		if _, ok := seen[a]; !ok {
			seen[a] = struct{}{}
			out = append(out, a)
		}
	}
	return out
}
