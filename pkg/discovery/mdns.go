package discovery

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/enbility/zeroconf/v3"
)

// MDNSAdvertiser implements Advertiser using zeroconf.
type MDNSAdvertiser struct {
	config AdvertiserConfig

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewMDNSAdvertiser creates a new mDNS advertiser.
func NewMDNSAdvertiser(config AdvertiserConfig) (*MDNSAdvertiser, error) {
	return &MDNSAdvertiser{config: config}, nil
}

func (a *MDNSAdvertiser) getInterfaces() []net.Interface {
	if a.config.Interface == "" {
		return nil
	}
	iface, err := net.InterfaceByName(a.config.Interface)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

func (a *MDNSAdvertiser) serverOptions() []zeroconf.ServerOption {
	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}
	if a.config.ConnectionFactory != nil {
		opts = append(opts, zeroconf.WithServerConnFactory(a.config.ConnectionFactory))
	}
	if a.config.InterfaceProvider != nil {
		opts = append(opts, zeroconf.WithServerInterfaceProvider(a.config.InterfaceProvider))
	}
	return opts
}

// Advertise starts (or updates) the orchestrator's presence
// advertisement.
func (a *MDNSAdvertiser) Advertise(ctx context.Context, info *SelfInfo) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := ValidateInstanceName(info.InstanceID); err != nil {
		return err
	}

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	if a.config.Quiet {
		return nil
	}

	txtStrings := TXTRecordsToStrings(EncodeSelfTXT(info))

	port := int(info.Port)
	if port == 0 {
		port = DefaultPort
	}

	server, err := zeroconf.Register(
		info.InstanceID,
		ServiceType,
		Domain,
		port,
		txtStrings,
		a.getInterfaces(),
		a.serverOptions()...,
	)
	if err != nil {
		return fmt.Errorf("discovery: register advertisement: %w", err)
	}

	a.server = server
	return nil
}

// Stop stops advertising.
func (a *MDNSAdvertiser) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
	return nil
}

// MDNSBrowser implements Browser using zeroconf.
type MDNSBrowser struct {
	config BrowserConfig

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool
}

// NewMDNSBrowser creates a new mDNS browser.
func NewMDNSBrowser(config BrowserConfig) (*MDNSBrowser, error) {
	return &MDNSBrowser{config: config}, nil
}

// BrowsePeers searches for other orchestrator instances. Services are
// aggregated by instance name: addresses seen on multiple interfaces
// are merged into a single PeerInfo.
func (b *MDNSBrowser) BrowsePeers(ctx context.Context) (<-chan *PeerInfo, error) {
	ctx, cancel := context.WithCancel(ctx)

	b.mu.Lock()
	b.cancel = cancel
	b.mu.Unlock()

	out := make(chan *PeerInfo)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		for range removed {
		}
	}()

	go func() {
		defer close(out)

		peers := make(map[string]*PeerInfo)

		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				peer := b.entryToPeer(entry)
				if peer == nil {
					continue
				}

				if existing, found := peers[peer.InstanceID]; found {
					existing.Addresses = mergeAddresses(existing.Addresses, peer.Addresses)
					continue
				}
				peers[peer.InstanceID] = peer

				select {
				case out <- peer:
				case <-ctx.Done():
					return
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, b.browserOptions()...)
	}()

	return out, nil
}

// Stop stops all active browsing operations.
func (b *MDNSBrowser) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopped = true
	if b.cancel != nil {
		b.cancel()
	}
}

func (b *MDNSBrowser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption

	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}
	if b.config.ConnectionFactory != nil {
		opts = append(opts, zeroconf.WithClientConnFactory(b.config.ConnectionFactory))
	}
	if b.config.InterfaceProvider != nil {
		opts = append(opts, zeroconf.WithClientInterfaceProvider(b.config.InterfaceProvider))
	}
	return opts
}

func (b *MDNSBrowser) entryToPeer(entry *zeroconf.ServiceEntry) *PeerInfo {
	txt := StringsToTXTRecords(entry.Text)
	version, endpoints, queued, err := DecodePeerTXT(txt)
	if err != nil {
		return nil
	}

	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}

	return &PeerInfo{
		InstanceID:    entry.Instance,
		Host:          entry.HostName,
		Port:          uint16(entry.Port),
		Addresses:     addrs,
		Version:       version,
		EndpointCount: endpoints,
		QueuedCount:   queued,
	}
}

// Ensure MDNSAdvertiser implements Advertiser.
var _ Advertiser = (*MDNSAdvertiser)(nil)

// Ensure MDNSBrowser implements Browser.
var _ Browser = (*MDNSBrowser)(nil)
