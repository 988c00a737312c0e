package transport

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/homestead/orchestrator/pkg/bus"
	orchlog "github.com/homestead/orchestrator/pkg/log"
	"github.com/homestead/orchestrator/pkg/route"
	"github.com/homestead/orchestrator/pkg/wire"
)

// rescanInterval is how often newly-appeared endpoints are discovered
// after startup.
const rescanInterval = 5 * time.Second

// maxLoggedFrameBytes bounds how much of a frame's raw bytes are
// copied into a diagnostic log event.
const maxLoggedFrameBytes = 512

// endpoint is one open serial link. The reader task that opened it
// holds the only read handle; writes go through writeMu so the
// outbound forwarder and the reader's own lifecycle never race on the
// same port.
type endpoint struct {
	address   string
	transport wire.Transport

	writeMu sync.Mutex
	port    Port
}

func (e *endpoint) write(data []byte) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	_, err := e.port.Write(data)
	return err
}

// Manager is the Transport Manager. It discovers endpoints, runs a
// reader task per endpoint, forwards configured outbound bus topics to
// the correct device, and implements scheduler.Sender directly for
// the Scheduler Engine's own dispatch paths.
type Manager struct {
	bus    *bus.Bus
	routes *route.Table
	opener Opener

	identity       string
	outboundTopics []string

	mu        sync.RWMutex
	known     map[string]struct{}
	endpoints map[string]*endpoint // address -> endpoint

	extraRoots []string
	extraGlobs []string

	logger orchlog.Logger

	now func() time.Time
}

// SetSerialSources configures additional directories/glob patterns
// consulted on every scan, alongside the platform defaults. Call
// before Start; it is not safe for concurrent use with a running scan.
func (m *Manager) SetSerialSources(roots, globs []string) {
	m.extraRoots = roots
	m.extraGlobs = globs
}

// SetLogger wires a diagnostic logger that receives every frame this
// Manager reads from or writes to a serial endpoint. Call before
// Start. A nil logger disables frame logging (the default).
func (m *Manager) SetLogger(l orchlog.Logger) {
	if l == nil {
		l = orchlog.NoopLogger{}
	}
	m.logger = l
}

func (m *Manager) logFrame(direction orchlog.Direction, address string, t wire.Transport, deviceID string, data []byte) {
	if m.logger == nil {
		return
	}
	size := len(data)
	truncated := size > maxLoggedFrameBytes
	logged := data
	if truncated {
		logged = data[:maxLoggedFrameBytes]
	}
	m.logger.Log(orchlog.Event{
		Timestamp: time.Now(),
		Direction: direction,
		Layer:     orchlog.LayerWire,
		Category:  orchlog.CategoryFrame,
		Endpoint:  address,
		DeviceID:  deviceID,
		Frame: &orchlog.FrameEvent{
			Size:      size,
			Data:      append([]byte(nil), logged...),
			Truncated: truncated,
		},
	})
	_ = t
}

// NewManager wires a Manager over its dependencies. opener may be nil,
// in which case real serial device files are opened; tests pass a
// fake so no hardware is required.
func NewManager(b *bus.Bus, routes *route.Table, opener Opener, identity string, outboundTopics []string) *Manager {
	if opener == nil {
		opener = NewSerialOpener()
	}
	if identity == "" {
		identity = "orchestrator"
	}
	return &Manager{
		bus:            b,
		routes:         routes,
		opener:         opener,
		identity:       identity,
		outboundTopics: outboundTopics,
		known:          make(map[string]struct{}),
		endpoints:      make(map[string]*endpoint),
		logger:         orchlog.NoopLogger{},
		now:            time.Now,
	}
}

// Start subscribes the configured outbound topics, spawns a reader for
// every endpoint already present, and starts the periodic rescanner.
// It returns once the initial scan and subscriptions are in place;
// all ongoing work happens in background goroutines tied to ctx.
func (m *Manager) Start(ctx context.Context) {
	for _, topic := range m.outboundTopics {
		receiver := m.bus.Subscribe(topic)
		go m.runOutbound(ctx, receiver)
	}

	m.scan(ctx)

	go func() {
		ticker := time.NewTicker(rescanInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.scan(ctx)
			}
		}
	}()
}

// scan discovers endpoints and spawns a reader for each one not yet
// claimed. Claiming happens before the reader goroutine is spawned, so
// a slow reader startup can never cause the same path to be claimed
// twice by a concurrent scan.
func (m *Manager) scan(ctx context.Context) {
	current := DiscoverEndpointsIn(m.extraRoots, m.extraGlobs)

	var fresh []string
	m.mu.Lock()
	for _, address := range current {
		if _, claimed := m.known[address]; claimed {
			continue
		}
		m.known[address] = struct{}{}
		fresh = append(fresh, address)
	}
	m.mu.Unlock()

	for _, address := range fresh {
		go m.runReader(ctx, address, wire.TransportUSB)
	}

	if m.bus != nil && len(fresh) > 0 {
		_ = m.bus.PublishAppEvent("endpoint_scan", "transport", map[string]any{
			"new_endpoints": fresh,
		})
	}
}

func (m *Manager) registerEndpoint(address string, transport wire.Transport, port Port) *endpoint {
	ep := &endpoint{address: address, transport: transport, port: port}
	m.mu.Lock()
	m.endpoints[address] = ep
	m.mu.Unlock()
	return ep
}

func (m *Manager) unregisterEndpoint(address string) {
	m.mu.Lock()
	delete(m.endpoints, address)
	m.mu.Unlock()
}

func (m *Manager) endpointAt(address string) (*endpoint, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ep, ok := m.endpoints[address]
	return ep, ok
}

// Send implements scheduler.Sender: it resolves deviceID's route and
// writes a serialized command frame to the matching endpoint. Neither
// the Scheduler Engine nor this method ever references the other
// package's concrete type.
func (m *Manager) Send(ctx context.Context, deviceID string, payload any) error {
	entry, ok := m.routes.Lookup(deviceID)
	if !ok {
		return fmt.Errorf("transport: no route for device %q", deviceID)
	}

	ep, ok := m.endpointAt(entry.Address)
	if !ok {
		return fmt.Errorf("transport: endpoint %q not open", entry.Address)
	}

	msg := &wire.Message{
		Protocol:  wire.ProtocolVersion,
		Type:      wire.MessageCommand,
		Topic:     deviceID,
		Timestamp: m.now().Unix(),
		Source:    wire.Source{ID: m.identity, Transport: entry.Transport},
		Payload:   payload,
	}
	data, err := wire.Serialize(msg)
	if err != nil {
		return fmt.Errorf("transport: serialize command for %q: %w", deviceID, err)
	}
	if err := ep.write(data); err != nil {
		return fmt.Errorf("transport: write to %q: %w", entry.Address, err)
	}
	m.logFrame(orchlog.DirectionOut, entry.Address, entry.Transport, deviceID, data)
	return nil
}

func logf(format string, args ...any) { log.Printf("transport: "+format, args...) }
