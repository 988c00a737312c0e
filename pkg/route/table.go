package route

import (
	"errors"
	"sync"

	"github.com/homestead/orchestrator/pkg/bus"
	"github.com/homestead/orchestrator/pkg/wire"
)

// ErrUnknownDevice is returned by Trust for a device id with no route.
var ErrUnknownDevice = errors.New("route: unknown device")

// Entry is one row of the routing table.
type Entry struct {
	DeviceID  string
	Transport wire.Transport
	Address   string

	// PendingTrust is true for a route observed over a transport that
	// requires explicit operator confirmation before the scheduler will
	// dispatch to it (see wire.Transport.RequiresTrust).
	PendingTrust bool
}

// Table is the device id -> endpoint routing table. Safe for
// concurrent use.
type Table struct {
	mu      sync.RWMutex
	entries map[string]Entry
	bus     *bus.Bus
}

// New constructs an empty table. b may be nil, in which case
// device-discovered events are not published (useful in tests).
func New(b *bus.Bus) *Table {
	return &Table{
		entries: make(map[string]Entry),
		bus:     b,
	}
}

// Observe records that deviceID was last heard from at address over
// transport. The first observation of a device creates its route; a
// newly-created route starting pending-trust publishes a
// "device_discovered" app event. Subsequent observations refresh the
// address (last-writer-wins) and leave PendingTrust untouched.
func (t *Table) Observe(deviceID string, transport wire.Transport, address string) {
	t.mu.Lock()
	existing, known := t.entries[deviceID]
	if known {
		existing.Transport = transport
		existing.Address = address
		t.entries[deviceID] = existing
		t.mu.Unlock()
		return
	}

	entry := Entry{
		DeviceID:     deviceID,
		Transport:    transport,
		Address:      address,
		PendingTrust: transport.RequiresTrust(),
	}
	t.entries[deviceID] = entry
	t.mu.Unlock()

	if entry.PendingTrust && t.bus != nil {
		_ = t.bus.PublishAppEvent("device_discovered", "route", map[string]any{
			"device_id": deviceID,
			"transport": string(transport),
		})
	}
}

// Lookup returns the current route for deviceID, if any.
func (t *Table) Lookup(deviceID string) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[deviceID]
	return e, ok
}

// IsDispatchable reports whether the scheduler's drain path may send
// to deviceID: the route must exist and must not be pending trust.
func (t *Table) IsDispatchable(deviceID string) bool {
	e, ok := t.Lookup(deviceID)
	return ok && !e.PendingTrust
}

// Trust clears the pending-trust flag for deviceID, letting the
// scheduler dispatch to it. Returns ErrUnknownDevice if no route has
// ever been observed for deviceID.
func (t *Table) Trust(deviceID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[deviceID]
	if !ok {
		return ErrUnknownDevice
	}
	e.PendingTrust = false
	t.entries[deviceID] = e
	return nil
}

// Len returns the number of known routes.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Entries returns a snapshot of every known route, in no particular
// order. Used by diagnostic tooling (pkg/persistence); never consulted
// by the dispatch path itself.
func (t *Table) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entries := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		entries = append(entries, e)
	}
	return entries
}
