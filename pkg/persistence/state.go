package persistence

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/homestead/orchestrator/pkg/queue"
	"github.com/homestead/orchestrator/pkg/route"
	"github.com/homestead/orchestrator/pkg/schedule"
)

// SnapshotVersion is the current version of the snapshot file format.
const SnapshotVersion = 1

// RuntimeSnapshot is a point-in-time diagnostic dump of the
// orchestrator's in-memory state: known routes, device schedules, and
// per-device queue depths. It exists for operator support bundles and
// offline inspection, never to restore state on restart — durable
// persistence of queued commands across restarts is an explicit
// non-goal, and nothing in this repository reloads a RuntimeSnapshot
// back into a running Scheduler Engine.
type RuntimeSnapshot struct {
	// Version is the snapshot file format version.
	Version int `json:"version"`

	// SavedAt is when the snapshot was captured.
	SavedAt time.Time `json:"saved_at"`

	// Routes mirrors pkg/route's routing table at capture time.
	Routes []RouteSnapshot `json:"routes,omitempty"`

	// Schedules mirrors pkg/schedule's tracker at capture time.
	Schedules []ScheduleSnapshot `json:"schedules,omitempty"`

	// QueueDepths maps device id to its pending command count at
	// capture time.
	QueueDepths map[string]int `json:"queue_depths,omitempty"`
}

// RouteSnapshot captures one pkg/route.Entry.
type RouteSnapshot struct {
	DeviceID     string `json:"device_id"`
	Transport    string `json:"transport"`
	Address      string `json:"address"`
	PendingTrust bool   `json:"pending_trust,omitempty"`
}

// ScheduleSnapshot captures one device's pkg/schedule.Schedule.
type ScheduleSnapshot struct {
	DeviceID       string        `json:"device_id"`
	Mode           string        `json:"mode,omitempty"`
	WindowOpensAt  time.Time     `json:"window_opens_at,omitempty"`
	WindowDuration time.Duration `json:"window_duration,omitempty"`
	LastUpdated    time.Time     `json:"last_updated,omitempty"`
}

// CaptureRuntimeSnapshot assembles a RuntimeSnapshot from the live
// routing table, schedule tracker, and queue registry. Safe to call
// at any time; each source is read under its own lock independently,
// so the result is a best-effort point-in-time view rather than an
// atomic cross-component snapshot.
func CaptureRuntimeSnapshot(routes *route.Table, schedules *schedule.Tracker, queues *queue.Registry) RuntimeSnapshot {
	snap := RuntimeSnapshot{
		Version: SnapshotVersion,
		SavedAt: time.Now(),
	}

	if routes != nil {
		for _, e := range routes.Entries() {
			snap.Routes = append(snap.Routes, RouteSnapshot{
				DeviceID:     e.DeviceID,
				Transport:    string(e.Transport),
				Address:      e.Address,
				PendingTrust: e.PendingTrust,
			})
		}
	}

	if schedules != nil {
		for _, ds := range schedules.Snapshot() {
			snap.Schedules = append(snap.Schedules, ScheduleSnapshot{
				DeviceID:       ds.DeviceID,
				Mode:           string(ds.Schedule.Mode),
				WindowOpensAt:  ds.Schedule.WindowOpensAt,
				WindowDuration: ds.Schedule.WindowDuration,
				LastUpdated:    ds.Schedule.LastUpdated,
			})
		}
	}

	if queues != nil {
		devices := queues.Devices()
		if len(devices) > 0 {
			snap.QueueDepths = make(map[string]int, len(devices))
			for _, id := range devices {
				snap.QueueDepths[id] = queues.For(id).Len()
			}
		}
	}

	return snap
}

// SnapshotStore writes and reads RuntimeSnapshot files on disk.
type SnapshotStore struct {
	mu   sync.Mutex
	path string
}

// NewSnapshotStore creates a store writing to path.
func NewSnapshotStore(path string) *SnapshotStore {
	return &SnapshotStore{path: path}
}

// Save writes snap to disk as indented JSON, stamping Version and
// SavedAt if unset.
func (s *SnapshotStore) Save(snap *RuntimeSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	snap.Version = SnapshotVersion
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now()
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0644)
}

// Load reads a RuntimeSnapshot from disk.
// Returns nil, nil if the file doesn't exist.
func (s *SnapshotStore) Load() (*RuntimeSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	snap := &RuntimeSnapshot{}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, err
	}

	return snap, nil
}

// Clear removes the snapshot file.
func (s *SnapshotStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
