package schedule

import (
	"sync"
	"time"
)

// Mode is a device's last-reported duty-cycle phase.
type Mode string

const (
	ModeData Mode = "data"
	ModeCmd  Mode = "cmd"
)

// IsValid reports whether m is a known mode.
func (m Mode) IsValid() bool {
	return m == ModeData || m == ModeCmd
}

// DefaultWindowDuration is used when telemetry omits cmd_dur.
const DefaultWindowDuration = 10 * time.Second

// ImminentWithin is how far in the future a window open must fall to
// be considered imminent.
const ImminentWithin = 5 * time.Second

// StaleAfter is how long a schedule may go unrefreshed before it is
// eligible for pruning.
const StaleAfter = 5 * time.Minute

// Schedule is one device's current duty-cycle state.
type Schedule struct {
	Mode Mode

	// WindowOpensAt is the absolute instant the next command window
	// opens. Zero means the device is already in-window, or the next
	// opening time is unknown.
	WindowOpensAt time.Time

	WindowDuration time.Duration
	LastUpdated    time.Time
}

// Tracker is the shared per-device schedule map. Safe for concurrent
// use.
type Tracker struct {
	mu        sync.RWMutex
	schedules map[string]Schedule
	now       func() time.Time
}

// NewTracker constructs an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		schedules: make(map[string]Schedule),
		now:       time.Now,
	}
}

// Update applies schedule metadata observed in telemetry from
// deviceID. An invalid mode leaves the tracker unmodified. cmdIn and
// cmdDur are seconds, as carried on the wire; cmdDur of zero is
// replaced with DefaultWindowDuration.
func (t *Tracker) Update(deviceID string, mode Mode, cmdIn, cmdDur uint64) {
	if !mode.IsValid() {
		return
	}

	now := t.now()
	duration := DefaultWindowDuration
	if cmdDur > 0 {
		duration = time.Duration(cmdDur) * time.Second
	}

	var opensAt time.Time
	if cmdIn > 0 {
		opensAt = now.Add(time.Duration(cmdIn) * time.Second)
	}

	t.mu.Lock()
	t.schedules[deviceID] = Schedule{
		Mode:           mode,
		WindowOpensAt:  opensAt,
		WindowDuration: duration,
		LastUpdated:    now,
	}
	t.mu.Unlock()
}

// Get returns the current schedule for deviceID, if any.
func (t *Tracker) Get(deviceID string) (Schedule, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.schedules[deviceID]
	return s, ok
}

// IsInWindow reports whether deviceID's last reported mode was "cmd".
func (t *Tracker) IsInWindow(deviceID string) bool {
	s, ok := t.Get(deviceID)
	return ok && s.Mode == ModeCmd
}

// IsImminent reports whether deviceID's next window is known to open
// within the next ImminentWithin.
func (t *Tracker) IsImminent(deviceID string) bool {
	s, ok := t.Get(deviceID)
	if !ok || s.WindowOpensAt.IsZero() {
		return false
	}
	until := s.WindowOpensAt.Sub(t.now())
	return until >= 0 && until <= ImminentWithin
}

// TimeUntilWindow returns the time remaining until deviceID's next
// command window, and false if the device is already in-window or its
// next opening is unknown.
func (t *Tracker) TimeUntilWindow(deviceID string) (time.Duration, bool) {
	s, ok := t.Get(deviceID)
	if !ok || s.WindowOpensAt.IsZero() {
		return 0, false
	}
	until := s.WindowOpensAt.Sub(t.now())
	if until < 0 {
		until = 0
	}
	return until, true
}

// IsConnected reports whether telemetry has been received from
// deviceID within StaleAfter. This is a read-only freshness predicate:
// it does not gate dispatch, only informs query_queue_status.
func (t *Tracker) IsConnected(deviceID string) bool {
	s, ok := t.Get(deviceID)
	if !ok {
		return false
	}
	return t.now().Sub(s.LastUpdated) < StaleAfter
}

// Prune removes every schedule whose LastUpdated is older than
// staleAfter, returning the count removed. A staleAfter of zero or
// less falls back to the package StaleAfter default. Routine
// housekeeping; callers should not emit an event for the removals
// (ScheduleStale is silent per the error taxonomy).
func (t *Tracker) Prune(staleAfter time.Duration) int {
	if staleAfter <= 0 {
		staleAfter = StaleAfter
	}
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for id, s := range t.schedules {
		if now.Sub(s.LastUpdated) >= staleAfter {
			delete(t.schedules, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked schedules.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.schedules)
}

// DeviceSchedule pairs a device id with its tracked Schedule, returned
// by Snapshot.
type DeviceSchedule struct {
	DeviceID string
	Schedule Schedule
}

// Snapshot returns every tracked schedule, in no particular order.
// Used by diagnostic tooling (pkg/persistence); never consulted by the
// dispatch path itself.
func (t *Tracker) Snapshot() []DeviceSchedule {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]DeviceSchedule, 0, len(t.schedules))
	for id, s := range t.schedules {
		out = append(out, DeviceSchedule{DeviceID: id, Schedule: s})
	}
	return out
}
