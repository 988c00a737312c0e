// Package schedule tracks each device's duty-cycle schedule: the phase
// (data or cmd) a device last reported, when its next command window
// opens, how long that window lasts, and when the device was last
// heard from at all.
//
// # Duty Cycle
//
// A device spends most of its time in the "data" phase, publishing
// telemetry on a low-power radio budget. Periodically it opens a
// short "cmd" window during which it will accept control messages.
// Telemetry carries the schedule metadata describing this cycle
// (seconds until the window opens, the window's duration), which the
// Scheduler Engine feeds into this package's Update operation on every
// telemetry arrival.
//
// # Derived Predicates
//
//   - IsInWindow: the device's last reported mode was "cmd".
//   - IsImminent: the window is known to open within the next 5 seconds.
//   - TimeUntilWindow: seconds remaining, when known and not already open.
//   - IsConnected: telemetry has been received within the staleness window.
//
// # Staleness
//
// A schedule not refreshed in 5 minutes is stale and eligible for
// pruning; pruning is routine housekeeping and emits no event.
package schedule
