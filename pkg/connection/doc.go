// Package connection provides connection lifecycle management for
// serial endpoints that come and go as devices are plugged in, lose
// power, or drop off a flaky BLE UART bridge.
//
// This package handles:
//   - Exponential backoff for reopen attempts
//   - Jitter to prevent several endpoints reopening in lockstep
//   - Connection state tracking
//   - Automatic reopening on I/O loss
//
// # Reopen Strategy
//
// When an endpoint's reader hits EOF or a write times out, the manager
// backs off exponentially:
//
//  1. Initial delay: 1 second
//  2. Exponential increase: 2s, 4s, 8s, 16s, 32s
//  3. Maximum delay: 60 seconds
//  4. Continue at 60s until successful
//  5. Reset to 1s on successful reopen
//
// # Jitter
//
// To prevent every endpoint reopening in the same instant after a
// shared power event:
//
//	actual_delay = base_delay + random(0, base_delay * 0.25)
//
// # Success Criteria
//
// A reopen is successful when the device file can be opened and the
// port configured (baud/parity/stop bits). Nothing above the serial
// layer participates in this decision.
package connection
