// Package transport is the Transport Manager: it owns every physical
// serial link to a device, keeps the routing table current, and
// bridges the message bus and the wire protocol in both directions.
//
// # Endpoint Discovery
//
// On Linux, endpoints are device files matching /dev/ttyUSB* and
// /dev/ttyACM*. On other Unix platforms, /dev/cu.* is scanned instead.
// A background rescanner re-enumerates every 5 seconds so a device
// plugged in after startup is picked up without a restart; each
// endpoint path is claimed exactly once for the life of the process.
//
// # Reader / Writer Split
//
// Each endpoint gets exactly one reader task, opened at 115200 8N1.
// The reader owns the only open handle to its port; outbound sends
// reuse that handle through the Manager rather than opening a second
// one. Inbound frames that fail to parse as SSP at all are discarded
// silently (likely modem noise); frames that look like SSP but fail to
// decode are logged and the reader continues.
//
// # Outbound Forwarding
//
// The Manager subscribes to a configured set of bus topics whose
// traffic should reach external devices. Each message is routed by
// extracting a target device id from its payload, resolving that id
// through the routing table, and writing a serialized frame to the
// matching endpoint. The Manager also implements scheduler.Sender
// directly, so the Scheduler Engine's drain-and-send and critical
// paths call straight into it without a bus round trip.
package transport
