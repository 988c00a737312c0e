// Package route maintains the device-id-to-endpoint routing table: the
// Transport Manager's record of where each device was last heard from.
//
// The table is populated purely by observation — the first well-formed
// frame from a device establishes its route; later frames refresh the
// address (last-writer-wins). Routes never expire on their own; only a
// process restart clears the table.
//
// Routes observed over a transport that isn't physically local (radio,
// LoRa, Zigbee, as opposed to USB or an internal loopback) start
// flagged pending-trust: the Scheduler Engine's drain path will not
// dispatch to them until an operator explicitly trusts the device.
package route
