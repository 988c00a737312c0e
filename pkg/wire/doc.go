// Package wire implements the SSP/1.0 line-delimited JSON protocol spoken
// over serial links between the orchestrator and the device fleet.
//
// SSP messages are transmitted as single UTF-8 JSON lines terminated by
// '\n'. Two shapes appear on the wire:
//
//   - The envelope shape: the general-purpose message used for commands,
//     responses, and events, carrying a topic, a typed payload, and
//     optional QoS/retain/correlation fields.
//   - The compact telemetry shape: a terse form devices use for routine
//     sensor readings, keyed by single-letter fields to keep frames
//     small over slow radio links.
//
// Both shapes decode to the same in-memory Message. Parsing is lenient:
// lines that are empty, too short, or recognizable modem noise (AT
// command responses, manufacturer banners) are rejected with ErrNotSSP,
// a soft failure callers are expected to ignore rather than log.
package wire
