// Package scheduler implements the Scheduler Engine: the heart of the
// orchestrator, converting telemetry observations into command
// dispatch decisions.
//
// On every telemetry message carrying schedule metadata, the engine
// updates the Device Schedule Tracker and reacts to the resulting
// window state — in-window triggers an immediate drain-and-send of
// that device's queue, imminent and scheduled states only emit an
// informational event. Enqueue requests from external collaborators
// either join a device's queue (most priorities) or bypass it
// entirely (Critical), never blocking the caller.
//
// The engine holds no direct reference to the Transport Manager; it
// depends only on the small Sender interface, breaking the cyclic
// dependency between the component that decides to send and the
// component that owns the physical link.
package scheduler
