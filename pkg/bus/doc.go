// Package bus implements the in-process, topic-addressed publish/
// subscribe fabric that carries telemetry, commands, and scheduler
// events between the Transport Manager, the Scheduler Engine, and any
// external collaborator (console, UI) that only ever touches the bus.
//
// A single Bus has one main receiver, created at construction, that
// observes every published message regardless of topic, plus any
// number of topic-scoped subscribers. Delivery to subscribers is
// best-effort: a subscriber that isn't draining its channel fast
// enough has messages dropped for it rather than stalling the
// publisher.
package bus
