// Package events provides the Scheduler Engine's uniform event
// emission onto the bus. Every scheduler lifecycle transition —
// a command queued, sent, expired, a window opening, a batch
// finishing — is published as one JSON object on the
// "scheduler_event" topic.
//
// Emission never blocks a scheduling decision: if the bus is
// unavailable the event is dropped silently, exactly as spec'd.
package events
