// Package queue implements the per-device command holding area: a
// priority-ordered list of pending commands awaiting that device's
// next command window.
//
// Commands are kept in a stable order: higher priority precedes lower,
// and within a priority class, earlier-enqueued commands precede
// later ones. Critical-priority commands never enter a queue — the
// Scheduler Engine dispatches them synchronously and they are never
// observable here.
//
// Each device's queue is bounded at a fixed capacity. An enqueue that
// would exceed capacity drops the oldest command in the lowest
// priority class currently present, preserving higher-priority and
// more time-sensitive intent.
package queue
