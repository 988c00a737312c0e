// Package persistence provides a one-way diagnostic snapshot of the
// orchestrator's in-memory runtime state.
//
// CaptureRuntimeSnapshot assembles a RuntimeSnapshot from the live
// routing table, schedule tracker, and queue registry; SnapshotStore
// writes and reads that snapshot as JSON for operator support bundles
// and offline inspection. Nothing in this repository reloads a
// RuntimeSnapshot back into a running Scheduler Engine — durable
// persistence of queued commands across restarts is an explicit
// non-goal, and this package does not implement it.
package persistence
