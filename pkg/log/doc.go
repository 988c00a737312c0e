// Package log provides structured diagnostic logging for the orchestrator.
//
// This package defines the Logger interface and Event types for capturing
// two kinds of occurrences for offline inspection: raw wire frames observed
// on a serial endpoint, and scheduler lifecycle events published on the
// "scheduler_event" bus topic. It is separate from operational logging
// (stdlib log / slog) - this capture mechanism exists to produce a
// complete, machine-readable trace that a .sselog file can later replay.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	tap := log.NewSlogAdapter(slog.Default())
//
//	// For production: write to a binary file
//	tap, _ := log.NewFileLogger("/var/log/orchestrator/session.sselog")
//
//	// Both: use MultiLogger
//	tap := log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    log.NewFileLogger("/var/log/orchestrator/session.sselog"),
//	)
//
// # Event Types
//
// Events are captured at two layers:
//   - Wire: raw frames read from or written to a serial endpoint (FrameEvent)
//   - Scheduler: dispatch decisions and lifecycle transitions (SchedulerEventEntry)
//
// Errors at any layer use a dedicated ErrorEventData payload.
//
// # File Format
//
// Log files use CBOR encoding with the .sselog extension. The
// orchestrator-log CLI tool provides viewing, filtering, and export
// capabilities.
package log
