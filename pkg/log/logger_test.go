package log

import (
	"testing"
	"time"
)

func TestNoopLoggerDoesNotPanic(t *testing.T) {
	logger := NoopLogger{}

	event := Event{
		Timestamp: time.Now(),
		Direction: DirectionIn,
		Layer:     LayerWire,
		Category:  CategoryFrame,
	}

	// Test with nil payloads
	logger.Log(event)

	// Test with frame payload
	event.Frame = &FrameEvent{Size: 100, Data: []byte{1, 2, 3}}
	logger.Log(event)

	// Test with scheduler event payload
	event.Frame = nil
	event.SchedulerEvent = &SchedulerEventEntry{Kind: "command_sent"}
	logger.Log(event)

	// Test with error payload
	event.SchedulerEvent = nil
	event.Error = &ErrorEventData{Message: "test error"}
	logger.Log(event)
}

func TestLoggerInterfaceSatisfaction(t *testing.T) {
	// Compile-time check that NoopLogger satisfies Logger interface
	var _ Logger = NoopLogger{}
	var _ Logger = &NoopLogger{}
}

func TestNoopLoggerIsZeroValue(t *testing.T) {
	// NoopLogger should be usable as zero value
	var logger NoopLogger
	logger.Log(Event{})
}
