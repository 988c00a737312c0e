package events

import (
	"encoding/json"

	"github.com/homestead/orchestrator/pkg/bus"
)

// Topic is the bus topic every scheduler lifecycle event is published
// on.
const Topic = "scheduler_event"

// source names the publisher in the underlying bus.Message.
const source = "scheduler"

// Kind enumerates the scheduler event kinds named in §6.
type Kind string

const (
	KindCommandQueued       Kind = "command_queued"
	KindCommandSent         Kind = "command_sent"
	KindCommandSentCritical Kind = "command_sent_critical"
	KindCommandsExpired     Kind = "commands_expired"
	KindCmdWindowOpen       Kind = "cmd_window_open"
	KindCmdWindowImminent   Kind = "cmd_window_imminent"
	KindCmdWindowScheduled  Kind = "cmd_window_scheduled"
	KindBatchStart          Kind = "batch_start"
	KindBatchComplete       Kind = "batch_complete"
	KindError               Kind = "error"
)

// Publisher emits scheduler lifecycle events onto a bus.Bus.
type Publisher struct {
	bus *bus.Bus
}

// NewPublisher wraps b. b may be nil, in which case every emit is a
// silent no-op (matching §4.7: "if the bus is unavailable, emission is
// dropped silently").
func NewPublisher(b *bus.Bus) *Publisher {
	return &Publisher{bus: b}
}

// emit marshals event as {event, device_id, ...fields} and publishes
// it on Topic. Marshal failures are dropped silently, same as a
// missing bus: event emission must never surface an error to the
// scheduling decision that triggered it.
func (p *Publisher) emit(kind Kind, deviceID string, fields map[string]any) {
	if p.bus == nil {
		return
	}

	payload := map[string]any{
		"event":     string(kind),
		"device_id": deviceID,
	}
	for k, v := range fields {
		payload[k] = v
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	p.bus.Publish(bus.NewMessage(Topic, data, source))
}

// CommandQueued reports a non-critical command accepted into a
// device's queue.
func (p *Publisher) CommandQueued(deviceID, priority, action string, queueSize int) {
	p.emit(KindCommandQueued, deviceID, map[string]any{
		"priority":   priority,
		"action":     action,
		"queue_size": queueSize,
	})
}

// CommandSent reports a successful non-critical send.
func (p *Publisher) CommandSent(deviceID, action string) {
	p.emit(KindCommandSent, deviceID, map[string]any{"action": action})
}

// CommandSentCritical reports a successful Critical-priority send.
func (p *Publisher) CommandSentCritical(deviceID, action string) {
	p.emit(KindCommandSentCritical, deviceID, map[string]any{
		"priority": "CRITICAL",
		"action":   action,
	})
}

// CommandsExpired reports count commands discarded at drain time.
func (p *Publisher) CommandsExpired(deviceID string, count int) {
	p.emit(KindCommandsExpired, deviceID, map[string]any{"count": count})
}

// CmdWindowOpen reports a device's command window opening, with its
// advertised duration in seconds.
func (p *Publisher) CmdWindowOpen(deviceID string, durationSeconds uint64) {
	p.emit(KindCmdWindowOpen, deviceID, map[string]any{"duration": durationSeconds})
}

// CmdWindowImminent reports a command window opening within the next
// few seconds.
func (p *Publisher) CmdWindowImminent(deviceID string, seconds uint64) {
	p.emit(KindCmdWindowImminent, deviceID, map[string]any{"seconds": seconds})
}

// CmdWindowScheduled reports a command window known to open further
// out.
func (p *Publisher) CmdWindowScheduled(deviceID string, seconds uint64) {
	p.emit(KindCmdWindowScheduled, deviceID, map[string]any{"seconds": seconds})
}

// BatchStart reports the start of a drain-and-send batch of count
// commands.
func (p *Publisher) BatchStart(deviceID string, count int) {
	p.emit(KindBatchStart, deviceID, map[string]any{"count": count})
}

// BatchComplete reports the end of a drain-and-send batch, with the
// count of commands actually attempted (expired commands excluded).
func (p *Publisher) BatchComplete(deviceID string, count int) {
	p.emit(KindBatchComplete, deviceID, map[string]any{"count": count})
}

// Error reports a device-local failure (send failure, unknown route)
// that does not abort scheduling.
func (p *Publisher) Error(deviceID, errText string) {
	p.emit(KindError, deviceID, map[string]any{"error": errText})
}
