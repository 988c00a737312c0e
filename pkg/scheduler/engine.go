package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/homestead/orchestrator/pkg/bus"
	"github.com/homestead/orchestrator/pkg/events"
	"github.com/homestead/orchestrator/pkg/queue"
	"github.com/homestead/orchestrator/pkg/route"
	"github.com/homestead/orchestrator/pkg/schedule"
	"github.com/homestead/orchestrator/pkg/wire"
)

// pacing is the inter-command delay during a drain-and-send batch,
// to avoid overwhelming a device's receive buffer.
const pacing = 100 * time.Millisecond

// Sender delivers a command payload to a device. Implemented by the
// Transport Manager; the engine never opens a serial endpoint itself.
type Sender interface {
	Send(ctx context.Context, deviceID string, payload any) error
}

// QueueStatus answers query_queue_status: a snapshot of one device's
// pending work and duty-cycle position.
type QueueStatus struct {
	DeviceID           string
	QueuedCommands     int
	CurrentMode        schedule.Mode
	TimeUntilCmdWindow *time.Duration
	// Connected is the supplemented freshness predicate: true iff
	// telemetry has been received within the staleness window. It does
	// not affect dispatch.
	Connected bool
}

// Engine is the Scheduler Engine.
type Engine struct {
	tracker *schedule.Tracker
	queues  *queue.Registry
	events  *events.Publisher
	routes  *route.Table
	sender  Sender

	pacing time.Duration
	now    func() time.Time
}

// NewEngine wires an Engine over its dependencies. b is used only to
// construct the event publisher; routes may be nil, in which case
// every device is treated as dispatchable (useful in tests that don't
// exercise routing).
func NewEngine(b *bus.Bus, tracker *schedule.Tracker, queues *queue.Registry, routes *route.Table, sender Sender) *Engine {
	return &Engine{
		tracker: tracker,
		queues:  queues,
		events:  events.NewPublisher(b),
		routes:  routes,
		sender:  sender,
		pacing:  pacing,
		now:     time.Now,
	}
}

// Enqueue is the public API invoked by UI handlers and external
// subsystems. A Critical command bypasses the queue and is dispatched
// synchronously; a send failure is returned to the caller. Any other
// priority is inserted into the device's queue, and a command_queued
// event is emitted — enqueue itself never fails.
func (e *Engine) Enqueue(ctx context.Context, cmd queue.Command) error {
	action := extractAction(cmd.Payload)

	if cmd.Priority == queue.Critical {
		return e.sendCritical(ctx, cmd.DeviceID, cmd.Payload, action)
	}

	q := e.queues.For(cmd.DeviceID)
	q.Enqueue(cmd, e.now())
	e.events.CommandQueued(cmd.DeviceID, cmd.Priority.String(), action, q.Len())
	return nil
}

// QueryQueueStatus answers the scheduler's read-only status query.
// Returns false if no schedule has ever been recorded for deviceID.
func (e *Engine) QueryQueueStatus(deviceID string) (QueueStatus, bool) {
	sched, ok := e.tracker.Get(deviceID)
	if !ok {
		return QueueStatus{}, false
	}

	status := QueueStatus{
		DeviceID:       deviceID,
		QueuedCommands: e.queues.For(deviceID).Len(),
		CurrentMode:    sched.Mode,
		Connected:      e.tracker.IsConnected(deviceID),
	}
	if until, ok := e.tracker.TimeUntilWindow(deviceID); ok {
		status.TimeUntilCmdWindow = &until
	}
	return status, true
}

// HandleTelemetry is the telemetry-driven tick: invoked whenever the
// Transport Manager observes telemetry carrying schedule metadata for
// deviceID. It updates the tracker and reacts to the resulting window
// state.
func (e *Engine) HandleTelemetry(ctx context.Context, deviceID string, meta *wire.ScheduleMetadata) {
	if meta == nil {
		return
	}

	e.tracker.Update(deviceID, schedule.Mode(meta.Mode), meta.CmdIn, meta.CmdDur)

	sched, ok := e.tracker.Get(deviceID)
	if !ok {
		// Update rejected an invalid mode; nothing to react to.
		return
	}

	switch {
	case sched.Mode == schedule.ModeCmd:
		e.events.CmdWindowOpen(deviceID, uint64(sched.WindowDuration/time.Second))
		e.drainAndSend(ctx, deviceID)
	case e.tracker.IsImminent(deviceID):
		if until, ok := e.tracker.TimeUntilWindow(deviceID); ok {
			e.events.CmdWindowImminent(deviceID, uint64(until.Round(time.Second)/time.Second))
		}
	default:
		if until, ok := e.tracker.TimeUntilWindow(deviceID); ok {
			e.events.CmdWindowScheduled(deviceID, uint64(until.Round(time.Second)/time.Second))
		}
	}
}

// Run consumes every message observed by the bus's main receiver,
// reacting to whichever ones carry telemetry schedule metadata. It
// returns when ctx is canceled or telemetry is closed.
func (e *Engine) Run(ctx context.Context, telemetry bus.Receiver) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-telemetry:
			if !ok {
				return
			}
			e.handleBusMessage(ctx, msg)
		}
	}
}

func (e *Engine) handleBusMessage(ctx context.Context, msg bus.Message) {
	var payload wire.TelemetryPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.Metadata == nil {
		return
	}
	deviceID := msg.Source
	if deviceID == "" {
		deviceID = msg.Topic
	}
	e.HandleTelemetry(ctx, deviceID, payload.Metadata)
}

// drainAndSend implements §4.6's drain-and-send procedure. The queue
// is moved out atomically by DrainAll, so a concurrent Enqueue during
// the loop below starts a fresh queue rather than racing with this
// batch.
func (e *Engine) drainAndSend(ctx context.Context, deviceID string) {
	commands := e.queues.For(deviceID).DrainAll()
	originalCount := len(commands)
	e.events.BatchStart(deviceID, originalCount)

	now := e.now()
	kept := commands[:0]
	expired := 0
	for _, cmd := range commands {
		if cmd.Expired(now) {
			expired++
			continue
		}
		kept = append(kept, cmd)
	}
	if expired > 0 {
		e.events.CommandsExpired(deviceID, expired)
	}

	for _, cmd := range kept {
		if !e.sleepPacing(ctx) {
			return
		}

		action := extractAction(cmd.Payload)
		if err := e.dispatch(ctx, deviceID, cmd.Payload); err != nil {
			e.events.Error(deviceID, err.Error())
			continue
		}
		e.events.CommandSent(deviceID, action)
	}

	e.events.BatchComplete(deviceID, len(kept))
}

// sendCritical implements the Critical-path send: no pacing, no batch
// framing, errors surfaced to the caller.
func (e *Engine) sendCritical(ctx context.Context, deviceID string, payload any, action string) error {
	if err := e.dispatch(ctx, deviceID, payload); err != nil {
		return fmt.Errorf("scheduler: critical send to %s failed: %w", deviceID, err)
	}
	e.events.CommandSentCritical(deviceID, action)
	return nil
}

// dispatch gates on route dispatchability (unknown route or
// pending-trust) before handing off to the Sender.
func (e *Engine) dispatch(ctx context.Context, deviceID string, payload any) error {
	if e.routes != nil && !e.routes.IsDispatchable(deviceID) {
		return fmt.Errorf("route unknown or pending trust for device %s", deviceID)
	}
	return e.sender.Send(ctx, deviceID, payload)
}

// sleepPacing blocks for the pacing interval, returning false if ctx
// is canceled first — the caller should abandon the remaining batch.
func (e *Engine) sleepPacing(ctx context.Context) bool {
	t := time.NewTimer(e.pacing)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// extractAction pulls a human-readable action hint out of a command
// payload for event reporting. Returns "unknown" if the payload isn't
// shaped as expected.
func extractAction(payload any) string {
	m, ok := payload.(map[string]any)
	if !ok {
		return "unknown"
	}
	if a, ok := m["action"].(string); ok {
		return a
	}
	return "unknown"
}
