// Package actions wires the scenario engine's step actions against
// real orchestrator components — the message bus, routing table,
// schedule tracker, command queues, and Scheduler Engine — so a
// scenario exercises the production dispatch path rather than a mock.
package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/homestead/orchestrator/internal/harness/engine"
	"github.com/homestead/orchestrator/internal/harness/loader"
	"github.com/homestead/orchestrator/pkg/bus"
	"github.com/homestead/orchestrator/pkg/events"
	"github.com/homestead/orchestrator/pkg/queue"
	"github.com/homestead/orchestrator/pkg/route"
	"github.com/homestead/orchestrator/pkg/schedule"
	"github.com/homestead/orchestrator/pkg/scheduler"
	"github.com/homestead/orchestrator/pkg/wire"
)

// eventIdleWindow is how long collectEvents waits after the last
// observed scheduler_event before concluding a step produced no more.
// It must comfortably exceed the engine's inter-command pacing so a
// multi-command batch is captured in full.
const eventIdleWindow = 250 * time.Millisecond

// recordedSend is one call a fakeSender received, kept for scenarios
// that assert on dispatched payload shape directly.
type recordedSend struct {
	DeviceID string
	Payload  any
	At       time.Time
}

// fakeSender stands in for the Transport Manager: it records sends
// and never actually touches a serial endpoint.
type fakeSender struct {
	mu    sync.Mutex
	sends []recordedSend
	// fail, when set, names a device id whose sends should fail once.
	fail map[string]error
}

func newFakeSender() *fakeSender {
	return &fakeSender{fail: make(map[string]error)}
}

func (s *fakeSender) Send(ctx context.Context, deviceID string, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.fail[deviceID]; ok {
		delete(s.fail, deviceID)
		return err
	}
	s.sends = append(s.sends, recordedSend{DeviceID: deviceID, Payload: payload, At: time.Now()})
	return nil
}

func (s *fakeSender) Sent() []recordedSend {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]recordedSend, len(s.sends))
	copy(out, s.sends)
	return out
}

// Harness wires one fresh, isolated instance of every component the
// Scheduler Engine depends on, and registers the action handlers a
// scenario's steps invoke against them.
type Harness struct {
	Bus     *bus.Bus
	Main    bus.Receiver
	Tracker *schedule.Tracker
	Queues  *queue.Registry
	Routes  *route.Table
	Engine  *scheduler.Engine
	Sender  *fakeSender

	eventsCh bus.Receiver

	cancel context.CancelFunc
}

// New constructs a Harness with a fresh bus, tracker, queue registry,
// routing table, and Scheduler Engine, and starts the engine's bus
// consumption loop in the background.
func New(ctx context.Context) *Harness {
	b, main := bus.New()
	tracker := schedule.NewTracker()
	queues := queue.NewRegistry(0)
	routes := route.New(b)
	sender := newFakeSender()
	eng := scheduler.NewEngine(b, tracker, queues, routes, sender)

	runCtx, cancel := context.WithCancel(ctx)

	h := &Harness{
		Bus:      b,
		Main:     main,
		Tracker:  tracker,
		Queues:   queues,
		Routes:   routes,
		Engine:   eng,
		Sender:   sender,
		eventsCh: b.Subscribe(events.Topic),
		cancel:   cancel,
	}

	go eng.Run(runCtx, main)
	return h
}

// Close stops the engine's background loop.
func (h *Harness) Close() {
	h.cancel()
}

// Register binds every action this package implements onto e.
func (h *Harness) Register(e *engine.Engine) {
	e.RegisterHandler("observe_route", h.observeRoute)
	e.RegisterHandler("trust_device", h.trustDevice)
	e.RegisterHandler("publish_telemetry", h.publishTelemetry)
	e.RegisterHandler("publish_telemetry_line", h.publishTelemetryLine)
	e.RegisterHandler("enqueue_command", h.enqueueCommand)
	e.RegisterHandler("query_queue_status", h.queryQueueStatus)
	e.RegisterHandler("wait", h.wait)
	e.RegisterHandler("fail_next_send", h.failNextSend)
}

func stringParam(params map[string]interface{}, key string) string {
	v, _ := params[key].(string)
	return v
}

func intParam(params map[string]interface{}, key string, def int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return def
	}
}

// observeRoute records a device's transport and address, as the
// Transport Manager would on first hearing from it.
func (h *Harness) observeRoute(ctx context.Context, step *loader.Step, state *engine.ExecutionState) (map[string]interface{}, error) {
	deviceID := stringParam(step.Params, "device_id")
	transport := wire.Transport(stringParam(step.Params, "transport"))
	if transport == "" {
		transport = wire.TransportUSB
	}
	address := stringParam(step.Params, "address")

	h.Routes.Observe(deviceID, transport, address)
	entry, _ := h.Routes.Lookup(deviceID)
	return map[string]interface{}{
		"pending_trust": entry.PendingTrust,
	}, nil
}

// trustDevice clears a route's pending-trust flag.
func (h *Harness) trustDevice(ctx context.Context, step *loader.Step, state *engine.ExecutionState) (map[string]interface{}, error) {
	deviceID := stringParam(step.Params, "device_id")
	if err := h.Routes.Trust(deviceID); err != nil {
		return map[string]interface{}{"error": err.Error()}, nil
	}
	return map[string]interface{}{"error": nil}, nil
}

// publishTelemetry synthesizes a TelemetryPayload and publishes it on
// the bus exactly as the Transport Manager's reader task would,
// keyed by device_id, then waits for the Scheduler Engine to react
// and collects the scheduler_event sequence it produced.
func (h *Harness) publishTelemetry(ctx context.Context, step *loader.Step, state *engine.ExecutionState) (map[string]interface{}, error) {
	deviceID := stringParam(step.Params, "device_id")
	mode := stringParam(step.Params, "mode")
	cmdIn := intParam(step.Params, "cmd_in", 0)
	cmdDur := intParam(step.Params, "cmd_dur", 0)

	payload := wire.TelemetryPayload{
		Metadata: &wire.ScheduleMetadata{
			Mode:   mode,
			CmdIn:  uint64(cmdIn),
			CmdDur: uint64(cmdDur),
		},
		Data: map[string]float64{},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal telemetry payload: %w", err)
	}

	h.Bus.Publish(bus.NewMessage(deviceID, data, deviceID))

	return h.collectEventOutputs(step), nil
}

// publishTelemetryLine parses a raw compact-telemetry wire line exactly
// as a transport reader task would and republishes it onto the bus,
// exercising the wire codec's parse path alongside the scheduler.
func (h *Harness) publishTelemetryLine(ctx context.Context, step *loader.Step, state *engine.ExecutionState) (map[string]interface{}, error) {
	line := stringParam(step.Params, "line")
	transport := wire.Transport(stringParam(step.Params, "transport"))
	if transport == "" {
		transport = wire.TransportUSB
	}
	endpointAddress := stringParam(step.Params, "endpoint_address")

	msg, err := wire.Parse(line, transport)
	if err != nil {
		return map[string]interface{}{"error": err.Error()}, nil
	}

	// The reader task observes the route using its own configured
	// endpoint address, not a field off the parsed frame: compact
	// telemetry carries no address of its own (see wire.Parse).
	deviceID := msg.Source.ID
	h.Routes.Observe(deviceID, msg.Source.Transport, endpointAddress)

	payload, ok := msg.Payload.(*wire.TelemetryPayload)
	if !ok {
		return nil, fmt.Errorf("parsed line is not telemetry")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal telemetry payload: %w", err)
	}

	h.Bus.Publish(bus.NewMessage(deviceID, data, deviceID))

	outputs := h.collectEventOutputs(step)
	outputs["device_id"] = deviceID
	outputs["topic"] = msg.Topic
	if payload.Data != nil {
		outputs["data_a"] = payload.Data["a"]
	}
	entry, _ := h.Routes.Lookup(deviceID)
	outputs["route_address"] = entry.Address
	return outputs, nil
}

// enqueueCommand calls the Scheduler Engine's public Enqueue API —
// Critical commands dispatch synchronously, everything else enters
// the device's queue — then collects whatever scheduler_event
// sequence resulted.
func (h *Harness) enqueueCommand(ctx context.Context, step *loader.Step, state *engine.ExecutionState) (map[string]interface{}, error) {
	deviceID := stringParam(step.Params, "device_id")
	action := stringParam(step.Params, "action")
	priority := parsePriority(stringParam(step.Params, "priority"))

	cmd := queue.Command{
		DeviceID: deviceID,
		Payload:  map[string]any{"action": action},
		Priority: priority,
	}
	if maxAge := stringParam(step.Params, "max_age"); maxAge != "" {
		d, err := time.ParseDuration(maxAge)
		if err != nil {
			return nil, fmt.Errorf("invalid max_age %q: %w", maxAge, err)
		}
		cmd.MaxAge = d
	}

	sendErr := h.Engine.Enqueue(ctx, cmd)

	outputs := h.collectEventOutputs(step)
	if sendErr != nil {
		outputs["error"] = sendErr.Error()
	} else {
		outputs["error"] = nil
	}
	return outputs, nil
}

// queryQueueStatus answers the read-only query_queue_status action.
func (h *Harness) queryQueueStatus(ctx context.Context, step *loader.Step, state *engine.ExecutionState) (map[string]interface{}, error) {
	deviceID := stringParam(step.Params, "device_id")
	status, ok := h.Engine.QueryQueueStatus(deviceID)
	if !ok {
		return map[string]interface{}{"found": false}, nil
	}

	outputs := map[string]interface{}{
		"found":           true,
		"queued_commands": status.QueuedCommands,
		"current_mode":    string(status.CurrentMode),
		"connected":       status.Connected,
	}
	if status.TimeUntilCmdWindow != nil {
		outputs["time_until_cmd_window_seconds"] = int(*status.TimeUntilCmdWindow / time.Second)
	}
	return outputs, nil
}

// wait blocks for the given duration, letting real time pass between
// steps (e.g. "two seconds later" in a duty-cycle scenario).
func (h *Harness) wait(ctx context.Context, step *loader.Step, state *engine.ExecutionState) (map[string]interface{}, error) {
	d, err := time.ParseDuration(stringParam(step.Params, "duration"))
	if err != nil {
		return nil, fmt.Errorf("invalid wait duration: %w", err)
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return nil, nil
}

// failNextSend arranges for the fake sender's next Send to deviceID
// to fail, for scenarios that assert error handling on dispatch.
func (h *Harness) failNextSend(ctx context.Context, step *loader.Step, state *engine.ExecutionState) (map[string]interface{}, error) {
	deviceID := stringParam(step.Params, "device_id")
	reason := stringParam(step.Params, "reason")
	if reason == "" {
		reason = "simulated send failure"
	}
	h.Sender.mu.Lock()
	h.Sender.fail[deviceID] = fmt.Errorf("%s", reason)
	h.Sender.mu.Unlock()
	return nil, nil
}

// collectEventOutputs drains the scheduler_event subscription for a
// quiet period, returning the event kinds observed (in order) plus
// their raw decoded payloads, for checkers like event_order and
// per-field inspection of the final event.
func (h *Harness) collectEventOutputs(step *loader.Step) map[string]interface{} {
	maxWait := eventIdleWindow * 8
	if step.Timeout != "" {
		if d, err := time.ParseDuration(step.Timeout); err == nil {
			maxWait = d
		}
	}

	raw := h.collectEvents(eventIdleWindow, maxWait)
	kinds := make([]string, 0, len(raw))
	for _, ev := range raw {
		if kind, ok := ev["event"].(string); ok {
			kinds = append(kinds, kind)
		}
	}

	outputs := map[string]interface{}{
		"events":     kinds,
		"events_raw": raw,
	}
	if len(raw) > 0 {
		outputs["last_event"] = raw[len(raw)-1]
	}
	return outputs
}

func (h *Harness) collectEvents(idle, maxWait time.Duration) []map[string]interface{} {
	var out []map[string]interface{}
	deadline := time.Now().Add(maxWait)
	idleTimer := time.NewTimer(idle)
	defer idleTimer.Stop()

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return out
		}
		select {
		case msg := <-h.eventsCh:
			var ev map[string]interface{}
			if err := json.Unmarshal(msg.Payload, &ev); err == nil {
				out = append(out, ev)
			}
			if !idleTimer.Stop() {
				<-idleTimer.C
			}
			idleTimer.Reset(idle)
		case <-idleTimer.C:
			return out
		}
	}
}

// parsePriority maps a YAML priority name to queue.Priority, defaulting
// to Normal for an unrecognized or empty value.
func parsePriority(name string) queue.Priority {
	switch name {
	case "LOW", "low":
		return queue.Low
	case "HIGH", "high":
		return queue.High
	case "CRITICAL", "critical":
		return queue.Critical
	default:
		return queue.Normal
	}
}
