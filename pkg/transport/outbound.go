package transport

import (
	"context"
	"encoding/json"

	"github.com/homestead/orchestrator/pkg/bus"
	orchlog "github.com/homestead/orchestrator/pkg/log"
	"github.com/homestead/orchestrator/pkg/wire"
)

// runOutbound forwards every message observed on receiver to the
// device it targets, until receiver is closed or ctx is canceled.
func (m *Manager) runOutbound(ctx context.Context, receiver bus.Receiver) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-receiver:
			if !ok {
				return
			}
			m.routeOutbound(msg)
		}
	}
}

func (m *Manager) routeOutbound(msg bus.Message) {
	target := extractTargetDevice(msg.Payload)

	entry, ok := m.routes.Lookup(target)
	if !ok {
		logf("no route for device %q, dropping outbound message on %q", target, msg.Topic)
		return
	}

	ep, ok := m.endpointAt(entry.Address)
	if !ok {
		logf("endpoint %q not open, dropping outbound message for %q", entry.Address, target)
		return
	}

	var payload any
	_ = json.Unmarshal(msg.Payload, &payload)

	wireMsg := &wire.Message{
		Protocol:  wire.ProtocolVersion,
		Type:      wire.MessageCommand,
		Topic:     msg.Topic,
		Timestamp: msg.Timestamp,
		Source:    wire.Source{ID: m.identity, Transport: entry.Transport},
		Payload:   payload,
	}
	data, err := wire.Serialize(wireMsg)
	if err != nil {
		logf("serialize outbound message for %q: %v", target, err)
		return
	}
	if err := ep.write(data); err != nil {
		logf("write to %q: %v", entry.Address, err)
		return
	}
	m.logFrame(orchlog.DirectionOut, entry.Address, entry.Transport, target, data)
}

// extractTargetDevice pulls the destination device id out of a bus
// message payload: first device_id, then target, falling back to the
// broadcast sentinel when neither is present. This specification does
// not mandate fan-out to every endpoint for the broadcast case; the
// Manager logs and drops instead.
func extractTargetDevice(payload []byte) string {
	var v map[string]any
	if err := json.Unmarshal(payload, &v); err == nil {
		if id, ok := v["device_id"].(string); ok && id != "" {
			return id
		}
		if id, ok := v["target"].(string); ok && id != "" {
			return id
		}
	}
	return "broadcast"
}
