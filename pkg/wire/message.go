package wire

import "time"

// ProtocolVersion is the only SSP version this codec understands.
const ProtocolVersion = "ssp/1.0"

// MessageType classifies the purpose of an envelope message.
type MessageType string

const (
	MessageTelemetry MessageType = "telemetry"
	MessageCommand   MessageType = "command"
	MessageResponse  MessageType = "response"
	MessageEvent     MessageType = "event"
)

// IsValid reports whether m is one of the known message types.
func (m MessageType) IsValid() bool {
	switch m {
	case MessageTelemetry, MessageCommand, MessageResponse, MessageEvent:
		return true
	default:
		return false
	}
}

// Transport names the physical link a device is reachable over.
type Transport string

const (
	TransportUSB      Transport = "usb"
	TransportBLE      Transport = "ble"
	TransportRadio    Transport = "radio"
	TransportLoRa     Transport = "lora"
	TransportZigbee   Transport = "zigbee"
	TransportInternal Transport = "internal"
)

// requiresTrust reports whether a route observed over this transport
// should start flagged pending-trust (see pkg/route). USB and internal
// links are physically local; radio-class links are not.
func (t Transport) requiresTrust() bool {
	switch t {
	case TransportUSB, TransportInternal:
		return false
	default:
		return true
	}
}

// RequiresTrust reports whether a route observed over this transport
// should start flagged pending-trust.
func (t Transport) RequiresTrust() bool { return t.requiresTrust() }

// Source identifies the originator of a wire message.
type Source struct {
	ID        string    `json:"id"`
	Transport Transport `json:"transport,omitempty"`
	Address   string    `json:"address,omitempty"`
}

// Message is the unified in-memory representation of an SSP frame,
// regardless of which wire shape it arrived in.
type Message struct {
	Protocol string `json:"protocol"`
	Type     MessageType
	Topic    string
	// Timestamp is seconds since epoch, as carried on the wire.
	Timestamp int64
	Source    Source
	// Payload is the decoded payload value: for envelope messages this
	// is whatever JSON value occupied the "payload" field; for compact
	// telemetry this is a *TelemetryPayload.
	Payload any

	QoS       *uint8
	Retain    *bool
	ReplyTo   string
	InReplyTo string
}

// TelemetryPayload is the payload shape synthesized when a compact
// telemetry frame is parsed, and the shape expected when an envelope
// message's Type is MessageTelemetry.
type TelemetryPayload struct {
	// Metadata carries the device's duty-cycle schedule, if advertised.
	Metadata *ScheduleMetadata `json:"m,omitempty"`
	// Data carries the sensor reading itself, keys are device-defined.
	Data map[string]float64 `json:"d"`
}

// ScheduleMetadata is the `m` object embedded in telemetry, announcing
// the device's current duty-cycle phase and the timing of its next
// command window.
type ScheduleMetadata struct {
	Mode    string `json:"mode"`
	CmdIn   uint64 `json:"cmd_in"`
	CmdDur  uint64 `json:"cmd_dur"`
}

// ReceivedAt returns Timestamp as a time.Time (UTC, second precision).
func (m *Message) ReceivedAt() time.Time {
	return time.Unix(m.Timestamp, 0).UTC()
}
