package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the Parse operation.
var (
	// ErrNotSSP is a soft failure: the line does not look like an SSP
	// frame at all (empty, too short, or recognizable modem noise).
	// Callers are expected to ignore it rather than log it.
	ErrNotSSP = errors.New("wire: not an ssp frame")

	// ErrMalformedFrame is returned when a line looked like SSP but
	// failed to decode under either known shape.
	ErrMalformedFrame = errors.New("wire: malformed frame")
)

// minFrameLength is the shortest line worth attempting to decode.
// Anything shorter cannot hold a protocol tag, a topic, and a payload.
const minFrameLength = 16

// modemNoisePrefixes are lines emitted by the BLE UART bridge hardware
// itself rather than by device firmware: AT-command echoes and modem
// banners seen on cold boot or link renegotiation.
var modemNoisePrefixes = []string{
	"AT", "OK", "ERROR", "RING", "NO CARRIER", "CONNECT", "+CME",
}

// trailingAllowed reports whether b may end a trimmed frame.
func trailingAllowed(b byte) bool {
	switch {
	case b >= '0' && b <= '9', b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z':
		return true
	case b == '{' || b == '}' || b == '"':
		return true
	default:
		return false
	}
}

// trimFrameNoise strips trailing bytes that are neither ASCII
// alphanumeric nor one of {, }, " — stray framing noise some BLE UART
// bridges append after the payload.
func trimFrameNoise(line string) string {
	end := len(line)
	for end > 0 && !trailingAllowed(line[end-1]) {
		end--
	}
	return line[:end]
}

// envelopeWire is the JSON shape of an SSP envelope frame.
type envelopeWire struct {
	Protocol  string      `json:"protocol"`
	Type      MessageType `json:"type"`
	Topic     string      `json:"topic"`
	Timestamp int64       `json:"timestamp"`
	Source    sourceWire  `json:"source"`
	Payload   any         `json:"payload"`
	QoS       *uint8      `json:"qos,omitempty"`
	Retain    *bool       `json:"retain,omitempty"`
	ReplyTo   string      `json:"reply_to,omitempty"`
	InReplyTo string      `json:"in_reply_to,omitempty"`
}

type sourceWire struct {
	ID        string    `json:"id"`
	Transport Transport `json:"transport,omitempty"`
	Address   string    `json:"address,omitempty"`
}

// compactWire is the JSON shape of an SSP compact telemetry frame.
type compactWire struct {
	Protocol string             `json:"p"`
	Type     string             `json:"t"`
	ID       string             `json:"i"`
	Seconds  int64              `json:"s"`
	Metadata *ScheduleMetadata  `json:"m,omitempty"`
	Data     map[string]float64 `json:"d"`
}

// Parse decodes one SSP line into a unified Message. observedTransport
// names the transport the line was read from; it fills source.transport
// when the compact shape — which carries no transport field of its own
// — is synthesized into an envelope.
func Parse(line string, observedTransport Transport) (*Message, error) {
	line = strings.TrimRight(line, "\r\n")
	if len(line) < minFrameLength {
		return nil, ErrNotSSP
	}
	for _, prefix := range modemNoisePrefixes {
		if strings.HasPrefix(line, prefix) {
			return nil, ErrNotSSP
		}
	}

	line = trimFrameNoise(line)
	if len(line) < minFrameLength {
		return nil, ErrNotSSP
	}

	var env envelopeWire
	if err := json.Unmarshal([]byte(line), &env); err == nil &&
		env.Protocol == ProtocolVersion && env.Type.IsValid() && env.Topic != "" {
		return &Message{
			Protocol:  env.Protocol,
			Type:      env.Type,
			Topic:     env.Topic,
			Timestamp: env.Timestamp,
			Source: Source{
				ID:        env.Source.ID,
				Transport: env.Source.Transport,
				Address:   env.Source.Address,
			},
			Payload:   env.Payload,
			QoS:       env.QoS,
			Retain:    env.Retain,
			ReplyTo:   env.ReplyTo,
			InReplyTo: env.InReplyTo,
		}, nil
	}

	var compact compactWire
	if err := json.Unmarshal([]byte(line), &compact); err == nil &&
		compact.Protocol == ProtocolVersion && compact.Type == "tel" && compact.ID != "" {
		return &Message{
			Protocol:  compact.Protocol,
			Type:      MessageTelemetry,
			Topic:     compact.ID,
			Timestamp: compact.Seconds,
			Source: Source{
				ID:        compact.ID,
				Transport: observedTransport,
			},
			Payload: &TelemetryPayload{
				Metadata: compact.Metadata,
				Data:     compact.Data,
			},
		}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrMalformedFrame, firstFailingField(line))
}

// firstFailingField gives a best-effort, human-readable reason a line
// matched neither known shape, for inclusion in the MalformedFrame
// error. It is not an exhaustive diagnosis.
func firstFailingField(line string) string {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(line), &probe); err != nil {
		return "invalid json: " + err.Error()
	}
	if _, ok := probe["protocol"]; ok {
		return "protocol present but type/topic missing or invalid"
	}
	if _, ok := probe["p"]; ok {
		return "compact frame missing t/i fields"
	}
	return "no recognized protocol tag"
}

// Serialize always emits the envelope shape, terminated with a
// trailing newline. Optional fields are omitted when absent.
func Serialize(m *Message) ([]byte, error) {
	if !m.Type.IsValid() {
		return nil, fmt.Errorf("%w: unknown message type %q", ErrMalformedFrame, m.Type)
	}
	env := envelopeWire{
		Protocol:  ProtocolVersion,
		Type:      m.Type,
		Topic:     m.Topic,
		Timestamp: m.Timestamp,
		Source: sourceWire{
			ID:        m.Source.ID,
			Transport: m.Source.Transport,
			Address:   m.Source.Address,
		},
		Payload:   m.Payload,
		QoS:       m.QoS,
		Retain:    m.Retain,
		ReplyTo:   m.ReplyTo,
		InReplyTo: m.InReplyTo,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("wire: serialize: %w", err)
	}
	var buf bytes.Buffer
	buf.Write(data)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
