package wire

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEnvelopeRoundTrip(t *testing.T) {
	qos := uint8(1)
	retain := true
	tests := []struct {
		name string
		msg  Message
	}{
		{
			name: "command with qos and correlation",
			msg: Message{
				Protocol:  ProtocolVersion,
				Type:      MessageCommand,
				Topic:     "v01",
				Timestamp: 100,
				Source:    Source{ID: "orchestrator", Transport: TransportInternal},
				Payload:   map[string]any{"action": "open"},
				QoS:       &qos,
				Retain:    &retain,
				ReplyTo:   "req-1",
			},
		},
		{
			name: "event with no optional fields",
			msg: Message{
				Protocol:  ProtocolVersion,
				Type:      MessageEvent,
				Topic:     "scheduler_event",
				Timestamp: 42,
				Source:    Source{ID: "scheduler"},
				Payload:   map[string]any{"event": "cmd_window_open"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Serialize(&tt.msg)
			require.NoError(t, err)
			require.True(t, len(data) > 0 && data[len(data)-1] == '\n')

			got, err := Parse(string(data), TransportUSB)
			require.NoError(t, err)
			require.Equal(t, tt.msg.Protocol, got.Protocol)
			require.Equal(t, tt.msg.Type, got.Type)
			require.Equal(t, tt.msg.Topic, got.Topic)
			require.Equal(t, tt.msg.Timestamp, got.Timestamp)
			require.Equal(t, tt.msg.Source.ID, got.Source.ID)
			require.Equal(t, tt.msg.ReplyTo, got.ReplyTo)
		})
	}
}

func TestParseCompactTelemetry(t *testing.T) {
	line := `{"p":"ssp/1.0","t":"tel","i":"v01","s":1,"d":{"a":1,"b":95,"c":123}}`

	msg, err := Parse(line, TransportRadio)
	require.NoError(t, err)
	require.Equal(t, MessageTelemetry, msg.Type)
	require.Equal(t, "v01", msg.Topic)
	require.Equal(t, "v01", msg.Source.ID)
	require.Equal(t, TransportRadio, msg.Source.Transport)

	payload, ok := msg.Payload.(*TelemetryPayload)
	require.True(t, ok)
	require.Nil(t, payload.Metadata)
	require.Equal(t, float64(1), payload.Data["a"])
}

func TestParseCompactTelemetryWithMetadata(t *testing.T) {
	line := `{"p":"ssp/1.0","t":"tel","i":"v01","s":1,"m":{"mode":"data","cmd_in":2,"cmd_dur":10},"d":{"a":0,"b":0,"c":0}}`

	msg, err := Parse(line, TransportUSB)
	require.NoError(t, err)
	payload, ok := msg.Payload.(*TelemetryPayload)
	require.True(t, ok)
	require.NotNil(t, payload.Metadata)
	require.Equal(t, "data", payload.Metadata.Mode)
	require.Equal(t, uint64(2), payload.Metadata.CmdIn)
	require.Equal(t, uint64(10), payload.Metadata.CmdDur)
}

func TestParseRejectsNoise(t *testing.T) {
	cases := []string{
		"",
		"short",
		"AT+RESET\r",
		"NO CARRIER",
	}
	for _, line := range cases {
		_, err := Parse(line, TransportUSB)
		require.ErrorIs(t, err, ErrNotSSP)
	}
}

func TestParseTrimsTrailingNoise(t *testing.T) {
	line := `{"p":"ssp/1.0","t":"tel","i":"v01","s":1,"d":{"a":1,"b":2,"c":3}}` + "\x00\x00"

	msg, err := Parse(line, TransportBLE)
	require.NoError(t, err)
	require.Equal(t, "v01", msg.Topic)
}

func TestParseMalformedFrame(t *testing.T) {
	line := `{"protocol":"ssp/1.0","type":"bogus-type","topic":"v01","source":{"id":"v01"}}`

	_, err := Parse(line, TransportUSB)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMalformedFrame))
}

func TestSerializeRejectsUnknownType(t *testing.T) {
	msg := &Message{Type: "bogus", Topic: "v01"}
	_, err := Serialize(msg)
	require.ErrorIs(t, err, ErrMalformedFrame)
}
