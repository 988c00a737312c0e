package log

import (
	"testing"
	"time"
)

func TestEventCBORRoundTrip(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 123456789, time.UTC)
	original := Event{
		Timestamp: ts,
		Direction: DirectionOut,
		Layer:     LayerWire,
		Category:  CategoryFrame,
		Endpoint:  "/dev/ttyUSB0",
		DeviceID:  "device-001",
	}

	data, err := EncodeEvent(original)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if !decoded.Timestamp.Equal(original.Timestamp) {
		t.Errorf("Timestamp: got %v, want %v", decoded.Timestamp, original.Timestamp)
	}
	if decoded.Direction != original.Direction {
		t.Errorf("Direction: got %v, want %v", decoded.Direction, original.Direction)
	}
	if decoded.Layer != original.Layer {
		t.Errorf("Layer: got %v, want %v", decoded.Layer, original.Layer)
	}
	if decoded.Category != original.Category {
		t.Errorf("Category: got %v, want %v", decoded.Category, original.Category)
	}
	if decoded.Endpoint != original.Endpoint {
		t.Errorf("Endpoint: got %q, want %q", decoded.Endpoint, original.Endpoint)
	}
	if decoded.DeviceID != original.DeviceID {
		t.Errorf("DeviceID: got %q, want %q", decoded.DeviceID, original.DeviceID)
	}
}

func TestFrameEventCBORRoundTrip(t *testing.T) {
	original := Event{
		Timestamp: time.Now(),
		Direction: DirectionIn,
		Layer:     LayerWire,
		Category:  CategoryFrame,
		Endpoint:  "/dev/ttyUSB0",
		Frame: &FrameEvent{
			Size:      256,
			Data:      []byte{0x01, 0x02, 0x03, 0x04, 0x05},
			Truncated: true,
		},
	}

	data, err := EncodeEvent(original)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if decoded.Frame == nil {
		t.Fatal("Frame is nil")
	}
	if decoded.Frame.Size != original.Frame.Size {
		t.Errorf("Frame.Size: got %d, want %d", decoded.Frame.Size, original.Frame.Size)
	}
	if string(decoded.Frame.Data) != string(original.Frame.Data) {
		t.Errorf("Frame.Data: got %v, want %v", decoded.Frame.Data, original.Frame.Data)
	}
	if decoded.Frame.Truncated != original.Frame.Truncated {
		t.Errorf("Frame.Truncated: got %v, want %v", decoded.Frame.Truncated, original.Frame.Truncated)
	}
}

func TestSchedulerEventEntryCBORRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		entry *SchedulerEventEntry
	}{
		{
			name:  "command_sent",
			entry: &SchedulerEventEntry{Kind: "command_sent", Fields: map[string]any{"priority": "high"}},
		},
		{
			name:  "batch_start",
			entry: &SchedulerEventEntry{Kind: "batch_start", Fields: map[string]any{"count": uint64(3)}},
		},
		{
			name:  "window_opened",
			entry: &SchedulerEventEntry{Kind: "window_opened"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := Event{
				Timestamp:      time.Now(),
				Layer:          LayerScheduler,
				Category:       CategorySchedulerEvent,
				DeviceID:       "dev-001",
				SchedulerEvent: tt.entry,
			}

			data, err := EncodeEvent(original)
			if err != nil {
				t.Fatalf("EncodeEvent failed: %v", err)
			}

			decoded, err := DecodeEvent(data)
			if err != nil {
				t.Fatalf("DecodeEvent failed: %v", err)
			}

			if decoded.SchedulerEvent == nil {
				t.Fatal("SchedulerEvent is nil")
			}
			if decoded.SchedulerEvent.Kind != tt.entry.Kind {
				t.Errorf("SchedulerEvent.Kind: got %q, want %q", decoded.SchedulerEvent.Kind, tt.entry.Kind)
			}
		})
	}
}

func TestErrorEventCBORRoundTrip(t *testing.T) {
	original := Event{
		Timestamp: time.Now(),
		Layer:     LayerWire,
		Category:  CategoryError,
		Endpoint:  "/dev/ttyUSB0",
		Error: &ErrorEventData{
			Layer:   LayerWire,
			Message: "failed to parse frame",
			Context: "handleLine",
		},
	}

	data, err := EncodeEvent(original)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if decoded.Error == nil {
		t.Fatal("Error is nil")
	}
	if decoded.Error.Layer != original.Error.Layer {
		t.Errorf("Error.Layer: got %v, want %v", decoded.Error.Layer, original.Error.Layer)
	}
	if decoded.Error.Message != original.Error.Message {
		t.Errorf("Error.Message: got %q, want %q", decoded.Error.Message, original.Error.Message)
	}
	if decoded.Error.Context != original.Error.Context {
		t.Errorf("Error.Context: got %q, want %q", decoded.Error.Context, original.Error.Context)
	}
}

func TestEventCBORBackwardCompat(t *testing.T) {
	// Encode a full event, then decode into a struct missing the newest
	// field (Error) -- simulating an older reader against a newer writer.
	original := Event{
		Timestamp: time.Now(),
		Direction: DirectionIn,
		Layer:     LayerWire,
		Category:  CategoryFrame,
		Endpoint:  "/dev/ttyUSB0",
		DeviceID:  "device-003",
		Frame:     &FrameEvent{Size: 10},
	}

	data, err := EncodeEvent(original)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	// The CBOR decoder is configured with ExtraDecErrorNone, so unknown
	// keys (key 9 = Error) are silently ignored.
	type OldEvent struct {
		Timestamp      time.Time            `cbor:"1,keyasint"`
		Direction      Direction             `cbor:"2,keyasint,omitempty"`
		Layer          Layer                 `cbor:"3,keyasint"`
		Category       Category              `cbor:"4,keyasint"`
		Endpoint       string                `cbor:"5,keyasint,omitempty"`
		DeviceID       string                `cbor:"6,keyasint,omitempty"`
		Frame          *FrameEvent           `cbor:"7,keyasint,omitempty"`
		SchedulerEvent *SchedulerEventEntry  `cbor:"8,keyasint,omitempty"`
		// No Error field -- simulates an older version
	}

	var old OldEvent
	if err := logDecMode.Unmarshal(data, &old); err != nil {
		t.Fatalf("decoding into OldEvent (without Error) should succeed, got: %v", err)
	}

	if old.DeviceID != "device-003" {
		t.Errorf("DeviceID: got %q, want %q", old.DeviceID, "device-003")
	}
	if old.Frame == nil || old.Frame.Size != 10 {
		t.Errorf("Frame: got %+v, want Size=10", old.Frame)
	}
}

func TestEventCBORUsesIntegerKeys(t *testing.T) {
	event := Event{
		Timestamp: time.Now(),
		Direction: DirectionIn,
		Layer:     LayerWire,
		Category:  CategoryFrame,
	}

	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	// Decode to generic map and verify keys are integers
	var rawMap map[uint64]any
	if err := logDecMode.Unmarshal(data, &rawMap); err != nil {
		t.Fatalf("failed to decode as map: %v", err)
	}

	// Should have integer keys 1, 3, 4 at minimum (Timestamp, Layer, Category)
	expectedKeys := []uint64{1, 3, 4}
	for _, key := range expectedKeys {
		if _, ok := rawMap[key]; !ok {
			t.Errorf("expected integer key %d not found in encoded data", key)
		}
	}

	// Verify no string keys
	var stringMap map[string]any
	if err := logDecMode.Unmarshal(data, &stringMap); err == nil && len(stringMap) > 0 {
		t.Error("encoded data contains string keys, expected integer keys only")
	}
}
