package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"
)

func TestSlogAdapterLogsStateChange(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	adapter := NewSlogAdapter(slog.New(handler))

	adapter.Log(Event{
		Timestamp:    time.Now(),
		ConnectionID: "conn-123",
		DeviceID:     "pump-1",
		Layer:        LayerConnection,
		Category:     CategoryState,
		StateChange: &StateChangeEvent{
			Entity:   StateEntityConnection,
			OldState: "ACTIVE",
			NewState: "CLOSING",
			Reason:   ReasonString(errors.New("link lost")),
		},
	})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}

	want := map[string]any{
		"conn_id":   "conn-123",
		"device_id": "pump-1",
		"layer":     "CONNECTION",
		"entity":    "CONNECTION",
		"new_state": "CLOSING",
		"reason":    "link lost",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s: got %v, want %v", k, entry[k], v)
		}
	}
}

func TestSlogAdapterLogsFrame(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	adapter := NewSlogAdapter(slog.New(handler))

	adapter.Log(Event{
		ConnectionID: "conn-9",
		Direction:    DirectionIn,
		Layer:        LayerPort,
		Category:     CategoryData,
		Frame:        NewFrameEvent([]byte("hello")),
	})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	if entry["frame_size"] != float64(5) {
		t.Errorf("frame_size: got %v, want 5", entry["frame_size"])
	}
	if entry["direction"] != "IN" {
		t.Errorf("direction: got %v, want IN", entry["direction"])
	}
}

func TestMultiLoggerFansOut(t *testing.T) {
	var a, b recorder
	m := NewMultiLogger(&a, nil, &b)
	m.Log(Event{ConnectionID: "x"})

	if len(a.events) != 1 || len(b.events) != 1 {
		t.Errorf("got %d/%d events, want 1/1", len(a.events), len(b.events))
	}
}

func TestOrNoop(t *testing.T) {
	if _, ok := OrNoop(nil).(NoopLogger); !ok {
		t.Error("OrNoop(nil) should return NoopLogger")
	}
	var r recorder
	if OrNoop(&r) != Logger(&r) {
		t.Error("OrNoop should pass through non-nil loggers")
	}
}

type recorder struct{ events []Event }

func (r *recorder) Log(e Event) { r.events = append(r.events, e) }
