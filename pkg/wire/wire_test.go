package wire

import (
	"errors"
	"testing"
	"time"
)

func TestProfileRoundTrip(t *testing.T) {
	type sample struct {
		Name string `cbor:"name"`
		Type string `cbor:"type"`
	}

	p, err := ToProfile(sample{Name: "infusion-pump", Type: "Device"})
	if err != nil {
		t.Fatalf("ToProfile failed: %v", err)
	}

	name, err := p.String(KeyName)
	if err != nil || name != "infusion-pump" {
		t.Errorf("name: got %q, %v", name, err)
	}

	var back sample
	if err := FromProfile(p, &back); err != nil {
		t.Fatalf("FromProfile failed: %v", err)
	}
	if back.Name != "infusion-pump" || back.Type != "Device" {
		t.Errorf("round trip mismatch: %+v", back)
	}
}

func TestProfileStringErrors(t *testing.T) {
	p := Profile{"n": 3}

	if _, err := p.String("missing"); !errors.Is(err, ErrMissingKey) {
		t.Errorf("expected ErrMissingKey, got %v", err)
	}
	if _, err := p.String("n"); !errors.Is(err, ErrKeyType) {
		t.Errorf("expected ErrKeyType, got %v", err)
	}
}

func TestMessageRoundTrip(t *testing.T) {
	value, err := EncodeValue(map[string]any{"rate": 12.5})
	if err != nil {
		t.Fatalf("EncodeValue failed: %v", err)
	}
	ts := time.Date(2026, 3, 1, 12, 0, 0, 987654321, time.UTC)

	data, err := EncodeMessage(&Message{Kind: KindUpdate, Resource: "pump/rate", Time: ts, Value: value})
	if err != nil {
		t.Fatalf("EncodeMessage failed: %v", err)
	}

	msg, err := DecodeMessage(data)
	if err != nil {
		t.Fatalf("DecodeMessage failed: %v", err)
	}
	if msg.Resource != "pump/rate" || !msg.Time.Equal(ts) {
		t.Errorf("unexpected message: %+v", msg)
	}

	var decoded map[string]any
	if err := DecodeValue(msg.Value, &decoded); err != nil {
		t.Fatalf("DecodeValue failed: %v", err)
	}
	if decoded["rate"] != 12.5 {
		t.Errorf("rate: got %v, want 12.5", decoded["rate"])
	}
}

func TestMessageValidate(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want error
	}{
		{"valid request", Message{Kind: KindRequest, Resource: "x"}, nil},
		{"bad kind", Message{Kind: 9, Resource: "x"}, ErrInvalidKind},
		{"no resource", Message{Kind: KindRequest}, ErrNoResource},
		{"update without time", Message{Kind: KindUpdate, Resource: "x"}, ErrUpdateNoTime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.want == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecodeMessageRejectsGarbage(t *testing.T) {
	if _, err := DecodeMessage([]byte{0xff, 0x00}); err == nil {
		t.Error("expected error for invalid CBOR")
	}
}
