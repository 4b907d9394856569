package wire

import (
	"errors"
	"fmt"
	"time"
)

// MessageKind distinguishes stack messages.
type MessageKind uint8

const (
	// KindUpdate carries a new resource value.
	KindUpdate MessageKind = 1
	// KindRequest asks the peer for the current value of a resource.
	KindRequest MessageKind = 2
)

// String returns the kind name.
func (k MessageKind) String() string {
	switch k {
	case KindUpdate:
		return "UPDATE"
	case KindRequest:
		return "REQUEST"
	default:
		return "UNKNOWN"
	}
}

// Message errors.
var (
	ErrInvalidKind  = errors.New("invalid message kind")
	ErrNoResource   = errors.New("message has no resource")
	ErrUpdateNoTime = errors.New("update has no modification time")
)

// Message is the unit exchanged by the medkit connection protocol.
type Message struct {
	Kind     MessageKind `cbor:"1,keyasint"`
	Resource string      `cbor:"2,keyasint"`
	Time     time.Time   `cbor:"3,keyasint,omitempty"`
	Value    RawValue    `cbor:"4,keyasint,omitempty"`
}

// Validate checks the message is well-formed.
func (m *Message) Validate() error {
	switch m.Kind {
	case KindUpdate:
		if m.Time.IsZero() {
			return ErrUpdateNoTime
		}
	case KindRequest:
	default:
		return fmt.Errorf("%w: %d", ErrInvalidKind, m.Kind)
	}
	if m.Resource == "" {
		return ErrNoResource
	}
	return nil
}

// EncodeMessage validates and encodes a message.
func EncodeMessage(m *Message) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}
	return Marshal(m)
}

// DecodeMessage decodes and validates a message.
func DecodeMessage(data []byte) (*Message, error) {
	var m Message
	if err := Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}
	return &m, nil
}
