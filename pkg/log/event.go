package log

import (
	"time"
)

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID identifies the port or connection instance (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates data flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// RemoteAddr is the peer address (host:port), when known.
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// DeviceID is the identifier of the remote device.
	DeviceID string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"` // Port layer
	StateChange *StateChangeEvent `cbor:"11,keyasint,omitempty"` // Connection/proxy lifecycle
	Error       *ErrorEventData   `cbor:"12,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of data flow.
type Direction uint8

const (
	// DirectionIn indicates inbound data.
	DirectionIn Direction = 0
	// DirectionOut indicates outbound data.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which part of the stack captured the event.
type Layer uint8

const (
	// LayerPort is a port in a protocol stack (raw data units).
	LayerPort Layer = 0
	// LayerConnection is a session bound to a port.
	LayerConnection Layer = 1
	// LayerProxy is the device proxy.
	LayerProxy Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerPort:
		return "PORT"
	case LayerConnection:
		return "CONNECTION"
	case LayerProxy:
		return "PROXY"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryData indicates a data unit crossing a port.
	CategoryData Category = 0
	// CategoryState indicates a state change.
	CategoryState Category = 1
	// CategoryError indicates an error event.
	CategoryError Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryData:
		return "DATA"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures a data unit at a port.
type FrameEvent struct {
	// Size is the data unit size in bytes.
	Size int `cbor:"1,keyasint"`

	// Data is the raw bytes (may be truncated for large units).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// MaxFrameDataSize is the maximum data size included in a FrameEvent.
const MaxFrameDataSize = 4096

// NewFrameEvent builds a FrameEvent, truncating data beyond MaxFrameDataSize.
func NewFrameEvent(data []byte) *FrameEvent {
	fe := &FrameEvent{Size: len(data), Data: data}
	if len(data) > MaxFrameDataSize {
		fe.Data = data[:MaxFrameDataSize]
		fe.Truncated = true
	}
	return fe
}

// StateChangeEvent captures port, connection and proxy lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityPort indicates a port state change.
	StateEntityPort StateEntity = 0
	// StateEntityConnection indicates a connection state change.
	StateEntityConnection StateEntity = 1
	// StateEntityProxy indicates a proxy open/close or reachability change.
	StateEntityProxy StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityPort:
		return "PORT"
	case StateEntityConnection:
		return "CONNECTION"
	case StateEntityProxy:
		return "PROXY"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}

// ReasonString renders an optional close reason for a StateChangeEvent.
func ReasonString(reason error) string {
	if reason == nil {
		return ""
	}
	return reason.Error()
}
