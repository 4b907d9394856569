package port

import "errors"

// Port errors.
var (
	// ErrNotStarted indicates data was sent through a port that is not started.
	ErrNotStarted = errors.New("port not started")

	// ErrNoChild indicates a layer was started without a port beneath it.
	ErrNoChild = errors.New("layer has no child port")
)

// State is the lifecycle state of a port.
type State uint8

const (
	// StateIdle indicates a constructed, not yet started port.
	StateIdle State = iota

	// StateStarted indicates the port completed start-up.
	StateStarted

	// StateShutdown indicates the port has been shut down. Terminal.
	StateShutdown
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateStarted:
		return "STARTED"
	case StateShutdown:
		return "SHUTDOWN"
	default:
		return "UNKNOWN"
	}
}

// Delegate receives events from a port.
//
// Callbacks may arrive on any goroutine, typically one driven by the
// underlying I/O.
type Delegate interface {
	// PortDidStart is called once the port completed start-up.
	PortDidStart(p Port)

	// PortDidClose is called once when the port shut down. A nil reason means
	// the close was voluntary.
	PortDidClose(p Port, reason error)

	// PortDidReceive is called for inbound data. Whether data is a stream
	// fragment or a complete message is agreed per stack.
	PortDidReceive(p Port, data []byte)
}

// Port is a node in a layered protocol stack.
//
// Send, Start and Shutdown return immediately; outcomes are reported to the
// delegate. Call ordering within one port is the caller's responsibility.
type Port interface {
	// SetDelegate sets the callback target for inbound events.
	SetDelegate(d Delegate)

	// Send sends data through the port.
	Send(data []byte)

	// Start begins start-up. Stacks propagate Start down to their base.
	Start()

	// Shutdown initiates a graceful shutdown. A nil reason denotes a
	// voluntary close, anything else an abnormal one.
	Shutdown(reason error)
}
