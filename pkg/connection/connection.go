package connection

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medkit-core/medkit-go/pkg/identity"
	"github.com/medkit-core/medkit-go/pkg/log"
	"github.com/medkit-core/medkit-go/pkg/port"
)

// Connection errors.
var (
	ErrNotActive        = errors.New("connection not active")
	ErrAlreadyStarted   = errors.New("connection already started")
	ErrClosedDuringOpen = errors.New("connection closed during start-up")
)

// State represents the connection state.
type State uint8

const (
	// StateConstructed indicates a connection that has not been started.
	StateConstructed State = iota

	// StateActive indicates the bound port started successfully.
	StateActive

	// StateClosing indicates shutdown was initiated.
	StateClosing

	// StateClosed indicates the connection is gone. Terminal.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateConstructed:
		return "CONSTRUCTED"
	case StateActive:
		return "ACTIVE"
	case StateClosing:
		return "CLOSING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Device is the remote party a connection is bound to.
type Device interface {
	Identifier() string
}

// Handler processes protocol traffic on a connection.
type Handler interface {
	// OnMessage is called for every data unit received while active.
	OnMessage(c *Connection, data []byte)

	// OnClosed is called once when the connection reaches CLOSED.
	OnClosed(c *Connection, reason error)
}

// Option configures a Connection.
type Option func(*Connection)

// WithHandler sets the protocol handler.
func WithHandler(h Handler) Option {
	return func(c *Connection) { c.handler = h }
}

// WithProtocolLogger sets the protocol event logger.
func WithProtocolLogger(l log.Logger) Option {
	return func(c *Connection) { c.logger = log.OrNoop(l) }
}

// Connection is a session over one port to one remote device.
type Connection struct {
	id        string
	protocol  string
	port      port.Port
	device    Device
	principal *identity.Principal
	handler   Handler

	mu           sync.Mutex
	logger       log.Logger
	state        State
	startDone    func(error)
	shutdownDone []func(error)
	onClosed     func(c *Connection, reason error)
}

// New creates a connection bound to p and installs itself as the port's
// delegate. The principal may be nil.
func New(protocol string, p port.Port, d Device, principal *identity.Principal, opts ...Option) *Connection {
	c := &Connection{
		id:        uuid.New().String(),
		protocol:  protocol,
		port:      p,
		device:    d,
		principal: principal,
		logger:    log.NoopLogger{},
		state:     StateConstructed,
	}
	for _, opt := range opts {
		opt(c)
	}
	p.SetDelegate(c)
	return c
}

// ID returns the connection's unique identifier.
func (c *Connection) ID() string { return c.id }

// Protocol returns the protocol identifier the connection was built for.
func (c *Connection) Protocol() string { return c.protocol }

// Port returns the bound port.
func (c *Connection) Port() port.Port { return c.port }

// Device returns the remote device.
func (c *Connection) Device() Device { return c.device }

// Principal returns the principal, or nil.
func (c *Connection) Principal() *identity.Principal { return c.principal }

// State returns the current state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetProtocolLogger replaces the protocol event logger.
func (c *Connection) SetProtocolLogger(l log.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = log.OrNoop(l)
}

// OnClosed sets a callback invoked once when the connection reaches CLOSED.
func (c *Connection) OnClosed(fn func(c *Connection, reason error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClosed = fn
}

// Start starts the bound port. completion is called once: with nil when the
// connection became active, or with the error that closed it first.
func (c *Connection) Start(completion func(error)) {
	c.mu.Lock()
	if c.state != StateConstructed || c.startDone != nil {
		c.mu.Unlock()
		completion(ErrAlreadyStarted)
		return
	}
	c.startDone = completion
	c.mu.Unlock()

	c.port.Start()
}

// Send sends data through the port.
func (c *Connection) Send(data []byte) error {
	if c.State() != StateActive {
		return ErrNotActive
	}
	c.port.Send(data)
	return nil
}

// Shutdown closes the connection. completion is called once the port has
// closed; on an already closed connection it is called immediately. A nil
// reason denotes a voluntary close.
func (c *Connection) Shutdown(reason error, completion func(error)) {
	c.mu.Lock()
	switch c.state {
	case StateClosed:
		c.mu.Unlock()
		if completion != nil {
			completion(nil)
		}
		return
	case StateClosing:
		if completion != nil {
			c.shutdownDone = append(c.shutdownDone, completion)
		}
		c.mu.Unlock()
		return
	}
	old := c.state
	c.state = StateClosing
	if completion != nil {
		c.shutdownDone = append(c.shutdownDone, completion)
	}
	c.mu.Unlock()

	c.logTransition(old, StateClosing, reason)
	c.port.Shutdown(reason)
}

// PortDidStart implements port.Delegate.
func (c *Connection) PortDidStart(port.Port) {
	c.mu.Lock()
	if c.state != StateConstructed {
		c.mu.Unlock()
		return
	}
	c.state = StateActive
	done := c.startDone
	c.startDone = nil
	c.mu.Unlock()

	c.logTransition(StateConstructed, StateActive, nil)
	if done != nil {
		done(nil)
	}
}

// PortDidClose implements port.Delegate.
func (c *Connection) PortDidClose(_ port.Port, reason error) {
	c.mu.Lock()
	old := c.state
	if old == StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = StateClosed
	startDone := c.startDone
	shutdownDone := c.shutdownDone
	onClosed := c.onClosed
	c.startDone = nil
	c.shutdownDone = nil
	c.mu.Unlock()

	if old == StateActive {
		c.logTransition(StateActive, StateClosing, reason)
		old = StateClosing
	}
	c.logTransition(old, StateClosed, reason)

	if startDone != nil {
		err := reason
		if err == nil {
			err = ErrClosedDuringOpen
		}
		startDone(err)
	}
	for _, done := range shutdownDone {
		done(nil)
	}
	if onClosed != nil {
		onClosed(c, reason)
	}
	if c.handler != nil {
		c.handler.OnClosed(c, reason)
	}
}

// PortDidReceive implements port.Delegate.
func (c *Connection) PortDidReceive(_ port.Port, data []byte) {
	if c.State() != StateActive || c.handler == nil {
		return
	}
	c.handler.OnMessage(c, data)
}

func (c *Connection) logTransition(from, to State, reason error) {
	c.mu.Lock()
	logger := c.logger
	c.mu.Unlock()

	logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		DeviceID:     c.deviceID(),
		Layer:        log.LayerConnection,
		Category:     log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityConnection,
			OldState: from.String(),
			NewState: to.String(),
			Reason:   log.ReasonString(reason),
		},
	})
}

func (c *Connection) logError(context string, err error) {
	c.mu.Lock()
	logger := c.logger
	c.mu.Unlock()

	logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		DeviceID:     c.deviceID(),
		Direction:    log.DirectionIn,
		Layer:        log.LayerConnection,
		Category:     log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerConnection,
			Message: err.Error(),
			Context: context,
		},
	})
}

func (c *Connection) deviceID() string {
	if c.device == nil {
		return ""
	}
	return c.device.Identifier()
}

// Compile-time interface satisfaction check.
var _ port.Delegate = (*Connection)(nil)
