package device

import (
	"errors"
	"fmt"
	"sync"

	"github.com/medkit-core/medkit-go/pkg/connection"
	"github.com/medkit-core/medkit-go/pkg/identity"
	"github.com/medkit-core/medkit-go/pkg/log"
	"github.com/medkit-core/medkit-go/pkg/port"
)

// Open errors.
var (
	ErrNotReachable   = errors.New("device not reachable")
	ErrNoProtocol     = errors.New("no connection protocol for port")
	ErrOpenInProgress = errors.New("open already in progress")
)

// Backend composes a device's ports and connection factories into an
// open/close lifecycle. At most one connection is active at a time.
type Backend struct {
	ports     *port.NetPorts
	factories *connection.Factories
	principal *identity.Principal

	mu       sync.Mutex
	logger   log.Logger
	pending  *connection.Connection
	active   *connection.Connection
	onClosed func(c *connection.Connection, reason error)
}

// NewBackend creates a backend with no ports. factories and principal may
// be nil.
func NewBackend(factories *connection.Factories, principal *identity.Principal) *Backend {
	return &Backend{
		ports:     port.NewNetPorts(),
		factories: factories,
		principal: principal,
		logger:    log.NoopLogger{},
	}
}

// Ports returns the backend's port registry.
func (b *Backend) Ports() *port.NetPorts { return b.ports }

// Principal returns the principal handed to new connections, or nil.
func (b *Backend) Principal() *identity.Principal { return b.principal }

// SetProtocolLogger sets the logger handed to new connections.
func (b *Backend) SetProtocolLogger(l log.Logger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = log.OrNoop(l)
}

// OnConnectionClosed sets a callback invoked when an established connection
// closes.
func (b *Backend) OnConnectionClosed(fn func(c *connection.Connection, reason error)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onClosed = fn
}

// Connection returns the active connection, or nil.
func (b *Backend) Connection() *connection.Connection {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// IsOpen reports whether a connection is active.
func (b *Backend) IsOpen() bool {
	return b.Connection() != nil
}

// Open connects to d over the preferred reachable port. completion is
// called exactly once. Opening an open backend completes with nil.
func (b *Backend) Open(d connection.Device, completion func(error)) {
	b.mu.Lock()
	if b.active != nil {
		b.mu.Unlock()
		completion(nil)
		return
	}
	if b.pending != nil {
		b.mu.Unlock()
		completion(ErrOpenInProgress)
		return
	}

	c, err := b.connect(d)
	if err != nil {
		b.mu.Unlock()
		completion(err)
		return
	}
	b.pending = c
	b.mu.Unlock()

	c.OnClosed(b.connectionClosed)
	c.Start(func(err error) {
		b.mu.Lock()
		if b.pending == c {
			b.pending = nil
		}
		if err == nil {
			if c.State() == connection.StateActive {
				b.active = c
			} else {
				err = connection.ErrClosedDuringOpen
			}
		}
		b.mu.Unlock()
		completion(err)
	})
}

// connect builds the connection for the selected port. Called with b.mu held.
func (b *Backend) connect(d connection.Device) (*connection.Connection, error) {
	f := b.ports.Select()
	if f == nil {
		return nil, ErrNotReachable
	}
	p, err := f.Instantiate(nil)
	if err != nil {
		return nil, fmt.Errorf("instantiate port: %w", err)
	}
	if b.factories == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoProtocol, f.Name())
	}
	cf, ok := b.factories.Select(p)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoProtocol, f.Name())
	}
	c := cf.New(p, d, b.principal)
	if c == nil {
		return nil, fmt.Errorf("%w: %s constructor returned nil", ErrNoProtocol, cf.Protocol)
	}
	c.SetProtocolLogger(b.logger)
	return c, nil
}

// Close shuts down the active or opening connection. completion, if set, is
// called exactly once, with nil when nothing was open.
func (b *Backend) Close(reason error, completion func(error)) {
	if completion == nil {
		completion = func(error) {}
	}

	b.mu.Lock()
	c := b.active
	if c == nil {
		c = b.pending
	}
	b.mu.Unlock()

	if c == nil {
		completion(nil)
		return
	}
	c.Shutdown(reason, completion)
}

func (b *Backend) connectionClosed(c *connection.Connection, reason error) {
	b.mu.Lock()
	wasActive := b.active == c
	if wasActive {
		b.active = nil
	}
	fn := b.onClosed
	b.mu.Unlock()

	if wasActive && fn != nil {
		fn(c, reason)
	}
}
