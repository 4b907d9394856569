package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medkit-core/medkit-go/pkg/log"
	"github.com/medkit-core/medkit-go/pkg/port"
)

// Stream defaults.
const (
	// DefaultDialTimeout bounds connection establishment including TLS.
	DefaultDialTimeout = 10 * time.Second

	// DefaultReadBufferSize is the read chunk size.
	DefaultReadBufferSize = 4096
)

// ErrNoAddress indicates a stream port without a target address.
var ErrNoAddress = errors.New("no address")

// StreamConfig configures a StreamPort.
type StreamConfig struct {
	// Address is the host:port to dial.
	Address string

	// TLSConfig enables TLS when set.
	TLSConfig *tls.Config

	// DialTimeout bounds the dial and handshake (default: 10s).
	DialTimeout time.Duration

	// ReadBufferSize is the read chunk size (default: 4096).
	ReadBufferSize int

	// Logger receives frame and state events. Optional.
	Logger log.Logger
}

// StreamPort is the base port of a TCP stack.
type StreamPort struct {
	config StreamConfig
	id     string
	logger log.Logger

	mu       sync.Mutex
	delegate port.Delegate
	state    port.State
	starting bool
	closed   bool
	conn     net.Conn
	cancel   context.CancelFunc

	writeMu sync.Mutex
}

// NewStreamPort creates an idle stream port.
func NewStreamPort(config StreamConfig) *StreamPort {
	if config.DialTimeout == 0 {
		config.DialTimeout = DefaultDialTimeout
	}
	if config.ReadBufferSize == 0 {
		config.ReadBufferSize = DefaultReadBufferSize
	}
	return &StreamPort{
		config: config,
		id:     uuid.New().String(),
		logger: log.OrNoop(config.Logger),
	}
}

// ID returns the port identifier used in log events.
func (p *StreamPort) ID() string { return p.id }

// Address returns the dial address.
func (p *StreamPort) Address() string { return p.config.Address }

// State returns the current state.
func (p *StreamPort) State() port.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SetDelegate implements port.Port.
func (p *StreamPort) SetDelegate(d port.Delegate) {
	p.mu.Lock()
	p.delegate = d
	p.mu.Unlock()
}

// Start implements port.Port. The dial runs asynchronously; the outcome is
// reported through the delegate.
func (p *StreamPort) Start() {
	p.mu.Lock()
	if p.starting || p.closed {
		p.mu.Unlock()
		return
	}
	p.starting = true
	if p.config.Address == "" {
		p.mu.Unlock()
		p.closeWith(ErrNoAddress)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.config.DialTimeout)
	p.cancel = cancel
	p.mu.Unlock()

	go p.run(ctx)
}

// Send implements port.Port. Data sent while not started is dropped.
func (p *StreamPort) Send(data []byte) {
	p.mu.Lock()
	conn := p.conn
	started := p.state == port.StateStarted
	p.mu.Unlock()
	if !started || conn == nil {
		return
	}

	p.writeMu.Lock()
	_, err := conn.Write(data)
	p.writeMu.Unlock()
	if err != nil {
		p.closeWith(fmt.Errorf("write: %w", err))
		return
	}
	p.logger.Log(p.frameEvent(data, log.DirectionOut))
}

// Shutdown implements port.Port.
func (p *StreamPort) Shutdown(reason error) {
	p.closeWith(reason)
}

func (p *StreamPort) run(ctx context.Context) {
	conn, err := p.dial(ctx)
	if err != nil {
		p.closeWith(fmt.Errorf("dial %s: %w", p.config.Address, err))
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		conn.Close()
		return
	}
	p.conn = conn
	p.state = port.StateStarted
	d := p.delegate
	p.mu.Unlock()

	p.logState(port.StateIdle, port.StateStarted, nil)
	if d != nil {
		d.PortDidStart(p)
	}
	p.readLoop(conn)
}

func (p *StreamPort) dial(ctx context.Context) (net.Conn, error) {
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", p.config.Address)
	if err != nil {
		return nil, err
	}
	if p.config.TLSConfig == nil {
		return conn, nil
	}

	tlsConn := tls.Client(conn, p.config.TLSConfig)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("TLS handshake failed: %w", err)
	}
	return tlsConn, nil
}

func (p *StreamPort) readLoop(conn net.Conn) {
	buf := make([]byte, p.config.ReadBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			data := append([]byte(nil), buf[:n]...)
			p.logger.Log(p.frameEvent(data, log.DirectionIn))

			p.mu.Lock()
			d := p.delegate
			p.mu.Unlock()
			if d != nil {
				d.PortDidReceive(p, data)
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				err = fmt.Errorf("read: %w", err)
			}
			p.closeWith(err)
			return
		}
	}
}

// closeWith releases the socket and reports the close once.
func (p *StreamPort) closeWith(reason error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	old := p.state
	p.state = port.StateShutdown
	conn, cancel, d := p.conn, p.cancel, p.delegate
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}

	p.logState(old, port.StateShutdown, reason)
	if d != nil {
		d.PortDidClose(p, reason)
	}
}

func (p *StreamPort) frameEvent(data []byte, direction log.Direction) log.Event {
	e := frameEvent(p.id, data, direction)
	e.RemoteAddr = p.config.Address
	return e
}

func (p *StreamPort) logState(from, to port.State, reason error) {
	p.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: p.id,
		Layer:        log.LayerPort,
		Category:     log.CategoryState,
		RemoteAddr:   p.config.Address,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityPort,
			OldState: from.String(),
			NewState: to.String(),
			Reason:   log.ReasonString(reason),
		},
	})
}

// TCPOptions configures ports built by NewTCPFactory.
type TCPOptions struct {
	// TLSConfig enables TLS when set.
	TLSConfig *tls.Config

	// DialTimeout bounds connection establishment (default: 10s).
	DialTimeout time.Duration

	// MaxMessageSize bounds frames (default: 64 KB).
	MaxMessageSize uint32

	// Reachable is the initial reachability of the factory.
	Reachable bool

	// Logger receives port events. Optional.
	Logger log.Logger
}

// NewTCPFactory builds a port factory producing a FramePort over a
// StreamPort dialing address.
func NewTCPFactory(name, address string, priority int, opts TCPOptions) *port.Factory {
	return port.NewFactory(name, priority, func(port.Delegate) (port.Port, error) {
		if _, _, err := net.SplitHostPort(address); err != nil {
			return nil, fmt.Errorf("invalid address %q: %w", address, err)
		}
		stream := NewStreamPort(StreamConfig{
			Address:     address,
			TLSConfig:   opts.TLSConfig,
			DialTimeout: opts.DialTimeout,
			Logger:      opts.Logger,
		})
		return NewFramePort(stream, opts.MaxMessageSize), nil
	}, port.WithAddress(address), port.WithReachable(opts.Reachable))
}

// Compile-time interface satisfaction check.
var _ port.Port = (*StreamPort)(nil)
