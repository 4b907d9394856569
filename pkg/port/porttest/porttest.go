// Package porttest provides an in-memory Port for exercising stacks,
// connections and proxies without sockets.
package porttest

import (
	"sync"

	"github.com/medkit-core/medkit-go/pkg/port"
)

// Port is a scripted port.Port.
//
// By default Start succeeds synchronously and Shutdown reports the close
// synchronously. Set Manual to complete start-up from the test with
// CompleteStart or FailStart instead.
type Port struct {
	// StartErr, when set, makes Start report a close with this reason.
	StartErr error

	// Manual defers start completion to CompleteStart/FailStart.
	Manual bool

	mu        sync.Mutex
	delegate  port.Delegate
	state     port.State
	closed    bool
	sent      [][]byte
	starts    int
	shutdowns []error
}

// New returns an idle port.
func New() *Port {
	return &Port{}
}

// SetDelegate implements port.Port.
func (p *Port) SetDelegate(d port.Delegate) {
	p.mu.Lock()
	p.delegate = d
	p.mu.Unlock()
}

// Send implements port.Port.
func (p *Port) Send(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, append([]byte(nil), data...))
}

// Start implements port.Port.
func (p *Port) Start() {
	p.mu.Lock()
	p.starts++
	manual, startErr := p.Manual, p.StartErr
	p.mu.Unlock()

	switch {
	case manual:
	case startErr != nil:
		p.FailStart(startErr)
	default:
		p.CompleteStart()
	}
}

// Shutdown implements port.Port.
func (p *Port) Shutdown(reason error) {
	p.mu.Lock()
	p.shutdowns = append(p.shutdowns, reason)
	p.mu.Unlock()
	p.Close(reason)
}

// CompleteStart reports a successful start to the delegate.
func (p *Port) CompleteStart() {
	p.mu.Lock()
	if p.state != port.StateIdle {
		p.mu.Unlock()
		return
	}
	p.state = port.StateStarted
	d := p.delegate
	p.mu.Unlock()

	if d != nil {
		d.PortDidStart(p)
	}
}

// FailStart reports a failed start as a close with reason.
func (p *Port) FailStart(reason error) {
	p.Close(reason)
}

// Close reports a close to the delegate, at most once. Tests use it to
// simulate the remote end going away.
func (p *Port) Close(reason error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.state = port.StateShutdown
	d := p.delegate
	p.mu.Unlock()

	if d != nil {
		d.PortDidClose(p, reason)
	}
}

// Receive delivers inbound data to the delegate.
func (p *Port) Receive(data []byte) {
	p.mu.Lock()
	d := p.delegate
	p.mu.Unlock()

	if d != nil {
		d.PortDidReceive(p, data)
	}
}

// State returns the current state.
func (p *Port) State() port.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Sent returns copies of all data passed to Send.
func (p *Port) Sent() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]byte(nil), p.sent...)
}

// Starts returns how many times Start was called.
func (p *Port) Starts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.starts
}

// Shutdowns returns the reasons passed to Shutdown.
func (p *Port) Shutdowns() []error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]error(nil), p.shutdowns...)
}

// Factory returns a port.Factory whose constructor hands out p.
func Factory(name string, priority int, reachable bool, p *Port) *port.Factory {
	return port.NewFactory(name, priority, func(port.Delegate) (port.Port, error) {
		return p, nil
	}, port.WithReachable(reachable))
}

// Recorder is a port.Delegate that records events.
type Recorder struct {
	mu       sync.Mutex
	started  int
	closes   []error
	received [][]byte
}

// PortDidStart implements port.Delegate.
func (r *Recorder) PortDidStart(port.Port) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

// PortDidClose implements port.Delegate.
func (r *Recorder) PortDidClose(_ port.Port, reason error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closes = append(r.closes, reason)
}

// PortDidReceive implements port.Delegate.
func (r *Recorder) PortDidReceive(_ port.Port, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.received = append(r.received, append([]byte(nil), data...))
}

// Started returns the number of start events.
func (r *Recorder) Started() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

// Closes returns the close reasons received.
func (r *Recorder) Closes() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.closes...)
}

// Received returns the data units received.
func (r *Recorder) Received() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.received...)
}

var (
	_ port.Port     = (*Port)(nil)
	_ port.Delegate = (*Recorder)(nil)
)
