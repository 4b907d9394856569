package port

import "sync"

// Codec transforms data units as they cross a Layer.
//
// A Codec instance belongs to a single Layer and may keep state, such as a
// partially received frame.
type Codec interface {
	// Encode transforms an outbound unit before it is passed to the child.
	Encode(data []byte) ([]byte, error)

	// Decode consumes inbound data from the child and returns zero or more
	// units for the delegate.
	Decode(data []byte) ([][]byte, error)
}

// Layer is a stack layer: a Port to the layer above that owns a child Port.
//
// Start and Shutdown are forwarded to the child. Child events are forwarded
// to the delegate with the Layer as the reporting port. A codec error on
// inbound or outbound data shuts the child down with that error.
type Layer struct {
	child Port
	codec Codec

	mu       sync.Mutex
	delegate Delegate
	state    State
	closed   bool
}

// NewLayer creates a layer over child. A nil codec passes data through.
func NewLayer(child Port, codec Codec) *Layer {
	l := &Layer{child: child, codec: codec}
	if child != nil {
		child.SetDelegate(l)
	}
	return l
}

// Child returns the port beneath this layer.
func (l *Layer) Child() Port {
	return l.child
}

// State returns the current layer state.
func (l *Layer) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// SetDelegate implements Port.
func (l *Layer) SetDelegate(d Delegate) {
	l.mu.Lock()
	l.delegate = d
	l.mu.Unlock()
}

// Send implements Port. Data sent before the layer started is dropped.
func (l *Layer) Send(data []byte) {
	if l.State() != StateStarted {
		return
	}
	if l.codec != nil {
		encoded, err := l.codec.Encode(data)
		if err != nil {
			l.child.Shutdown(err)
			return
		}
		data = encoded
	}
	l.child.Send(data)
}

// Start implements Port.
func (l *Layer) Start() {
	if l.child == nil {
		l.PortDidClose(nil, ErrNoChild)
		return
	}
	l.child.Start()
}

// Shutdown implements Port.
func (l *Layer) Shutdown(reason error) {
	if l.child == nil {
		l.PortDidClose(nil, reason)
		return
	}
	l.child.Shutdown(reason)
}

// PortDidStart implements Delegate for the child.
func (l *Layer) PortDidStart(Port) {
	l.mu.Lock()
	if l.state != StateIdle {
		l.mu.Unlock()
		return
	}
	l.state = StateStarted
	d := l.delegate
	l.mu.Unlock()

	if d != nil {
		d.PortDidStart(l)
	}
}

// PortDidClose implements Delegate for the child. It is forwarded once.
func (l *Layer) PortDidClose(_ Port, reason error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.state = StateShutdown
	d := l.delegate
	l.mu.Unlock()

	if d != nil {
		d.PortDidClose(l, reason)
	}
}

// PortDidReceive implements Delegate for the child.
func (l *Layer) PortDidReceive(_ Port, data []byte) {
	l.mu.Lock()
	d := l.delegate
	l.mu.Unlock()

	units := [][]byte{data}
	if l.codec != nil {
		var err error
		units, err = l.codec.Decode(data)
		if err != nil {
			l.child.Shutdown(err)
			return
		}
	}
	if d == nil {
		return
	}
	for _, u := range units {
		d.PortDidReceive(l, u)
	}
}

// Compile-time interface satisfaction checks.
var (
	_ Port     = (*Layer)(nil)
	_ Delegate = (*Layer)(nil)
)
