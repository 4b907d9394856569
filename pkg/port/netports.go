package port

import "sync"

// Handle identifies a factory registered in a NetPorts. The zero Handle is
// never issued.
type Handle uint64

type entry struct {
	handle  Handle
	factory *Factory
}

// NetPorts is the registry of port factories known for one device.
//
// Enumeration order is insertion order. It is not meaningful for selection
// beyond breaking ties between equal priorities.
type NetPorts struct {
	mu      sync.RWMutex
	entries []entry
	next    Handle
}

// NewNetPorts creates an empty registry.
func NewNetPorts() *NetPorts {
	return &NetPorts{}
}

// Add registers a factory and returns its handle. Adding a factory that is
// already registered returns the existing handle.
func (n *NetPorts) Add(f *Factory) Handle {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, e := range n.entries {
		if e.factory == f {
			return e.handle
		}
	}
	n.next++
	n.entries = append(n.entries, entry{handle: n.next, factory: f})
	return n.next
}

// Remove removes the factory registered under h. Unknown handles are a no-op.
func (n *NetPorts) Remove(h Handle) (*Factory, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, e := range n.entries {
		if e.handle == h {
			n.entries = append(n.entries[:i], n.entries[i+1:]...)
			return e.factory, true
		}
	}
	return nil, false
}

// RemoveAll removes every factory and returns them in enumeration order.
func (n *NetPorts) RemoveAll() []*Factory {
	n.mu.Lock()
	defer n.mu.Unlock()

	removed := make([]*Factory, len(n.entries))
	for i, e := range n.entries {
		removed[i] = e.factory
	}
	n.entries = nil
	return removed
}

// Lookup returns the factory registered under h.
func (n *NetPorts) Lookup(h Handle) (*Factory, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, e := range n.entries {
		if e.handle == h {
			return e.factory, true
		}
	}
	return nil, false
}

// HandleOf returns the handle of a registered factory.
func (n *NetPorts) HandleOf(f *Factory) (Handle, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, e := range n.entries {
		if e.factory == f {
			return e.handle, true
		}
	}
	return 0, false
}

// Factories returns a snapshot of the registered factories.
func (n *NetPorts) Factories() []*Factory {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]*Factory, len(n.entries))
	for i, e := range n.entries {
		out[i] = e.factory
	}
	return out
}

// Len returns the number of registered factories.
func (n *NetPorts) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.entries)
}

// Reachable reports whether any registered factory is reachable.
// It is evaluated on every call.
func (n *NetPorts) Reachable() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, e := range n.entries {
		if e.factory.Reachable() {
			return true
		}
	}
	return false
}

// Select returns the reachable factory with the lowest priority value, or
// nil when none is reachable. Equal priorities resolve to the earliest
// registered factory.
func (n *NetPorts) Select() *Factory {
	n.mu.RLock()
	defer n.mu.RUnlock()

	var selection *Factory
	for _, e := range n.entries {
		if !e.factory.Reachable() {
			continue
		}
		if selection == nil || e.factory.Priority() < selection.Priority() {
			selection = e.factory
		}
	}
	return selection
}
