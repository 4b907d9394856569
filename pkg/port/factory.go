package port

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrNilPort indicates a constructor returned neither a port nor an error.
var ErrNilPort = errors.New("constructor returned nil port")

// Constructor builds a port whose events are delivered to target.
type Constructor func(target Delegate) (Port, error)

// Factory describes one candidate path to a device and builds ports for it.
//
// Name, priority and address are fixed at construction. Reachability is
// written by an external prober and may change at any time.
type Factory struct {
	name     string
	priority int
	address  string
	ctor     Constructor

	reachable atomic.Bool
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithAddress records the network address the factory connects to.
func WithAddress(addr string) FactoryOption {
	return func(f *Factory) { f.address = addr }
}

// WithReachable sets the initial reachability.
func WithReachable(reachable bool) FactoryOption {
	return func(f *Factory) { f.reachable.Store(reachable) }
}

// NewFactory creates a factory. Lower priority values are preferred.
func NewFactory(name string, priority int, ctor Constructor, opts ...FactoryOption) *Factory {
	f := &Factory{name: name, priority: priority, ctor: ctor}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name returns the factory name.
func (f *Factory) Name() string { return f.name }

// Priority returns the factory priority.
func (f *Factory) Priority() int { return f.priority }

// Address returns the network address, if one was configured.
func (f *Factory) Address() string { return f.address }

// Reachable reports whether the path is currently believed reachable.
func (f *Factory) Reachable() bool { return f.reachable.Load() }

// SetReachable updates reachability and reports whether it changed.
func (f *Factory) SetReachable(reachable bool) bool {
	return f.reachable.Swap(reachable) != reachable
}

// Instantiate builds a port with target as its delegate.
func (f *Factory) Instantiate(target Delegate) (Port, error) {
	if f.ctor == nil {
		return nil, fmt.Errorf("factory %q: %w", f.name, ErrNilPort)
	}
	p, err := f.ctor(target)
	if err != nil {
		return nil, fmt.Errorf("factory %q: %w", f.name, err)
	}
	if p == nil {
		return nil, fmt.Errorf("factory %q: %w", f.name, ErrNilPort)
	}
	p.SetDelegate(target)
	return p, nil
}

// String returns a human-readable description.
func (f *Factory) String() string {
	if f.address != "" {
		return fmt.Sprintf("%s(%s, priority=%d)", f.name, f.address, f.priority)
	}
	return fmt.Sprintf("%s(priority=%d)", f.name, f.priority)
}
