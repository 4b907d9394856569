package connection

import (
	"errors"
	"fmt"
	"sync"

	"github.com/medkit-core/medkit-go/pkg/identity"
	"github.com/medkit-core/medkit-go/pkg/port"
)

// Factory table errors.
var (
	ErrDuplicateProtocol = errors.New("protocol already registered")
	ErrInvalidFactory    = errors.New("invalid connection factory")
)

// Constructor builds a connection over an instantiated port.
type Constructor func(p port.Port, d Device, principal *identity.Principal) *Connection

// Factory describes how to build connections for one protocol.
type Factory struct {
	// Protocol is the protocol identifier.
	Protocol string

	// Priority orders factories. Lower values are preferred.
	Priority int

	// Accepts reports whether the factory can run over p. Nil accepts any port.
	Accepts func(p port.Port) bool

	// New constructs the connection.
	New Constructor
}

func (f Factory) accepts(p port.Port) bool {
	return f.Accepts == nil || f.Accepts(p)
}

// Factories maps protocol identifiers to connection factories.
type Factories struct {
	mu    sync.RWMutex
	byID  map[string]int
	order []Factory
}

// NewFactories creates an empty table.
func NewFactories(fs ...Factory) (*Factories, error) {
	t := &Factories{byID: make(map[string]int)}
	for _, f := range fs {
		if err := t.Register(f); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Register adds f to the table.
func (t *Factories) Register(f Factory) error {
	if f.Protocol == "" || f.New == nil {
		return fmt.Errorf("%w: protocol %q", ErrInvalidFactory, f.Protocol)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.byID[f.Protocol]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateProtocol, f.Protocol)
	}
	t.byID[f.Protocol] = len(t.order)
	t.order = append(t.order, f)
	return nil
}

// Lookup returns the factory registered for protocol.
func (t *Factories) Lookup(protocol string) (Factory, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	i, ok := t.byID[protocol]
	if !ok {
		return Factory{}, false
	}
	return t.order[i], true
}

// Select returns the factory with the lowest priority value among those
// accepting p. Ties go to the earliest registration.
func (t *Factories) Select(p port.Port) (Factory, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var (
		best  Factory
		found bool
	)
	for _, f := range t.order {
		if !f.accepts(p) {
			continue
		}
		if !found || f.Priority < best.Priority {
			best = f
			found = true
		}
	}
	return best, found
}

// Protocols returns the registered protocol identifiers in registration order.
func (t *Factories) Protocols() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]string, len(t.order))
	for i, f := range t.order {
		out[i] = f.Protocol
	}
	return out
}
