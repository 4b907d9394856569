package device

import (
	"github.com/medkit-core/medkit-go/pkg/port"
)

// Observer receives proxy change notifications.
//
// Callbacks run on the goroutine that made the change. An observer that
// panics is logged and skipped; the remaining observers are still called.
type Observer interface {
	PortAdded(p *Proxy, f *port.Factory)
	PortRemoved(p *Proxy, f *port.Factory)
	ReachabilityChanged(p *Proxy)
}

// ObserverFuncs adapts optional functions to Observer.
type ObserverFuncs struct {
	OnPortAdded           func(p *Proxy, f *port.Factory)
	OnPortRemoved         func(p *Proxy, f *port.Factory)
	OnReachabilityChanged func(p *Proxy)
}

// PortAdded implements Observer.
func (o ObserverFuncs) PortAdded(p *Proxy, f *port.Factory) {
	if o.OnPortAdded != nil {
		o.OnPortAdded(p, f)
	}
}

// PortRemoved implements Observer.
func (o ObserverFuncs) PortRemoved(p *Proxy, f *port.Factory) {
	if o.OnPortRemoved != nil {
		o.OnPortRemoved(p, f)
	}
}

// ReachabilityChanged implements Observer.
func (o ObserverFuncs) ReachabilityChanged(p *Proxy) {
	if o.OnReachabilityChanged != nil {
		o.OnReachabilityChanged(p)
	}
}

// ObserverHandle identifies a registered observer.
type ObserverHandle uint64

type observerEntry struct {
	handle   ObserverHandle
	observer Observer
}

var _ Observer = ObserverFuncs{}
