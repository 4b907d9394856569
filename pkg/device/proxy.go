package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/medkit-core/medkit-go/pkg/connection"
	"github.com/medkit-core/medkit-go/pkg/identity"
	"github.com/medkit-core/medkit-go/pkg/log"
	"github.com/medkit-core/medkit-go/pkg/port"
	"github.com/medkit-core/medkit-go/pkg/syncgroup"
)

// ErrDestroyed is returned by operations on a destroyed proxy.
var ErrDestroyed = errors.New("proxy destroyed")

// Info describes a remote device.
type Info struct {
	// Identifier uniquely identifies the device. Required.
	Identifier string

	// Name is a human-readable name.
	Name string

	// Model is the device model, if known.
	Model string

	// SerialNumber is the device serial number, if known.
	SerialNumber string
}

// Registry tracks proxies by identifier.
type Registry interface {
	RemoveDevice(id string)
}

// Option configures a Proxy.
type Option func(*proxyOptions)

type proxyOptions struct {
	parent        *Proxy
	registry      Registry
	factories     *connection.Factories
	principal     *identity.Principal
	logger        *slog.Logger
	protoLogger   log.Logger
	meterProvider metric.MeterProvider
}

// WithParent makes the proxy a child of parent, as for a bridged device.
func WithParent(parent *Proxy) Option {
	return func(o *proxyOptions) { o.parent = parent }
}

// WithRegistry sets the registry the proxy removes itself from on Destroy.
func WithRegistry(r Registry) Option {
	return func(o *proxyOptions) { o.registry = r }
}

// WithConnectionFactories sets the protocol table used by Open.
func WithConnectionFactories(f *connection.Factories) Option {
	return func(o *proxyOptions) { o.factories = f }
}

// WithPrincipal sets the principal carried by opened connections.
func WithPrincipal(p *identity.Principal) Option {
	return func(o *proxyOptions) { o.principal = p }
}

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *proxyOptions) { o.logger = l }
}

// WithProtocolLogger sets the protocol event logger for the proxy and its
// connections.
func WithProtocolLogger(l log.Logger) Option {
	return func(o *proxyOptions) { o.protoLogger = l }
}

// WithMeterProvider sets the meter provider. Defaults to the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *proxyOptions) { o.meterProvider = mp }
}

// Proxy is the local representative of one remote device.
type Proxy struct {
	info        Info
	parent      *Proxy
	backend     *Backend
	logger      *slog.Logger
	protoLogger log.Logger
	metrics     *proxyMetrics

	// portsMu serializes port mutations so reachability snapshots are
	// consistent with the published value.
	portsMu       sync.Mutex
	lastReachable bool

	mu           sync.Mutex
	registry     Registry
	children     []*Proxy
	observers    []observerEntry
	nextObserver ObserverHandle
	destroyed    bool
}

// NewProxy creates a proxy for info.
func NewProxy(info Info, opts ...Option) *Proxy {
	var o proxyOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.meterProvider == nil {
		o.meterProvider = otel.GetMeterProvider()
	}

	p := &Proxy{
		info:        info,
		parent:      o.parent,
		backend:     NewBackend(o.factories, o.principal),
		logger:      o.logger.With("device", info.Identifier),
		protoLogger: log.OrNoop(o.protoLogger),
		metrics:     newProxyMetrics(o.meterProvider, info.Identifier),
		registry:    o.registry,
	}
	p.backend.SetProtocolLogger(p.protoLogger)
	p.backend.OnConnectionClosed(func(c *connection.Connection, reason error) {
		p.logger.Info("connection closed", "conn_id", c.ID(), "reason", log.ReasonString(reason))
		p.logState("OPEN", "CLOSED", reason)
	})
	if o.parent != nil {
		o.parent.addChild(p)
	}
	return p
}

// Identifier implements connection.Device.
func (p *Proxy) Identifier() string { return p.info.Identifier }

// Info returns the device description.
func (p *Proxy) Info() Info { return p.info }

// Parent returns the parent proxy, or nil.
func (p *Proxy) Parent() *Proxy { return p.parent }

// Backend returns the proxy's backend.
func (p *Proxy) Backend() *Backend { return p.backend }

// Ports returns the proxy's port factories in insertion order.
func (p *Proxy) Ports() []*port.Factory { return p.backend.Ports().Factories() }

// Reachable reports whether any port factory is reachable.
func (p *Proxy) Reachable() bool { return p.backend.Ports().Reachable() }

// Connection returns the active connection, or nil.
func (p *Proxy) Connection() *connection.Connection { return p.backend.Connection() }

// Children returns the child proxies.
func (p *Proxy) Children() []*Proxy {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Proxy(nil), p.children...)
}

func (p *Proxy) addChild(child *Proxy) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.children = append(p.children, child)
}

func (p *Proxy) removeChild(child *Proxy) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, c := range p.children {
		if c == child {
			p.children = append(p.children[:i], p.children[i+1:]...)
			return
		}
	}
}

func (p *Proxy) setRegistry(r Registry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.registry == nil {
		p.registry = r
	}
}

// IsDestroyed reports whether Destroy was called.
func (p *Proxy) IsDestroyed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.destroyed
}

// Open opens a connection to the device. completion is called exactly once.
func (p *Proxy) Open(completion func(error)) {
	if p.IsDestroyed() {
		completion(ErrDestroyed)
		return
	}
	p.backend.Open(p, func(err error) {
		p.metrics.opened(context.Background(), err)
		if err != nil {
			p.logger.Warn("open failed", "error", err)
			p.logError("open", err)
		} else if c := p.backend.Connection(); c != nil {
			p.logger.Info("opened", "conn_id", c.ID(), "protocol", c.Protocol())
			p.logState("CLOSED", "OPEN", nil)
		}
		completion(err)
	})
}

// Close closes this proxy's connection and those of all children.
// completion is called exactly once with the first error reported.
func (p *Proxy) Close(reason error, completion func(error)) {
	g := syncgroup.New()

	g.Incr()
	p.backend.Close(reason, g.Decr)
	for _, child := range p.Children() {
		g.Incr()
		child.Close(reason, g.Decr)
	}

	g.Close(completion)
}

// AddPort registers a port factory and returns its handle. Adding a
// factory that is already registered returns its existing handle and
// emits nothing.
func (p *Proxy) AddPort(f *port.Factory) port.Handle {
	p.portsMu.Lock()
	ports := p.backend.Ports()
	if h, ok := ports.HandleOf(f); ok {
		p.portsMu.Unlock()
		return h
	}
	h := ports.Add(f)
	flipped := p.publishReachabilityLocked()
	p.portsMu.Unlock()

	p.metrics.portsChanged(context.Background(), 1)
	p.logger.Debug("port added", "port", f.String())
	p.notify(func(o Observer) { o.PortAdded(p, f) })
	if flipped {
		p.reachabilityChanged()
	}
	return h
}

// RemovePort removes the factory registered under h. Unknown handles are
// ignored.
func (p *Proxy) RemovePort(h port.Handle) {
	p.portsMu.Lock()
	f, ok := p.backend.Ports().Remove(h)
	if !ok {
		p.portsMu.Unlock()
		return
	}
	flipped := p.publishReachabilityLocked()
	p.portsMu.Unlock()

	p.metrics.portsChanged(context.Background(), -1)
	p.logger.Debug("port removed", "port", f.String())
	p.notify(func(o Observer) { o.PortRemoved(p, f) })
	if flipped {
		p.reachabilityChanged()
	}
}

// RemoveAllPorts removes every factory, emitting PortRemoved for each.
func (p *Proxy) RemoveAllPorts() {
	p.portsMu.Lock()
	removed := p.backend.Ports().RemoveAll()
	flipped := p.publishReachabilityLocked()
	p.portsMu.Unlock()

	p.metrics.portsChanged(context.Background(), -int64(len(removed)))
	for _, f := range removed {
		p.notify(func(o Observer) { o.PortRemoved(p, f) })
	}
	if flipped {
		p.reachabilityChanged()
	}
}

// NotifyReachabilityChanged re-evaluates aggregate reachability after a
// factory's flag changed and emits ReachabilityChanged if it flipped.
func (p *Proxy) NotifyReachabilityChanged() {
	p.portsMu.Lock()
	flipped := p.publishReachabilityLocked()
	p.portsMu.Unlock()

	if flipped {
		p.reachabilityChanged()
	}
}

// publishReachabilityLocked records the current aggregate and reports
// whether it differs from the last published value. Requires portsMu.
func (p *Proxy) publishReachabilityLocked() bool {
	now := p.backend.Ports().Reachable()
	if now == p.lastReachable {
		return false
	}
	p.lastReachable = now
	return true
}

func (p *Proxy) reachabilityChanged() {
	reachable := p.Reachable()
	p.logger.Info("reachability changed", "reachable", reachable)
	if reachable {
		p.logState("UNREACHABLE", "REACHABLE", nil)
	} else {
		p.logState("REACHABLE", "UNREACHABLE", nil)
	}
	p.notify(func(o Observer) { o.ReachabilityChanged(p) })
}

// AddObserver registers o. Observers are called in registration order.
func (p *Proxy) AddObserver(o Observer) ObserverHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextObserver++
	h := p.nextObserver
	p.observers = append(p.observers, observerEntry{handle: h, observer: o})
	return h
}

// RemoveObserver unregisters the observer registered under h.
func (p *Proxy) RemoveObserver(h ObserverHandle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, e := range p.observers {
		if e.handle == h {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			return
		}
	}
}

func (p *Proxy) notify(fn func(Observer)) {
	p.mu.Lock()
	observers := append([]observerEntry(nil), p.observers...)
	p.mu.Unlock()

	for _, e := range observers {
		p.deliver(e, fn)
	}
}

func (p *Proxy) deliver(e observerEntry, fn func(Observer)) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("observer panicked", "observer", e.handle, "panic", r)
			p.logError("observer", fmt.Errorf("observer %d panicked: %v", e.handle, r))
		}
	}()
	fn(e.observer)
}

// Destroy tears the proxy down: it leaves its parent and registry and
// closes any open connection. Destroy is idempotent.
func (p *Proxy) Destroy() {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return
	}
	p.destroyed = true
	registry := p.registry
	p.mu.Unlock()

	if registry != nil {
		registry.RemoveDevice(p.info.Identifier)
	}
	if p.parent != nil {
		p.parent.removeChild(p)
	}
	p.backend.Close(ErrDestroyed, nil)
	p.logger.Debug("destroyed")
}

// String returns a human-readable description.
func (p *Proxy) String() string {
	if p.info.Name != "" {
		return fmt.Sprintf("%s (%s)", p.info.Name, p.info.Identifier)
	}
	return p.info.Identifier
}

func (p *Proxy) logState(from, to string, reason error) {
	p.protoLogger.Log(log.Event{
		Timestamp: time.Now(),
		DeviceID:  p.info.Identifier,
		Layer:     log.LayerProxy,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityProxy,
			OldState: from,
			NewState: to,
			Reason:   log.ReasonString(reason),
		},
	})
}

func (p *Proxy) logError(op string, err error) {
	p.protoLogger.Log(log.Event{
		Timestamp: time.Now(),
		DeviceID:  p.info.Identifier,
		Layer:     log.LayerProxy,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerProxy,
			Message: err.Error(),
			Context: op,
		},
	})
}

// Compile-time interface satisfaction check.
var _ connection.Device = (*Proxy)(nil)
