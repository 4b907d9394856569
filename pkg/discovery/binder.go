package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/medkit-core/medkit-go/pkg/device"
	"github.com/medkit-core/medkit-go/pkg/port"
	"github.com/medkit-core/medkit-go/pkg/transport"
)

// ErrNoEndpoints indicates a service without a usable address.
var ErrNoEndpoints = errors.New("service has no endpoints")

// ProxyFactory creates the proxy for a newly discovered device.
type ProxyFactory func(svc *Service) *device.Proxy

// BinderConfig configures a Binder.
type BinderConfig struct {
	// Cache indexes proxies by device identifier. Required.
	Cache *device.Cache

	// NewProxy creates missing proxies. Defaults to a bare device.NewProxy.
	NewProxy ProxyFactory

	// Prober, when set, keeps the reachability of bound ports current.
	Prober *transport.Prober

	// TCP configures the port factories created for endpoints.
	TCP transport.TCPOptions

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

type binding struct {
	proxy     *device.Proxy
	factories []*port.Factory
	handles   []port.Handle
}

// Binder turns discovered services into port factories on device proxies.
//
// The binder holds a strong reference to every proxy it created or bound
// to, so proxies of advertised devices stay in the cache.
type Binder struct {
	config BinderConfig
	logger *slog.Logger

	mu    sync.Mutex
	bound map[string]*binding
}

// NewBinder creates a binder.
func NewBinder(config BinderConfig) *Binder {
	if config.NewProxy == nil {
		config.NewProxy = func(svc *Service) *device.Proxy {
			return device.NewProxy(device.Info{Identifier: svc.DeviceID, Name: svc.Name})
		}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Binder{
		config: config,
		logger: logger,
		bound:  make(map[string]*binding),
	}
}

// Run browses and binds until ctx is cancelled or the browser stops.
func (b *Binder) Run(ctx context.Context, browser Browser) error {
	added, removed, err := browser.Browse(ctx)
	if err != nil {
		return fmt.Errorf("browse: %w", err)
	}

	for added != nil || removed != nil {
		select {
		case svc, ok := <-added:
			if !ok {
				added = nil
				continue
			}
			if err := b.Add(svc); err != nil {
				b.logger.Warn("ignoring service", "instance", svc.InstanceName, "error", err)
			}
		case svc, ok := <-removed:
			if !ok {
				removed = nil
				continue
			}
			b.Remove(svc)
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}

// Add binds svc: one reachable TCP port factory per endpoint on the
// device's proxy. A service already bound is left unchanged.
func (b *Binder) Add(svc *Service) error {
	endpoints := svc.Endpoints()
	if len(endpoints) == 0 {
		return fmt.Errorf("%w: %s", ErrNoEndpoints, svc.InstanceName)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.bound[svc.InstanceName]; ok {
		return nil
	}

	proxy, err := b.proxyFor(svc)
	if err != nil {
		return err
	}

	bd := &binding{proxy: proxy}
	opts := b.config.TCP
	opts.Reachable = true
	for _, ep := range endpoints {
		f := transport.NewTCPFactory(svc.InstanceName+"@"+ep, ep, svc.Priority, opts)
		bd.factories = append(bd.factories, f)
		bd.handles = append(bd.handles, proxy.AddPort(f))
		if b.config.Prober != nil {
			b.config.Prober.Add(f, proxy.NotifyReachabilityChanged)
		}
	}
	b.bound[svc.InstanceName] = bd

	b.logger.Info("service bound",
		"instance", svc.InstanceName,
		"device", svc.DeviceID,
		"endpoints", endpoints)
	return nil
}

// proxyFor returns the cached proxy for svc or creates one. Called with b.mu held.
func (b *Binder) proxyFor(svc *Service) (*device.Proxy, error) {
	if p, ok := b.config.Cache.Lookup(svc.DeviceID); ok {
		return p, nil
	}
	p := b.config.NewProxy(svc)
	if p == nil {
		return nil, fmt.Errorf("no proxy for device %s", svc.DeviceID)
	}
	if err := b.config.Cache.Add(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Remove unbinds the service's port factories. Unknown services are ignored.
func (b *Binder) Remove(svc *Service) {
	b.mu.Lock()
	bd, ok := b.bound[svc.InstanceName]
	delete(b.bound, svc.InstanceName)
	b.mu.Unlock()

	if !ok {
		return
	}
	for i, h := range bd.handles {
		if b.config.Prober != nil {
			b.config.Prober.Remove(bd.factories[i])
		}
		bd.proxy.RemovePort(h)
	}
	b.logger.Info("service unbound", "instance", svc.InstanceName, "device", bd.proxy.Identifier())
}

// Bound returns the number of bound service instances.
func (b *Binder) Bound() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.bound)
}
