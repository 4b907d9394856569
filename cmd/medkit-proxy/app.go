package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/medkit-core/medkit-go/internal/config"
	"github.com/medkit-core/medkit-go/pkg/connection"
	"github.com/medkit-core/medkit-go/pkg/device"
	"github.com/medkit-core/medkit-go/pkg/discovery"
	"github.com/medkit-core/medkit-go/pkg/identity"
	"github.com/medkit-core/medkit-go/pkg/log"
	"github.com/medkit-core/medkit-go/pkg/port"
	"github.com/medkit-core/medkit-go/pkg/transport"
)

// errShutdown is the close reason given to connections on exit.
var errShutdown = errors.New("proxy shutting down")

// app wires configured and discovered devices into a device cache.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	protoLog  log.Logger
	principal *identity.Principal

	cache     *device.Cache
	values    *valueStore
	factories *connection.Factories
	prober    *transport.Prober

	// roots keeps configured top-level proxies alive; the cache only
	// holds weak references.
	roots []*device.Proxy
}

func newApp(cfg *config.Config, logger *slog.Logger, protoLog log.Logger) (*app, error) {
	a := &app{
		cfg:      cfg,
		logger:   logger,
		protoLog: log.OrNoop(protoLog),
		principal: &identity.Principal{
			Identity:    identity.New(cfg.OTEL.Service, identity.TypeDevice),
			Credentials: identity.CredentialsNull,
		},
		cache:  device.NewCache(logger),
		values: newValueStore(logger),
		prober: transport.NewProber(transport.ProberConfig{
			Interval: cfg.Probe.Interval,
			Timeout:  cfg.Probe.Timeout,
			Logger:   logger,
		}),
	}

	factories, err := connection.NewFactories(connection.NewMessageFactory(0, a.values))
	if err != nil {
		return nil, err
	}
	a.factories = factories

	for _, dc := range cfg.Devices {
		p, err := a.addDevice(dc, nil)
		if err != nil {
			return nil, err
		}
		a.roots = append(a.roots, p)
	}
	return a, nil
}

func (a *app) tcpOptions(reachable bool) transport.TCPOptions {
	return transport.TCPOptions{
		DialTimeout:    a.cfg.Transport.Timeout,
		MaxMessageSize: a.cfg.Transport.MaxFrame,
		Reachable:      reachable,
		Logger:         a.protoLog,
	}
}

func (a *app) newProxy(info device.Info, parent *device.Proxy) *device.Proxy {
	opts := []device.Option{
		device.WithConnectionFactories(a.factories),
		device.WithPrincipal(a.principal),
		device.WithLogger(a.logger),
		device.WithProtocolLogger(a.protoLog),
	}
	if parent != nil {
		opts = append(opts, device.WithParent(parent))
	}
	p := device.NewProxy(info, opts...)
	p.AddObserver(device.ObserverFuncs{
		OnReachabilityChanged: func(p *device.Proxy) {
			a.logger.Info("reachability changed", "device", p.Identifier(), "reachable", p.Reachable())
		},
	})
	return p
}

// addDevice creates the proxy for dc and its children and registers
// their ports with the prober.
func (a *app) addDevice(dc config.DeviceConfig, parent *device.Proxy) (*device.Proxy, error) {
	p := a.newProxy(device.Info{Identifier: dc.ID, Name: dc.Name}, parent)
	if err := a.cache.Add(p); err != nil {
		return nil, fmt.Errorf("device %s: %w", dc.ID, err)
	}

	for _, pc := range dc.Ports {
		f := transport.NewTCPFactory(pc.PortName(), pc.Address, pc.Priority, a.tcpOptions(pc.Reachable))
		a.addPort(p, f)
	}

	for _, child := range dc.Children {
		if _, err := a.addDevice(child, p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (a *app) addPort(p *device.Proxy, f *port.Factory) {
	p.AddPort(f)
	a.prober.Add(f, p.NotifyReachabilityChanged)
}

// run probes ports and, when enabled, binds discovered devices until ctx
// is cancelled.
func (a *app) run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.prober.Run(ctx) })

	if a.cfg.Discovery.Enabled {
		binder := discovery.NewBinder(discovery.BinderConfig{
			Cache: a.cache,
			NewProxy: func(svc *discovery.Service) *device.Proxy {
				return a.newProxy(device.Info{Identifier: svc.DeviceID, Name: svc.Name}, nil)
			},
			Prober: a.prober,
			TCP:    a.tcpOptions(true),
			Logger: a.logger,
		})
		browser := discovery.NewMDNSBrowser(discovery.BrowserConfig{Interface: a.cfg.Discovery.Interface})
		g.Go(func() error { return binder.Run(ctx, browser) })
	}

	return g.Wait()
}

// shutdown closes every open connection, waiting at most timeout.
func (a *app) shutdown(timeout time.Duration) error {
	done := make(chan error, 1)
	a.cache.CloseAll(errShutdown, func(err error) { done <- err })

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("close timed out after %s", timeout)
	}
}
