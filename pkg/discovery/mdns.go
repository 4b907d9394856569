package discovery

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/enbility/zeroconf/v3"
)

// MDNSBrowser implements Browser using zeroconf.
type MDNSBrowser struct {
	config BrowserConfig
}

// NewMDNSBrowser creates a new mDNS browser.
func NewMDNSBrowser(config BrowserConfig) *MDNSBrowser {
	return &MDNSBrowser{config: config}
}

// Browse implements Browser.
//
// Services are aggregated by instance name: addresses seen on several
// interfaces are combined into one Service. A service is reported removed
// once its last address disappears.
func (b *MDNSBrowser) Browse(ctx context.Context) (<-chan *Service, <-chan *Service, error) {
	added := make(chan *Service)
	removedOut := make(chan *Service)

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	opts := b.browserOptions()

	go func() {
		defer close(added)
		defer close(removedOut)

		services := make(map[string]*Service)
		emit := func(ch chan<- *Service, svc *Service) bool {
			select {
			case ch <- svc:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				svc := entryToService(entry)
				if svc == nil {
					continue
				}
				if existing, found := services[svc.InstanceName]; found {
					existing.Addresses = mergeAddresses(existing.Addresses, svc.Addresses)
					continue
				}
				services[svc.InstanceName] = svc
				if !emit(added, copyService(svc)) {
					return
				}

			case entry, ok := <-removed:
				if !ok {
					continue
				}
				existing, found := services[entry.Instance]
				if !found {
					continue
				}
				existing.Addresses = removeAddresses(existing.Addresses, entryAddresses(entry))
				if len(existing.Addresses) > 0 {
					continue
				}
				delete(services, entry.Instance)
				if !emit(removedOut, existing) {
					return
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, opts...)
	}()

	return added, removedOut, nil
}

func (b *MDNSBrowser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption
	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}
	return opts
}

// entryToService converts a zeroconf entry.
func entryToService(entry *zeroconf.ServiceEntry) *Service {
	return newService(entry.Instance, entry.HostName, entry.Port, entry.Text, entryAddresses(entry))
}

// newService builds a Service from a resolved record. Records without a
// valid device identifier are ignored.
func newService(instance, host string, port int, text, addrs []string) *Service {
	info, err := DecodeTXT(StringsToTXTRecords(text))
	if err != nil {
		return nil
	}
	return &Service{
		InstanceName: instance,
		Host:         host,
		Port:         uint16(port),
		Addresses:    addrs,
		DeviceInfo:   info,
	}
}

func entryAddresses(entry *zeroconf.ServiceEntry) []string {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}
	return addrs
}

func copyService(s *Service) *Service {
	c := *s
	c.Addresses = append([]string(nil), s.Addresses...)
	return &c
}

// mergeAddresses adds new addresses to existing list, avoiding duplicates.
func mergeAddresses(existing, add []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}
	for _, addr := range add {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses returns addresses without those in gone.
func removeAddresses(addresses, gone []string) []string {
	toRemove := make(map[string]bool, len(gone))
	for _, addr := range gone {
		toRemove[addr] = true
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}

// MDNSAdvertiser publishes a medkit service using zeroconf.
type MDNSAdvertiser struct {
	config AdvertiserConfig

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewMDNSAdvertiser creates an advertiser.
func NewMDNSAdvertiser(config AdvertiserConfig) *MDNSAdvertiser {
	return &MDNSAdvertiser{config: config}
}

// Advertise starts advertising, replacing any previous advertisement.
func (a *MDNSAdvertiser) Advertise(instance string, port int, info DeviceInfo) error {
	if info.DeviceID == "" {
		return fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyDeviceID)
	}
	if port == 0 {
		port = DefaultPort
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(a.config.TTL))
	}

	server, err := zeroconf.Register(
		instance,
		ServiceType,
		Domain,
		port,
		TXTRecordsToStrings(EncodeTXT(info)),
		a.interfaces(),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}
	a.server = server
	return nil
}

// Stop stops advertising.
func (a *MDNSAdvertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// interfaces returns the interfaces to advertise on; nil means all.
func (a *MDNSAdvertiser) interfaces() []net.Interface {
	if a.config.Interface == "" {
		return nil
	}
	iface, err := net.InterfaceByName(a.config.Interface)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

var _ Browser = (*MDNSBrowser)(nil)
