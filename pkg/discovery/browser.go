package discovery

import "context"

// Browser provides mDNS service browsing.
type Browser interface {
	// Browse searches for medkit services. Both channels are closed when the
	// context is cancelled or browsing completes.
	Browse(ctx context.Context) (added, removed <-chan *Service, err error)
}

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string
}

// AdvertiserConfig configures service advertisement.
type AdvertiserConfig struct {
	// Interface specifies which network interface to advertise on.
	// Empty string means all interfaces.
	Interface string

	// TTL overrides the record TTL in seconds. Zero keeps the default.
	TTL uint32
}
