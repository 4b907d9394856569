package device

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"strings"
	"sync"
	"weak"

	"github.com/medkit-core/medkit-go/pkg/syncgroup"
)

// Cache errors.
var (
	ErrDuplicateDevice = errors.New("device already registered")
	ErrNoIdentifier    = errors.New("device has no identifier")
)

// Cache is a process-wide index of live proxies by identifier.
//
// The cache does not keep proxies alive. An entry disappears when its
// proxy is destroyed or garbage collected.
type Cache struct {
	logger *slog.Logger

	mu      sync.Mutex
	devices map[string]weak.Pointer[Proxy]
}

// NewCache creates an empty cache. A nil logger selects slog.Default().
func NewCache(logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		logger:  logger,
		devices: make(map[string]weak.Pointer[Proxy]),
	}
}

// Add registers p under its identifier. A proxy without a registry of its
// own is attached to the cache, so Destroy removes it again.
func (c *Cache) Add(p *Proxy) error {
	id := p.Identifier()
	if id == "" {
		return ErrNoIdentifier
	}

	c.mu.Lock()
	if wp, ok := c.devices[id]; ok {
		if existing := wp.Value(); existing != nil && existing != p {
			c.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrDuplicateDevice, id)
		}
	}
	wp := weak.Make(p)
	c.devices[id] = wp
	c.mu.Unlock()

	p.setRegistry(c)
	runtime.AddCleanup(p, c.collect, cacheKey{id: id, ptr: wp})
	return nil
}

type cacheKey struct {
	id  string
	ptr weak.Pointer[Proxy]
}

// collect drops an entry whose proxy was garbage collected.
func (c *Cache) collect(key cacheKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if wp, ok := c.devices[key.id]; ok && wp == key.ptr {
		delete(c.devices, key.id)
		c.logger.Debug("device proxy collected", "device", key.id)
	}
}

// Lookup returns the live proxy registered under id.
func (c *Cache) Lookup(id string) (*Proxy, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	wp, ok := c.devices[id]
	if !ok {
		return nil, false
	}
	p := wp.Value()
	if p == nil {
		delete(c.devices, id)
		return nil, false
	}
	return p, true
}

// Devices returns all live proxies ordered by identifier.
func (c *Cache) Devices() []*Proxy {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*Proxy, 0, len(c.devices))
	for id, wp := range c.devices {
		p := wp.Value()
		if p == nil {
			delete(c.devices, id)
			continue
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b *Proxy) int {
		return strings.Compare(a.Identifier(), b.Identifier())
	})
	return out
}

// Len returns the number of entries, including any not yet collected.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.devices)
}

// RemoveDevice implements Registry. Removing an unknown identifier is a
// no-op.
func (c *Cache) RemoveDevice(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.devices, id)
}

// CloseAll closes every live top-level proxy. Children are closed by their
// parents. completion is called once with the first error reported.
func (c *Cache) CloseAll(reason error, completion func(error)) {
	g := syncgroup.New()
	for _, p := range c.Devices() {
		if p.Parent() != nil {
			continue
		}
		g.Incr()
		p.Close(reason, g.Decr)
	}
	g.Close(completion)
}

var _ Registry = (*Cache)(nil)
