// Package resource keeps the last known value of a device resource together
// with its modification time.
package resource

import (
	"sync"
	"time"

	"github.com/medkit-core/medkit-go/pkg/wire"
)

// Cache holds a cached resource value. It is safe for concurrent use.
type Cache struct {
	mu           sync.RWMutex
	timeModified time.Time
	value        wire.RawValue
}

// profile is the stable key layout of a cache.
type profile struct {
	TimeModified time.Time     `cbor:"timeModified"`
	Value        wire.RawValue `cbor:"value"`
}

// New creates a cache holding value as modified at time at.
func New(value wire.RawValue, at time.Time) *Cache {
	return &Cache{timeModified: at, value: value}
}

// Decode reconstructs a cache from its encoded profile.
func Decode(data []byte) (*Cache, error) {
	var p profile
	if err := wire.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &Cache{timeModified: p.TimeModified, value: p.Value}, nil
}

// Encode encodes the cache with its profile keys.
func (c *Cache) Encode() ([]byte, error) {
	c.mu.RLock()
	p := profile{TimeModified: c.timeModified, Value: c.value}
	c.mu.RUnlock()
	return wire.Marshal(p)
}

// TimeModified returns when the value was last modified.
func (c *Cache) TimeModified() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.timeModified
}

// Value returns the cached encoded value. A nil value means none is cached.
func (c *Cache) Value() wire.RawValue {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Update replaces the value.
func (c *Cache) Update(value wire.RawValue, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeModified = at
	c.value = value
}

// UpdateFrom copies the value and modification time of other.
func (c *Cache) UpdateFrom(other *Cache) {
	if other == c {
		return
	}
	at, value := other.TimeModified(), other.Value()
	c.Update(value, at)
}

// Apply updates the cache from an update message. Messages older than the
// cached value are ignored; Apply reports whether the cache changed.
func (c *Cache) Apply(m *wire.Message) bool {
	if m.Kind != wire.KindUpdate {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if m.Time.Before(c.timeModified) {
		return false
	}
	c.timeModified = m.Time
	c.value = m.Value
	return true
}
