package main

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/medkit-core/medkit-go/pkg/connection"
	"github.com/medkit-core/medkit-go/pkg/resource"
	"github.com/medkit-core/medkit-go/pkg/wire"
)

// valueStore keeps the last known resource values per device. It handles
// the messages of every medkit-cbor connection the proxy opens.
type valueStore struct {
	logger *slog.Logger

	mu     sync.RWMutex
	values map[string]map[string]*resource.Cache
}

func newValueStore(logger *slog.Logger) *valueStore {
	return &valueStore{
		logger: logger,
		values: make(map[string]map[string]*resource.Cache),
	}
}

// HandleMessage implements connection.MessageHandler.
func (s *valueStore) HandleMessage(c *connection.Connection, m *wire.Message) {
	id := c.Device().Identifier()

	switch m.Kind {
	case wire.KindUpdate:
		cache := s.cacheFor(id, m.Resource)
		if cache.Apply(m) {
			s.logger.Debug("resource updated", "device", id, "resource", m.Resource)
		}

	case wire.KindRequest:
		cache, ok := s.Get(id, m.Resource)
		if !ok {
			s.logger.Debug("request for unknown resource", "device", id, "resource", m.Resource)
			return
		}
		reply := &wire.Message{
			Kind:     wire.KindUpdate,
			Resource: m.Resource,
			Time:     cache.TimeModified(),
			Value:    cache.Value(),
		}
		if err := connection.SendMessage(c, reply); err != nil {
			s.logger.Warn("reply failed", "device", id, "resource", m.Resource, "error", err)
		}
	}
}

func (s *valueStore) cacheFor(id, res string) *resource.Cache {
	s.mu.Lock()
	defer s.mu.Unlock()

	byRes, ok := s.values[id]
	if !ok {
		byRes = make(map[string]*resource.Cache)
		s.values[id] = byRes
	}
	cache, ok := byRes[res]
	if !ok {
		cache = resource.New(nil, time.Time{})
		byRes[res] = cache
	}
	return cache
}

// Get returns the cached value of a device resource.
func (s *valueStore) Get(id, res string) (*resource.Cache, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cache, ok := s.values[id][res]
	return cache, ok
}

// Set records a locally written value.
func (s *valueStore) Set(id, res string, value wire.RawValue, at time.Time) *resource.Cache {
	cache := s.cacheFor(id, res)
	cache.Update(value, at)
	return cache
}

// Resources returns the names of the cached resources of a device, sorted.
func (s *valueStore) Resources(id string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.values[id]))
	for name := range s.values[id] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var _ connection.MessageHandler = (*valueStore)(nil)
