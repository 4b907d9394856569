package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/medkit-core/medkit-go/pkg/log"
	"github.com/medkit-core/medkit-go/pkg/resource"
	"github.com/medkit-core/medkit-go/pkg/transport"
	"github.com/medkit-core/medkit-go/pkg/wire"
)

// Simulated resources.
const (
	resourceHeartRate = "vitals.heart_rate"
	resourceSpO2      = "vitals.spo2"
	resourceAlarm     = "alarm.limit_high"
)

// simulator serves a set of resources to proxies over framed TCP.
type simulator struct {
	logger   *slog.Logger
	protoLog log.Logger
	deviceID string

	mu        sync.Mutex
	resources map[string]*resource.Cache
	peers     map[*peer]struct{}
}

type peer struct {
	id     string
	conn   net.Conn
	framer *transport.Framer
}

func newSimulator(deviceID string, logger *slog.Logger, protoLog log.Logger) *simulator {
	return &simulator{
		logger:    logger,
		protoLog:  protoLog,
		deviceID:  deviceID,
		resources: make(map[string]*resource.Cache),
		peers:     make(map[*peer]struct{}),
	}
}

// set stores a new value and pushes it to every connected proxy.
func (s *simulator) set(res string, v any, at time.Time) error {
	value, err := wire.EncodeValue(v)
	if err != nil {
		return err
	}
	m := &wire.Message{Kind: wire.KindUpdate, Resource: res, Time: at, Value: value}

	s.mu.Lock()
	cache, ok := s.resources[res]
	if !ok {
		cache = resource.New(nil, time.Time{})
		s.resources[res] = cache
	}
	cache.Apply(m)
	peers := s.peerList()
	s.mu.Unlock()

	data, err := wire.EncodeMessage(m)
	if err != nil {
		return err
	}
	for _, p := range peers {
		if err := p.framer.WriteFrame(data); err != nil {
			s.logger.Debug("push failed", "peer", p.id, "error", err)
		}
	}
	return nil
}

// get returns the cached value of res.
func (s *simulator) get(res string) (*resource.Cache, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.resources[res]
	return c, ok
}

// resourceNames returns the served resources, sorted.
func (s *simulator) resourceNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.resources))
	for name := range s.resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// peerList returns the connected peers. Called with s.mu held.
func (s *simulator) peerList() []*peer {
	peers := make([]*peer, 0, len(s.peers))
	for p := range s.peers {
		peers = append(peers, p)
	}
	return peers
}

func (s *simulator) peerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}

// serve accepts proxies on ln until ctx is cancelled.
func (s *simulator) serve(ctx context.Context, ln net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		_ = ln.Close()
		s.mu.Lock()
		for p := range s.peers {
			_ = p.conn.Close()
		}
		s.mu.Unlock()
		return nil
	})

	g.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("accept: %w", err)
			}
			p := s.addPeer(conn)
			if ctx.Err() != nil {
				_ = conn.Close()
			}
			g.Go(func() error {
				s.handle(p)
				return nil
			})
		}
	})

	return g.Wait()
}

func (s *simulator) addPeer(conn net.Conn) *peer {
	p := &peer{
		id:     uuid.NewString(),
		conn:   conn,
		framer: transport.NewFramer(conn),
	}
	if s.protoLog != nil {
		p.framer.SetLogger(s.protoLog, p.id)
	}

	s.mu.Lock()
	s.peers[p] = struct{}{}
	s.mu.Unlock()

	s.logger.Info("proxy connected", "peer", p.id, "remote", conn.RemoteAddr().String())
	return p
}

func (s *simulator) removePeer(p *peer, err error) {
	s.mu.Lock()
	delete(s.peers, p)
	s.mu.Unlock()
	_ = p.conn.Close()

	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		err = nil
	}
	s.logger.Info("proxy disconnected", "peer", p.id, "error", err)
}

// handle reads messages from p until its connection fails.
func (s *simulator) handle(p *peer) {
	for {
		data, err := p.framer.ReadFrame()
		if err != nil {
			s.removePeer(p, err)
			return
		}

		m, err := wire.DecodeMessage(data)
		if err != nil {
			s.logger.Warn("dropping undecodable message", "peer", p.id, "error", err)
			continue
		}

		switch m.Kind {
		case wire.KindRequest:
			s.reply(p, m.Resource)
		case wire.KindUpdate:
			s.mu.Lock()
			cache, ok := s.resources[m.Resource]
			if !ok {
				cache = resource.New(nil, time.Time{})
				s.resources[m.Resource] = cache
			}
			s.mu.Unlock()
			if cache.Apply(m) {
				s.logger.Info("resource written", "peer", p.id, "resource", m.Resource)
			}
		}
	}
}

func (s *simulator) reply(p *peer, res string) {
	cache, ok := s.get(res)
	if !ok {
		s.logger.Debug("request for unknown resource", "peer", p.id, "resource", res)
		return
	}
	data, err := wire.EncodeMessage(&wire.Message{
		Kind:     wire.KindUpdate,
		Resource: res,
		Time:     cache.TimeModified(),
		Value:    cache.Value(),
	})
	if err != nil {
		s.logger.Warn("encode reply failed", "resource", res, "error", err)
		return
	}
	if err := p.framer.WriteFrame(data); err != nil {
		s.logger.Debug("reply failed", "peer", p.id, "error", err)
	}
}

// simulate produces vital signs every interval until ctx is cancelled.
func (s *simulator) simulate(ctx context.Context, interval time.Duration) error {
	heartRate, spo2 := 72, 98
	if err := s.publishVitals(heartRate, spo2); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			heartRate = clamp(heartRate+rand.IntN(5)-2, 50, 130)
			spo2 = clamp(spo2+rand.IntN(3)-1, 88, 100)
			if err := s.publishVitals(heartRate, spo2); err != nil {
				return err
			}
			s.logger.Debug("vitals", "heart_rate", heartRate, "spo2", spo2)
		}
	}
}

func (s *simulator) publishVitals(heartRate, spo2 int) error {
	now := time.Now()
	if err := s.set(resourceHeartRate, heartRate, now); err != nil {
		return err
	}
	return s.set(resourceSpO2, spo2, now)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
