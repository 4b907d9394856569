package transport

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/medkit-core/medkit-go/pkg/port"
)

// Prober defaults.
const (
	// DefaultProbeInterval is the interval between probe rounds.
	DefaultProbeInterval = 10 * time.Second

	// DefaultProbeTimeout bounds a single dial.
	DefaultProbeTimeout = 2 * time.Second

	// DefaultProbeConcurrency limits parallel dials per round.
	DefaultProbeConcurrency = 8
)

// DialFunc dials a network address.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// ProberConfig configures a Prober.
type ProberConfig struct {
	// Interval between probe rounds (default: 10s).
	Interval time.Duration

	// Timeout for a single dial (default: 2s).
	Timeout time.Duration

	// Concurrency limits parallel dials (default: 8).
	Concurrency int

	// Dial overrides the dialer. Defaults to net.Dialer.DialContext.
	Dial DialFunc

	// Logger for probe results. Defaults to slog.Default().
	Logger *slog.Logger
}

type probeTarget struct {
	factory  *port.Factory
	onChange func()
}

// Prober keeps factory reachability current by dialing factory addresses.
type Prober struct {
	config ProberConfig
	logger *slog.Logger

	mu       sync.Mutex
	targets  []probeTarget
	onChange func(f *port.Factory, reachable bool)
}

// NewProber creates a prober.
func NewProber(config ProberConfig) *Prober {
	if config.Interval == 0 {
		config.Interval = DefaultProbeInterval
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultProbeTimeout
	}
	if config.Concurrency == 0 {
		config.Concurrency = DefaultProbeConcurrency
	}
	if config.Dial == nil {
		d := &net.Dialer{}
		config.Dial = d.DialContext
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{config: config, logger: logger}
}

// OnChange sets a callback invoked whenever a probe flips a factory's
// reachability.
func (p *Prober) OnChange(fn func(f *port.Factory, reachable bool)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onChange = fn
}

// Add registers f for probing. onChange, if set, is called after the
// factory's reachability flipped. Factories without an address are ignored.
func (p *Prober) Add(f *port.Factory, onChange func()) {
	if f.Address() == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.targets {
		if t.factory == f {
			return
		}
	}
	p.targets = append(p.targets, probeTarget{factory: f, onChange: onChange})
}

// Remove stops probing f.
func (p *Prober) Remove(f *port.Factory) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, t := range p.targets {
		if t.factory == f {
			p.targets = append(p.targets[:i], p.targets[i+1:]...)
			return
		}
	}
}

// Len returns the number of probed factories.
func (p *Prober) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.targets)
}

// Run probes every interval until ctx is cancelled.
func (p *Prober) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	p.ProbeOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.ProbeOnce(ctx)
		}
	}
}

// ProbeOnce runs a single probe round and returns when every dial finished.
func (p *Prober) ProbeOnce(ctx context.Context) {
	p.mu.Lock()
	targets := append([]probeTarget(nil), p.targets...)
	notify := p.onChange
	p.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Concurrency)
	for _, t := range targets {
		g.Go(func() error {
			reachable := p.probe(gctx, t.factory.Address())
			if gctx.Err() != nil {
				return nil
			}
			if !t.factory.SetReachable(reachable) {
				return nil
			}
			p.logger.Info("port reachability changed",
				"port", t.factory.Name(),
				"address", t.factory.Address(),
				"reachable", reachable)
			if notify != nil {
				notify(t.factory, reachable)
			}
			if t.onChange != nil {
				t.onChange()
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (p *Prober) probe(ctx context.Context, address string) bool {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	conn, err := p.config.Dial(ctx, "tcp", address)
	if err != nil {
		p.logger.Debug("probe failed", "address", address, "error", err)
		return false
	}
	conn.Close()
	return true
}
