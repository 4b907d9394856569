package transport

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medkit-core/medkit-go/pkg/port"
)

func TestProberFlipsReachability(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()

	f := NewTCPFactory("lan", ln.Addr().String(), 0, TCPOptions{})
	prober := NewProber(ProberConfig{Timeout: time.Second})

	var (
		mu      sync.Mutex
		changes []bool
		hooks   atomic.Int32
	)
	prober.OnChange(func(_ *port.Factory, reachable bool) {
		mu.Lock()
		defer mu.Unlock()
		changes = append(changes, reachable)
	})
	prober.Add(f, func() { hooks.Add(1) })
	prober.Add(f, nil)
	assert.Equal(t, 1, prober.Len())

	prober.ProbeOnce(context.Background())
	assert.True(t, f.Reachable())

	// No flip, no notification.
	prober.ProbeOnce(context.Background())

	ln.Close()
	wg.Wait()
	prober.ProbeOnce(context.Background())
	assert.False(t, f.Reachable())

	mu.Lock()
	assert.Equal(t, []bool{true, false}, changes)
	mu.Unlock()
	assert.Equal(t, int32(2), hooks.Load())
}

func TestProberSkipsFactoriesWithoutAddress(t *testing.T) {
	prober := NewProber(ProberConfig{})
	prober.Add(port.NewFactory("ble", 0, nil), nil)
	assert.Equal(t, 0, prober.Len())
}

func TestProberRemove(t *testing.T) {
	var dials atomic.Int32
	prober := NewProber(ProberConfig{
		Dial: func(context.Context, string, string) (net.Conn, error) {
			dials.Add(1)
			return nil, errors.New("unreachable")
		},
	})

	a := NewTCPFactory("a", "10.0.0.1:1", 0, TCPOptions{Reachable: true})
	b := NewTCPFactory("b", "10.0.0.2:1", 0, TCPOptions{Reachable: true})
	prober.Add(a, nil)
	prober.Add(b, nil)
	prober.Remove(a)

	prober.ProbeOnce(context.Background())
	assert.Equal(t, int32(1), dials.Load())
	assert.True(t, a.Reachable())
	assert.False(t, b.Reachable())
}

func TestProberRunStopsOnCancel(t *testing.T) {
	var dials atomic.Int32
	prober := NewProber(ProberConfig{
		Interval: 10 * time.Millisecond,
		Dial: func(context.Context, string, string) (net.Conn, error) {
			dials.Add(1)
			return nil, errors.New("unreachable")
		},
	})
	prober.Add(NewTCPFactory("a", "10.0.0.1:1", 0, TCPOptions{}), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- prober.Run(ctx) }()

	require.Eventually(t, func() bool { return dials.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
