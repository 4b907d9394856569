package device

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medkit-core/medkit-go/pkg/port/porttest"
)

func TestCacheAddLookup(t *testing.T) {
	c := NewCache(nil)
	b := NewProxy(Info{Identifier: "b"})
	a := NewProxy(Info{Identifier: "a"})

	require.NoError(t, c.Add(b))
	require.NoError(t, c.Add(a))
	require.NoError(t, c.Add(a), "re-adding the same proxy is allowed")

	got, ok := c.Lookup("a")
	require.True(t, ok)
	assert.Same(t, a, got)

	_, ok = c.Lookup("missing")
	assert.False(t, ok)

	assert.Equal(t, []*Proxy{a, b}, c.Devices())

	err := c.Add(NewProxy(Info{Identifier: "a"}))
	assert.ErrorIs(t, err, ErrDuplicateDevice)

	assert.ErrorIs(t, c.Add(NewProxy(Info{})), ErrNoIdentifier)
}

func TestCacheRemoveDevice(t *testing.T) {
	c := NewCache(nil)
	p := NewProxy(Info{Identifier: "dev"})
	require.NoError(t, c.Add(p))

	c.RemoveDevice("dev")
	c.RemoveDevice("dev")
	c.RemoveDevice("never-added")
	assert.Equal(t, 0, c.Len())
}

func TestCacheDestroyDeregisters(t *testing.T) {
	c := NewCache(nil)
	p := NewProxy(Info{Identifier: "dev"})
	require.NoError(t, c.Add(p))

	p.Destroy()
	_, ok := c.Lookup("dev")
	assert.False(t, ok)

	p.Destroy()
	assert.Equal(t, 0, c.Len())

	// A new proxy may take over the identifier.
	require.NoError(t, c.Add(NewProxy(Info{Identifier: "dev"})))
}

func TestCacheDoesNotOwnProxies(t *testing.T) {
	c := NewCache(nil)
	func() {
		require.NoError(t, c.Add(NewProxy(Info{Identifier: "ephemeral"})))
	}()

	require.Eventually(t, func() bool {
		runtime.GC()
		_, ok := c.Lookup("ephemeral")
		return !ok
	}, 5*time.Second, 10*time.Millisecond)
}

func TestCacheCloseAll(t *testing.T) {
	c := NewCache(nil)
	factories := testFactories(t)

	var ports []*porttest.Port
	var proxies []*Proxy
	for _, id := range []string{"a", "b", "c"} {
		pt := porttest.New()
		p := NewProxy(Info{Identifier: id}, WithConnectionFactories(factories))
		p.AddPort(porttest.Factory("lan", 0, true, pt))
		p.Open(func(error) {})
		require.NoError(t, c.Add(p))
		ports = append(ports, pt)
		proxies = append(proxies, p)
	}
	child := NewProxy(Info{Identifier: "a.child"}, WithParent(proxies[0]))
	require.NoError(t, c.Add(child))

	done, doneErrs := completion()
	c.CloseAll(nil, done)
	assert.Equal(t, []error{nil}, doneErrs())
	for _, pt := range ports {
		assert.Len(t, pt.Shutdowns(), 1)
	}
	runtime.KeepAlive(proxies)

	// Empty cache completes immediately.
	done, doneErrs = completion()
	NewCache(nil).CloseAll(nil, done)
	assert.Equal(t, []error{nil}, doneErrs())
}
