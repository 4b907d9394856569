package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medkit-core/medkit-go/pkg/device"
	"github.com/medkit-core/medkit-go/pkg/transport"
)

func TestTXTRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		info DeviceInfo
	}{
		{name: "id only", info: DeviceInfo{DeviceID: "pump-1"}},
		{name: "all fields", info: DeviceInfo{DeviceID: "pump-1", Protocol: "medkit-cbor/1", Priority: 3, Name: "Infusion Pump"}},
		{name: "negative priority", info: DeviceInfo{DeviceID: "x", Priority: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strs := TXTRecordsToStrings(EncodeTXT(tt.info))
			got, err := DecodeTXT(StringsToTXTRecords(strs))
			require.NoError(t, err)
			assert.Equal(t, tt.info, got)
		})
	}
}

func TestDecodeTXTErrors(t *testing.T) {
	_, err := DecodeTXT(TXTRecordMap{TXTKeyName: "nameless"})
	assert.ErrorIs(t, err, ErrMissingRequired)

	_, err = DecodeTXT(TXTRecordMap{TXTKeyDeviceID: "x", TXTKeyPriority: "high"})
	assert.ErrorIs(t, err, ErrInvalidPriority)
}

func TestStringsToTXTRecords(t *testing.T) {
	txt := StringsToTXTRecords([]string{"id=a=b", "flag", ""})
	assert.Equal(t, TXTRecordMap{"id": "a=b", "flag": ""}, txt)
}

func TestServiceEndpoints(t *testing.T) {
	svc := &Service{Host: "pump.local.", Port: 7400, Addresses: []string{"192.168.1.5", "fe80::1"}}
	assert.Equal(t, []string{"192.168.1.5:7400", "[fe80::1]:7400"}, svc.Endpoints())

	svc.Addresses = nil
	assert.Equal(t, []string{"pump.local.:7400"}, svc.Endpoints())

	svc.Host = ""
	assert.Empty(t, svc.Endpoints())
}

func TestNewService(t *testing.T) {
	svc := newService("pump", "pump.local.", 7400, []string{"id=pump-1", "prio=2"}, []string{"10.0.0.5", "fe80::5"})
	require.NotNil(t, svc)
	assert.Equal(t, "pump", svc.InstanceName)
	assert.Equal(t, "pump-1", svc.DeviceID)
	assert.Equal(t, 2, svc.Priority)
	assert.Equal(t, uint16(7400), svc.Port)
	assert.Equal(t, []string{"10.0.0.5", "fe80::5"}, svc.Addresses)

	assert.Nil(t, newService("anon", "h", 1, []string{"name=no-id"}, nil))
}

func TestAddressAggregation(t *testing.T) {
	merged := mergeAddresses([]string{"a", "b"}, []string{"b", "c"})
	assert.Equal(t, []string{"a", "b", "c"}, merged)

	left := removeAddresses([]string{"10.0.0.1", "10.0.0.2"}, []string{"10.0.0.1"})
	assert.Equal(t, []string{"10.0.0.2"}, left)
}

// fakeBrowser emits services pushed by the test.
type fakeBrowser struct {
	added   chan *Service
	removed chan *Service
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{added: make(chan *Service), removed: make(chan *Service)}
}

func (f *fakeBrowser) Browse(context.Context) (<-chan *Service, <-chan *Service, error) {
	return f.added, f.removed, nil
}

func testService(instance, id string, addrs ...string) *Service {
	return &Service{
		InstanceName: instance,
		Port:         7400,
		Addresses:    addrs,
		DeviceInfo:   DeviceInfo{DeviceID: id},
	}
}

func TestBinderAddRemove(t *testing.T) {
	cache := device.NewCache(nil)
	binder := NewBinder(BinderConfig{Cache: cache})

	var reach []bool
	svc := testService("pump", "pump-1", "10.0.0.5", "192.168.1.5")
	require.NoError(t, binder.Add(svc))

	proxy, ok := cache.Lookup("pump-1")
	require.True(t, ok)
	proxy.AddObserver(device.ObserverFuncs{
		OnReachabilityChanged: func(p *device.Proxy) { reach = append(reach, p.Reachable()) },
	})

	ports := proxy.Ports()
	require.Len(t, ports, 2)
	assert.Equal(t, "10.0.0.5:7400", ports[0].Address())
	assert.True(t, proxy.Reachable())

	// Re-announcing is a no-op.
	require.NoError(t, binder.Add(svc))
	assert.Len(t, proxy.Ports(), 2)
	assert.Equal(t, 1, binder.Bound())

	// Second instance of the same device reuses the proxy.
	require.NoError(t, binder.Add(testService("pump-wifi", "pump-1", "10.0.1.5")))
	assert.Len(t, proxy.Ports(), 3)
	assert.Equal(t, 1, cache.Len())

	binder.Remove(svc)
	assert.Len(t, proxy.Ports(), 1)
	binder.Remove(testService("pump-wifi", "pump-1"))
	assert.Empty(t, proxy.Ports())
	assert.Equal(t, []bool{false}, reach)

	binder.Remove(svc)
	assert.Equal(t, 0, binder.Bound())
}

func TestBinderRejectsServiceWithoutEndpoints(t *testing.T) {
	binder := NewBinder(BinderConfig{Cache: device.NewCache(nil)})
	err := binder.Add(&Service{InstanceName: "ghost", DeviceInfo: DeviceInfo{DeviceID: "ghost"}})
	assert.ErrorIs(t, err, ErrNoEndpoints)
}

func TestBinderRegistersWithProber(t *testing.T) {
	prober := transport.NewProber(transport.ProberConfig{})
	binder := NewBinder(BinderConfig{Cache: device.NewCache(nil), Prober: prober})

	svc := testService("pump", "pump-1", "10.0.0.5", "10.0.0.6")
	require.NoError(t, binder.Add(svc))
	assert.Equal(t, 2, prober.Len())

	binder.Remove(svc)
	assert.Equal(t, 0, prober.Len())
}

func TestBinderRun(t *testing.T) {
	cache := device.NewCache(nil)
	var created []string
	binder := NewBinder(BinderConfig{
		Cache: cache,
		NewProxy: func(svc *Service) *device.Proxy {
			created = append(created, svc.DeviceID)
			return device.NewProxy(device.Info{Identifier: svc.DeviceID, Name: svc.Name})
		},
	})
	browser := newFakeBrowser()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- binder.Run(ctx, browser) }()

	svc := testService("monitor", "monitor-7", "10.0.0.7")
	browser.added <- svc
	browser.added <- &Service{InstanceName: "broken", DeviceInfo: DeviceInfo{DeviceID: "broken"}}
	browser.removed <- svc
	close(browser.added)
	close(browser.removed)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after channels closed")
	}

	assert.Equal(t, []string{"monitor-7"}, created)
	assert.Equal(t, 0, binder.Bound())
	proxy, ok := cache.Lookup("monitor-7")
	require.True(t, ok)
	assert.Empty(t, proxy.Ports())
}
