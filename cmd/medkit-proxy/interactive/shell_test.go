package interactive

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medkit-core/medkit-go/pkg/connection"
	"github.com/medkit-core/medkit-go/pkg/device"
	"github.com/medkit-core/medkit-go/pkg/port/porttest"
	"github.com/medkit-core/medkit-go/pkg/resource"
	"github.com/medkit-core/medkit-go/pkg/wire"
)

type memValues struct {
	values map[string]*resource.Cache
}

func newMemValues() *memValues {
	return &memValues{values: make(map[string]*resource.Cache)}
}

func (m *memValues) Get(id, res string) (*resource.Cache, bool) {
	c, ok := m.values[id+"/"+res]
	return c, ok
}

func (m *memValues) Set(id, res string, value wire.RawValue, at time.Time) *resource.Cache {
	c := resource.New(value, at)
	m.values[id+"/"+res] = c
	return c
}

func (m *memValues) Resources(id string) []string {
	var names []string
	for k := range m.values {
		if len(k) > len(id) && k[:len(id)+1] == id+"/" {
			names = append(names, k[len(id)+1:])
		}
	}
	return names
}

type fixture struct {
	shell  *Shell
	out    *bytes.Buffer
	cache  *device.Cache
	values *memValues
	proxy  *device.Proxy
	port   *porttest.Port
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	factories, err := connection.NewFactories(connection.NewMessageFactory(0, nil))
	require.NoError(t, err)

	cache := device.NewCache(nil)
	p := device.NewProxy(device.Info{Identifier: "pump-1", Name: "Pump"},
		device.WithConnectionFactories(factories))
	require.NoError(t, cache.Add(p))

	pt := porttest.New()
	p.AddPort(porttest.Factory("mem", 1, true, pt))

	out := &bytes.Buffer{}
	values := newMemValues()
	return &fixture{
		shell:  newShell(cache, values, out),
		out:    out,
		cache:  cache,
		values: values,
		proxy:  p,
		port:   pt,
	}
}

func (f *fixture) exec(t *testing.T, line string) string {
	t.Helper()
	f.out.Reset()
	require.True(t, f.shell.Exec(line))
	return f.out.String()
}

func TestShellDevicesAndPorts(t *testing.T) {
	f := newFixture(t)

	out := f.exec(t, "devices")
	assert.Contains(t, out, "Devices (1)")
	assert.Contains(t, out, "Pump (pump-1)")
	assert.Contains(t, out, "Ports: 1  Reachable: true  Open: false")

	out = f.exec(t, "ports pump-1")
	assert.Contains(t, out, "mem")
	assert.Contains(t, out, "priority=1 reachable=true")

	assert.Contains(t, f.exec(t, "ports"), "Usage: ports <device-id>")
	assert.Contains(t, f.exec(t, "ports nope"), "Unknown device: nope")
}

func TestShellOpenClose(t *testing.T) {
	f := newFixture(t)

	out := f.exec(t, "open pump-1")
	assert.Contains(t, out, "Opened pump-1 ("+connection.MessageProtocol)
	require.NotNil(t, f.proxy.Connection())

	out = f.exec(t, "close pump-1")
	assert.Contains(t, out, "Closed pump-1")
	assert.Nil(t, f.proxy.Connection())
}

func TestShellOpenFailure(t *testing.T) {
	f := newFixture(t)
	f.port.StartErr = assert.AnError

	out := f.exec(t, "open pump-1")
	assert.Contains(t, out, "Open failed")
}

func TestShellOpenTimeout(t *testing.T) {
	f := newFixture(t)
	f.port.Manual = true
	f.shell.Timeout = 10 * time.Millisecond

	assert.Contains(t, f.exec(t, "open pump-1"), "Still opening...")
	f.port.CompleteStart()
}

func TestShellRequestAndSet(t *testing.T) {
	f := newFixture(t)

	assert.Contains(t, f.exec(t, "request pump-1 rate"), "is not open")

	f.exec(t, "open pump-1")
	assert.Contains(t, f.exec(t, "request pump-1 rate"), "Requested rate")
	assert.Contains(t, f.exec(t, "set pump-1 rate 12.5"), "Set rate = 12.5")

	sent := f.port.Sent()
	require.Len(t, sent, 2)

	req, err := wire.DecodeMessage(sent[0])
	require.NoError(t, err)
	assert.Equal(t, wire.KindRequest, req.Kind)
	assert.Equal(t, "rate", req.Resource)

	upd, err := wire.DecodeMessage(sent[1])
	require.NoError(t, err)
	assert.Equal(t, wire.KindUpdate, upd.Kind)
	var v float64
	require.NoError(t, wire.DecodeValue(upd.Value, &v))
	assert.Equal(t, 12.5, v)

	out := f.exec(t, "values pump-1")
	assert.Contains(t, out, "rate")
	assert.Contains(t, out, "12.5")
}

func TestShellValuesEmpty(t *testing.T) {
	f := newFixture(t)
	assert.Contains(t, f.exec(t, "values pump-1"), "No cached values")
}

func TestShellUnknownAndQuit(t *testing.T) {
	f := newFixture(t)

	assert.Contains(t, f.exec(t, "frobnicate"), "Unknown command: frobnicate")
	assert.Empty(t, f.exec(t, "   "))
	assert.False(t, f.shell.Exec("quit"))
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, int64(7), parseValue("7"))
	assert.Equal(t, 1.5, parseValue("1.5"))
	assert.Equal(t, true, parseValue("true"))
	assert.Equal(t, "hello world", parseValue("hello world"))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "<none>", formatValue(nil))

	raw, err := wire.EncodeValue("ok")
	require.NoError(t, err)
	assert.Equal(t, "ok", formatValue(raw))
}
