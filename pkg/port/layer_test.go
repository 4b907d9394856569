package port_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medkit-core/medkit-go/pkg/port"
	"github.com/medkit-core/medkit-go/pkg/port/porttest"
)

// upperCodec upper-cases outbound data and splits inbound data on '|'.
type upperCodec struct {
	failDecode error
}

func (upperCodec) Encode(data []byte) ([]byte, error) {
	return bytes.ToUpper(data), nil
}

func (c upperCodec) Decode(data []byte) ([][]byte, error) {
	if c.failDecode != nil {
		return nil, c.failDecode
	}
	return bytes.Split(data, []byte("|")), nil
}

func TestLayerStartPropagatesDownAndUp(t *testing.T) {
	base := porttest.New()
	base.Manual = true
	layer := port.NewLayer(base, nil)
	rec := &porttest.Recorder{}
	layer.SetDelegate(rec)

	layer.Start()
	assert.Equal(t, 1, base.Starts())
	assert.Equal(t, 0, rec.Started())

	base.CompleteStart()
	assert.Equal(t, 1, rec.Started())
	assert.Equal(t, port.StateStarted, layer.State())
}

func TestLayerTransformsData(t *testing.T) {
	base := porttest.New()
	layer := port.NewLayer(base, upperCodec{})
	rec := &porttest.Recorder{}
	layer.SetDelegate(rec)

	layer.Send([]byte("dropped"))
	layer.Start()
	layer.Send([]byte("abc"))
	base.Receive([]byte("x|y"))

	assert.Equal(t, [][]byte{[]byte("ABC")}, base.Sent())
	assert.Equal(t, [][]byte{[]byte("x"), []byte("y")}, rec.Received())
}

func TestLayerStacksCompose(t *testing.T) {
	base := porttest.New()
	inner := port.NewLayer(base, upperCodec{})
	outer := port.NewLayer(inner, nil)
	rec := &porttest.Recorder{}
	outer.SetDelegate(rec)

	outer.Start()
	require.Equal(t, 1, rec.Started())

	outer.Send([]byte("hi"))
	assert.Equal(t, [][]byte{[]byte("HI")}, base.Sent())

	outer.Shutdown(nil)
	assert.Equal(t, []error{nil}, base.Shutdowns())
	assert.Equal(t, []error{nil}, rec.Closes())
	assert.Equal(t, port.StateShutdown, outer.State())
}

func TestLayerDecodeErrorShutsDownChild(t *testing.T) {
	boom := errors.New("bad frame")
	base := porttest.New()
	layer := port.NewLayer(base, upperCodec{failDecode: boom})
	rec := &porttest.Recorder{}
	layer.SetDelegate(rec)

	layer.Start()
	base.Receive([]byte("junk"))

	assert.Equal(t, []error{boom}, base.Shutdowns())
	assert.Equal(t, []error{boom}, rec.Closes())
	assert.Empty(t, rec.Received())
}

func TestLayerCloseForwardedOnce(t *testing.T) {
	base := porttest.New()
	layer := port.NewLayer(base, nil)
	rec := &porttest.Recorder{}
	layer.SetDelegate(rec)

	layer.Start()
	reason := errors.New("remote reset")
	base.Close(reason)
	layer.PortDidClose(base, nil)

	assert.Equal(t, []error{reason}, rec.Closes())
}

func TestLayerWithoutChild(t *testing.T) {
	layer := port.NewLayer(nil, nil)
	rec := &porttest.Recorder{}
	layer.SetDelegate(rec)

	layer.Start()
	assert.Equal(t, []error{port.ErrNoChild}, rec.Closes())
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state port.State
		want  string
	}{
		{port.StateIdle, "IDLE"},
		{port.StateStarted, "STARTED"},
		{port.StateShutdown, "SHUTDOWN"},
		{port.State(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}
