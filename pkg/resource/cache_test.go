package resource_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medkit-core/medkit-go/pkg/resource"
	"github.com/medkit-core/medkit-go/pkg/wire"
)

func TestCacheEncodeDecode(t *testing.T) {
	value, err := wire.EncodeValue(map[string]any{"systolic": uint64(120)})
	require.NoError(t, err)
	at := time.Date(2026, 5, 6, 7, 8, 9, 101112131, time.UTC)

	data, err := resource.New(value, at).Encode()
	require.NoError(t, err)

	back, err := resource.Decode(data)
	require.NoError(t, err)
	assert.True(t, back.TimeModified().Equal(at))
	assert.Equal(t, value, back.Value())

	var p wire.Profile
	require.NoError(t, wire.Unmarshal(data, &p))
	assert.Contains(t, p, wire.KeyTimeModified)
	assert.Contains(t, p, wire.KeyValue)
}

func TestCacheUpdateFrom(t *testing.T) {
	at := time.Now()
	src := resource.New(wire.RawValue{0x01}, at)
	dst := resource.New(nil, time.Time{})

	dst.UpdateFrom(src)
	assert.Equal(t, wire.RawValue{0x01}, dst.Value())
	assert.True(t, dst.TimeModified().Equal(at))

	dst.UpdateFrom(dst)
	assert.Equal(t, wire.RawValue{0x01}, dst.Value())
}

func TestCacheApply(t *testing.T) {
	base := time.Now()
	c := resource.New(wire.RawValue{0x01}, base)

	older := &wire.Message{Kind: wire.KindUpdate, Resource: "r", Time: base.Add(-time.Second), Value: wire.RawValue{0x02}}
	assert.False(t, c.Apply(older))

	req := &wire.Message{Kind: wire.KindRequest, Resource: "r"}
	assert.False(t, c.Apply(req))

	newer := &wire.Message{Kind: wire.KindUpdate, Resource: "r", Time: base.Add(time.Second), Value: wire.RawValue{0x03}}
	assert.True(t, c.Apply(newer))
	assert.Equal(t, wire.RawValue{0x03}, c.Value())
}
