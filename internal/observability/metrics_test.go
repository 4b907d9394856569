package observability_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/medkit-core/medkit-go/internal/observability"
)

func TestInitMetrics_NoEndpoint(t *testing.T) {
	prev := otel.GetMeterProvider()
	t.Cleanup(func() { otel.SetMeterProvider(prev) })

	reader := sdkmetric.NewManualReader()
	mp, err := observability.InitMetrics(context.Background(), observability.MetricsConfig{
		ServiceName:    "medkit-proxy",
		ServiceVersion: "test",
		Environment:    "test",
		Readers:        []sdkmetric.Reader{reader},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	counter, err := otel.Meter("test").Int64Counter("medkit.test")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	sum, ok := rm.ScopeMetrics[0].Metrics[0].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)
	assert.Same(t, mp.MeterProvider(), otel.GetMeterProvider())
}

func TestMetricsProvider_Shutdown(t *testing.T) {
	var nilProvider *observability.MetricsProvider
	assert.NoError(t, nilProvider.Shutdown(context.Background()))

	prev := otel.GetMeterProvider()
	t.Cleanup(func() { otel.SetMeterProvider(prev) })

	mp, err := observability.InitMetrics(context.Background(), observability.MetricsConfig{ServiceName: "x"})
	require.NoError(t, err)
	assert.NoError(t, mp.Shutdown(context.Background()))
}
