package device

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/medkit-core/medkit-go/pkg/device"

// Metric names.
const (
	MetricOpens        = "medkit.proxy.opens"
	MetricOpenFailures = "medkit.proxy.open_failures"
	MetricPorts        = "medkit.proxy.ports"
)

type proxyMetrics struct {
	opens        metric.Int64Counter
	openFailures metric.Int64Counter
	ports        metric.Int64UpDownCounter
	attrs        metric.MeasurementOption
}

func newProxyMetrics(mp metric.MeterProvider, deviceID string) *proxyMetrics {
	meter := mp.Meter(meterName)
	m := &proxyMetrics{
		attrs: metric.WithAttributes(attribute.String("medkit.device.id", deviceID)),
	}

	var err error
	if m.opens, err = meter.Int64Counter(MetricOpens,
		metric.WithDescription("Connections opened by device proxies"),
		metric.WithUnit("{open}")); err != nil {
		m.opens = noop.Int64Counter{}
	}
	if m.openFailures, err = meter.Int64Counter(MetricOpenFailures,
		metric.WithDescription("Failed device proxy open attempts"),
		metric.WithUnit("{open}")); err != nil {
		m.openFailures = noop.Int64Counter{}
	}
	if m.ports, err = meter.Int64UpDownCounter(MetricPorts,
		metric.WithDescription("Port factories registered on device proxies"),
		metric.WithUnit("{port}")); err != nil {
		m.ports = noop.Int64UpDownCounter{}
	}
	return m
}

func (m *proxyMetrics) opened(ctx context.Context, err error) {
	if err != nil {
		m.openFailures.Add(ctx, 1, m.attrs)
		return
	}
	m.opens.Add(ctx, 1, m.attrs)
}

func (m *proxyMetrics) portsChanged(ctx context.Context, delta int64) {
	if delta != 0 {
		m.ports.Add(ctx, delta, m.attrs)
	}
}
