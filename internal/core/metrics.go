package core

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/giantswarm/procpool"

// poolMetrics mirrors the Started and LRUStopped counters as otel
// instruments so they can be exported alongside the test run's telemetry.
type poolMetrics struct {
	started    metric.Int64Counter
	lruStopped metric.Int64Counter
}

// newPoolMetrics creates the pool instruments. If the provider rejects an
// instrument, the failure is logged and no-op instruments are used.
func newPoolMetrics(mp metric.MeterProvider, log *slog.Logger) *poolMetrics {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	m, err := buildPoolMetrics(mp.Meter(meterName))
	if err != nil {
		log.Warn("create pool metrics, falling back to no-op", "error", err)
		m, _ = buildPoolMetrics(noop.NewMeterProvider().Meter(meterName))
	}
	return m
}

func buildPoolMetrics(meter metric.Meter) (*poolMetrics, error) {
	started, err := meter.Int64Counter(
		"procpool.instance.started",
		metric.WithDescription("Number of instance starts"),
		metric.WithUnit("{start}"),
	)
	if err != nil {
		return nil, err
	}

	lruStopped, err := meter.Int64Counter(
		"procpool.instance.lru_stopped",
		metric.WithDescription("Number of instances stopped by eviction"),
		metric.WithUnit("{stop}"),
	)
	if err != nil {
		return nil, err
	}

	return &poolMetrics{started: started, lruStopped: lruStopped}, nil
}

func (m *poolMetrics) recordStart(name string) {
	m.started.Add(context.Background(), 1, metric.WithAttributes(attribute.String("instance.name", name)))
}

func (m *poolMetrics) recordLRUStop(name string) {
	m.lruStopped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("instance.name", name)))
}
