package testutil

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/kbukum/loop/observability"
)

// MetricRecorder collects pool metrics in memory.
type MetricRecorder struct {
	t       testing.TB
	reader  *sdkmetric.ManualReader
	Metrics *observability.PoolMetrics
}

// NewMetricRecorder creates pool metrics backed by a manual reader. The
// provider is shut down when the test ends.
func NewMetricRecorder(t testing.TB) *MetricRecorder {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := observability.NewPoolMetrics(mp.Meter("testutil"))
	if err != nil {
		t.Fatalf("creating pool metrics: %v", err)
	}
	return &MetricRecorder{t: t, reader: reader, Metrics: m}
}

func (r *MetricRecorder) collect() []metricdata.Metrics {
	r.t.Helper()
	var rm metricdata.ResourceMetrics
	if err := r.reader.Collect(context.Background(), &rm); err != nil {
		r.t.Fatalf("collecting metrics: %v", err)
	}
	var out []metricdata.Metrics
	for _, sm := range rm.ScopeMetrics {
		out = append(out, sm.Metrics...)
	}
	return out
}

// Sum returns the total of an int64 counter or up-down counter across data
// points whose attributes include every given attribute.
func (r *MetricRecorder) Sum(name string, attrs ...attribute.KeyValue) int64 {
	r.t.Helper()
	var total int64
	for _, m := range r.collect() {
		if m.Name != name {
			continue
		}
		sum, ok := m.Data.(metricdata.Sum[int64])
		if !ok {
			r.t.Fatalf("metric %s is %T, not an int64 sum", name, m.Data)
		}
		for _, dp := range sum.DataPoints {
			if hasAll(dp.Attributes, attrs) {
				total += dp.Value
			}
		}
	}
	return total
}

// Count returns the number of recordings of a float64 histogram.
func (r *MetricRecorder) Count(name string, attrs ...attribute.KeyValue) uint64 {
	r.t.Helper()
	var total uint64
	for _, m := range r.collect() {
		if m.Name != name {
			continue
		}
		hist, ok := m.Data.(metricdata.Histogram[float64])
		if !ok {
			r.t.Fatalf("metric %s is %T, not a float64 histogram", name, m.Data)
		}
		for _, dp := range hist.DataPoints {
			if hasAll(dp.Attributes, attrs) {
				total += dp.Count
			}
		}
	}
	return total
}

func hasAll(set attribute.Set, attrs []attribute.KeyValue) bool {
	for _, kv := range attrs {
		v, ok := set.Value(kv.Key)
		if !ok || v != kv.Value {
			return false
		}
	}
	return true
}
