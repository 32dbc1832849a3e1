package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/loop/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns defaults for local development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider and installs it
// globally. The caller shuts it down on exit.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Pool modes.
const (
	ModeBlocking = "blocking"
	ModeAsync    = "async"
)

// Pool shutdown reasons.
const (
	// ReasonDrained means every item was mapped and delivered.
	ReasonDrained = "drained"
	// ReasonAbandoned means the consumer stopped before the input ran out.
	ReasonAbandoned = "abandoned"
)

// PoolMetrics holds the instruments a worker pool reports to. All methods
// are safe on a nil receiver, which records nothing.
type PoolMetrics struct {
	enqueued    metric.Int64Counter
	delivered   metric.Int64Counter
	active      metric.Int64UpDownCounter
	mapDuration metric.Float64Histogram
	shutdown    metric.Int64Counter
}

// NewPoolMetrics creates pool instruments on the given meter.
func NewPoolMetrics(meter metric.Meter) (*PoolMetrics, error) {
	enqueued, err := meter.Int64Counter("loop.items.enqueued",
		metric.WithDescription("Items handed to the forward queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating loop.items.enqueued counter: %w", err)
	}

	delivered, err := meter.Int64Counter("loop.results.delivered",
		metric.WithDescription("Results handed to the backward queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating loop.results.delivered counter: %w", err)
	}

	active, err := meter.Int64UpDownCounter("loop.workers.active",
		metric.WithDescription("Number of running workers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating loop.workers.active gauge: %w", err)
	}

	mapDuration, err := meter.Float64Histogram("loop.map.duration",
		metric.WithDescription("Duration of a single mapping call in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating loop.map.duration histogram: %w", err)
	}

	shutdown, err := meter.Int64Counter("loop.pool.shutdown",
		metric.WithDescription("Pool runs that finished, by reason"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating loop.pool.shutdown counter: %w", err)
	}

	return &PoolMetrics{
		enqueued:    enqueued,
		delivered:   delivered,
		active:      active,
		mapDuration: mapDuration,
		shutdown:    shutdown,
	}, nil
}

func modeAttr(mode string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String(AttrMode, mode))
}

// RecordEnqueued counts one item accepted by the forward queue.
func (m *PoolMetrics) RecordEnqueued(ctx context.Context, mode string) {
	if m == nil {
		return
	}
	m.enqueued.Add(ctx, 1, modeAttr(mode))
}

// RecordDelivered counts one result accepted by the backward queue.
func (m *PoolMetrics) RecordDelivered(ctx context.Context, mode string) {
	if m == nil {
		return
	}
	m.delivered.Add(ctx, 1, modeAttr(mode))
}

// RecordWorkerStart increments the active worker count.
func (m *PoolMetrics) RecordWorkerStart(ctx context.Context, mode string) {
	if m == nil {
		return
	}
	m.active.Add(ctx, 1, modeAttr(mode))
}

// RecordWorkerStop decrements the active worker count.
func (m *PoolMetrics) RecordWorkerStop(ctx context.Context, mode string) {
	if m == nil {
		return
	}
	m.active.Add(ctx, -1, modeAttr(mode))
}

// RecordMap records the duration of one mapping call.
func (m *PoolMetrics) RecordMap(ctx context.Context, mode string, d time.Duration) {
	if m == nil {
		return
	}
	m.mapDuration.Record(ctx, d.Seconds(), modeAttr(mode))
}

// RecordShutdown counts a finished pool run.
func (m *PoolMetrics) RecordShutdown(ctx context.Context, mode, reason string) {
	if m == nil {
		return
	}
	m.shutdown.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrMode, mode),
		attribute.String(AttrReason, reason),
	))
}
