package observability

import (
	"context"
	stderrors "errors"
	"fmt"
)

// Setup initializes the tracer and meter providers described by cfg and
// returns a function that flushes and shuts both down. When telemetry is
// disabled it installs nothing and the returned function is a no-op.
func Setup(ctx context.Context, cfg Config, service, version, environment string) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	cfg.ApplyDefaults()

	tp, err := InitTracer(ctx, cfg.TracerConfig(service, version, environment))
	if err != nil {
		return nil, fmt.Errorf("initializing tracer: %w", err)
	}
	mp, err := InitMeter(ctx, cfg.MeterConfig(service, version, environment))
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("initializing meter: %w", err)
	}

	return func(ctx context.Context) error {
		return stderrors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}
