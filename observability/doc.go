// Package observability provides OpenTelemetry tracing and metrics for
// worker pools.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("loopbench"))
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanParallelize)
//	defer span.End()
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("loopbench"))
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewPoolMetrics(observability.Meter("loop"))
//	seq := parallel.Parallelize(items, fn, parallel.WithMetrics(metrics))
//
// Setup wires both providers from a Config and returns a single shutdown
// function.
package observability
