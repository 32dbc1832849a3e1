package workload

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/loop/async"
	"github.com/kbukum/loop/errors"
	"github.com/kbukum/loop/logger"
	"github.com/kbukum/loop/observability"
	"github.com/kbukum/loop/parallel"
	"github.com/kbukum/loop/result"
	"github.com/kbukum/loop/workers"
)

// Runner executes specs on one of the pool variants.
type Runner struct {
	Pool    workers.Config
	Metrics *observability.PoolMetrics
	Log     *logger.Logger
	// Tracing wraps async runs in a span.
	Tracing bool
}

// Run maps spec.Count items and returns what it observed. ctx bounds async
// runs. Blocking runs always drain their input.
func (r Runner) Run(ctx context.Context, spec Spec) (Report, error) {
	spec.ApplyDefaults()
	if err := spec.Validate(); err != nil {
		return Report{}, err
	}
	if err := r.Pool.Validate(); err != nil {
		return Report{}, err
	}
	log := r.Log
	if log == nil {
		log = logger.Get("workload")
	}

	n, _ := r.Pool.Resolved()
	probe := NewProbe()
	started := time.Now()

	var (
		results []result.Result[int]
		err     error
	)
	switch spec.Mode {
	case observability.ModeBlocking:
		mapFn := result.TryWith(func(item int, p *Probe) (int, error) {
			return spec.Map(context.Background(), item, p)
		})
		results = parallel.Collect(parallel.ParallelizeWith(spec.Items(), mapFn, probe,
			parallel.WithConfig(r.Pool),
			parallel.WithLogger(log),
			parallel.WithMetrics(r.Metrics),
		))
	case observability.ModeAsync:
		opts := []async.Option{
			async.WithConfig(r.Pool),
			async.WithLogger(log),
			async.WithMetrics(r.Metrics),
		}
		if r.Tracing {
			opts = append(opts, async.WithTracing(""))
		}
		results, err = async.Collect(ctx, async.ParallelizeWith(ctx, spec.Items(), result.TryContextWith(spec.Map), probe, opts...))
	default:
		return Report{}, errors.Internal(fmt.Errorf("unknown mode %q", spec.Mode))
	}

	values, failures := result.Partition(results)
	report := Report{
		Mode:     spec.Mode,
		Items:    spec.Count,
		Results:  len(results),
		Failed:   len(failures),
		Distinct: distinct(values),
		Workers:  n,
		Peak:     probe.Peak(),
		Elapsed:  time.Since(started),
	}
	log.Info("workload finished", logger.Fields(
		logger.FieldMode, report.Mode,
		logger.FieldWorkers, report.Workers,
		logger.FieldMapped, report.Results,
		logger.FieldDuration, report.Elapsed.Milliseconds(),
	))
	return report, err
}
