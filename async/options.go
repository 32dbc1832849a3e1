package async

import (
	"github.com/kbukum/loop/logger"
	"github.com/kbukum/loop/observability"
	"github.com/kbukum/loop/workers"
)

// Option configures a pool.
type Option func(*options)

type options struct {
	workers  *int
	capacity *int
	log      *logger.Logger
	metrics  *observability.PoolMetrics
	runtime  *Runtime
	span     string
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logger.Get("async")
	}
	return o
}

func (o *options) resolve() (n, capacity int) {
	n = workers.ResolveWith(o.workers, o.log)
	return n, workers.Capacity(o.capacity, n)
}

// WithWorkers sets the number of workers. Values below 1 are raised to 1.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = &n }
}

// WithCapacity sets the capacity of both queues. The default is the worker
// count.
func WithCapacity(n int) Option {
	return func(o *options) { o.capacity = &n }
}

// WithConfig applies a pool configuration section. Zero fields keep their
// automatic defaults.
func WithConfig(cfg workers.Config) Option {
	return func(o *options) {
		w, c := cfg.Requests()
		if w != nil {
			o.workers = w
		}
		if c != nil {
			o.capacity = c
		}
	}
}

// WithLogger sets the logger for pool lifecycle events.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics reports pool activity to m.
func WithMetrics(m *observability.PoolMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithRuntime runs the pool's tasks on rt instead of a private runtime.
// The pool then stops when rt shuts down, and rt outlives the stream.
func WithRuntime(rt *Runtime) Option {
	return func(o *options) { o.runtime = rt }
}

// WithTracing wraps the run in a span with the given name, or
// observability.SpanParallelize when name is empty.
func WithTracing(name string) Option {
	return func(o *options) {
		if name == "" {
			name = observability.SpanParallelize
		}
		o.span = name
	}
}
