package async

import (
	"context"
	stderrors "errors"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/kbukum/loop/errors"
	"github.com/kbukum/loop/logger"
	"github.com/kbukum/loop/observability"
	"github.com/kbukum/loop/queue"
	"github.com/kbukum/loop/shared"
)

type pool[I any, C shared.Cloner[C], O any] struct {
	runID   string
	fn      func(context.Context, I, C) O
	log     *logger.Logger
	metrics *observability.PoolMetrics
	started time.Time

	rt    *Runtime
	owned bool
	span  trace.Span

	// lock serializes dequeueing from the forward queue.
	lock  *semaphore.Weighted
	tasks sync.WaitGroup

	enqueued  atomic.Int64
	delivered atomic.Int64
	abandoned atomic.Bool
	// interrupted is set when a task stopped because the runtime context
	// ended rather than because the stream was closed.
	interrupted atomic.Bool
}

func start[I any, C shared.Cloner[C], O any](ctx context.Context, items iter.Seq[I], fn func(context.Context, I, C) O, c C, o *options) *Stream[O] {
	n, capacity := o.resolve()
	runID := uuid.NewString()

	p := &pool[I, C, O]{
		runID:   runID,
		fn:      fn,
		log:     o.log.WithFields(logger.Fields(logger.FieldRunID, runID)),
		metrics: o.metrics,
		started: time.Now(),
		rt:      o.runtime,
		lock:    semaphore.NewWeighted(1),
	}

	if o.span != "" {
		ctx, p.span = observability.StartSpan(ctx, o.span, trace.WithAttributes(
			attribute.String(observability.AttrRunID, runID),
			attribute.String(observability.AttrMode, observability.ModeAsync),
			attribute.Int(observability.AttrWorkers, n),
			attribute.Int(observability.AttrCapacity, capacity),
		))
	}
	if p.rt == nil {
		p.rt = NewRuntime(ctx)
		p.owned = true
	}

	fwdTx, fwdRx := queue.New[I](capacity)
	bwdTx, bwdRx := queue.New[O](capacity)

	p.log.Debug("pool started", logger.Fields(
		logger.FieldMode, observability.ModeAsync,
		logger.FieldWorkers, n,
		logger.FieldCapacity, capacity,
	))

	p.tasks.Add(n + 1)
	for id := range n {
		rx, tx, wc := fwdRx.Clone(), bwdTx.Clone(), c.Clone()
		p.rt.Go(func(ctx context.Context) error {
			defer p.tasks.Done()
			p.work(ctx, id, rx, tx, wc)
			return nil
		})
	}
	fwdRx.Close()
	bwdTx.Close()

	p.rt.Go(func(ctx context.Context) error {
		defer p.tasks.Done()
		p.distribute(ctx, items, fwdTx)
		return nil
	})

	return &Stream[O]{rx: bwdRx, shutdown: p.shutdown}
}

func (p *pool[I, C, O]) distribute(ctx context.Context, items iter.Seq[I], tx *queue.Sender[I]) {
	defer tx.Close()

	for item := range items {
		if err := tx.SendContext(ctx, item); err != nil {
			p.stopped(err)
			fields := logger.ErrorFields(observability.ReasonAbandoned, err)
			fields[logger.FieldSent] = p.enqueued.Load()
			p.log.Debug("distributor stopped", fields)
			return
		}
		p.enqueued.Add(1)
		p.metrics.RecordEnqueued(ctx, observability.ModeAsync)
	}
	p.log.Debug("distributor finished input", logger.Fields(logger.FieldSent, p.enqueued.Load()))
}

func (p *pool[I, C, O]) work(ctx context.Context, id int, rx *queue.Receiver[I], tx *queue.Sender[O], c C) {
	defer rx.Close()
	defer tx.Close()

	p.metrics.RecordWorkerStart(ctx, observability.ModeAsync)
	defer p.metrics.RecordWorkerStop(context.WithoutCancel(ctx), observability.ModeAsync)

	mapCtx := ctx
	if p.span != nil {
		mapCtx = trace.ContextWithSpan(ctx, p.span)
	}

	mapped := 0
	stop := func(msg string, err error) {
		fields := logger.Fields(logger.FieldWorker, id, logger.FieldMapped, mapped)
		if err != nil {
			p.stopped(err)
			fields[logger.FieldError] = err.Error()
		}
		p.log.Debug(msg, fields)
	}

	for {
		if err := p.lock.Acquire(ctx, 1); err != nil {
			stop("worker exited, runtime stopped", err)
			return
		}
		item, ok, err := rx.RecvContext(ctx)
		p.lock.Release(1)
		if err != nil {
			stop("worker exited, runtime stopped", err)
			return
		}
		if !ok {
			stop("worker exited, input drained", nil)
			return
		}

		began := time.Now()
		out := p.fn(mapCtx, item, c.Clone())
		p.metrics.RecordMap(ctx, observability.ModeAsync, time.Since(began))

		if err := tx.SendContext(ctx, out); err != nil {
			stop("worker exited, results abandoned", err)
			return
		}
		mapped++
		p.delivered.Add(1)
		p.metrics.RecordDelivered(ctx, observability.ModeAsync)
	}
}

// stopped records why a task gave up before its input or results ran out.
func (p *pool[I, C, O]) stopped(err error) {
	p.abandoned.Store(true)
	if !stderrors.Is(err, queue.ErrClosed) {
		p.interrupted.Store(true)
	}
}

// shutdown waits for the pool's tasks after the result queue has been
// released, then reports how the run ended. A private runtime is cancelled
// first so that tasks waiting on input do not hold the caller up.
//
// When the runtime context had already ended and cut the run short, the
// returned error is a CANCELLED AppError carrying the context's cause.
func (p *pool[I, C, O]) shutdown() error {
	cause := context.Cause(p.rt.Context())
	if p.owned {
		p.rt.cancel()
	}
	p.tasks.Wait()

	var err error
	if cause != nil && p.interrupted.Load() {
		err = errors.Cancelled("parallelize", cause)
	}

	reason := observability.ReasonDrained
	if p.abandoned.Load() {
		reason = observability.ReasonAbandoned
	}

	ctx := context.Background()
	p.metrics.RecordShutdown(ctx, observability.ModeAsync, reason)
	if p.span != nil {
		p.span.SetAttributes(
			attribute.Int64(observability.AttrEnqueued, p.enqueued.Load()),
			attribute.Int64(observability.AttrDelivered, p.delivered.Load()),
			attribute.String(observability.AttrReason, reason),
		)
		observability.SetSpanError(trace.ContextWithSpan(ctx, p.span), err)
		p.span.End()
	}
	fields := logger.DurationFields(reason, time.Since(p.started))
	if err != nil {
		fields[logger.FieldError] = err.Error()
	}
	p.log.Debug("pool finished", fields)

	if p.owned {
		if rtErr := p.rt.Shutdown(); rtErr != nil && err == nil {
			err = rtErr
		}
	}
	return err
}
