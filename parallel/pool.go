package parallel

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/loop/logger"
	"github.com/kbukum/loop/observability"
	"github.com/kbukum/loop/queue"
	"github.com/kbukum/loop/shared"
)

// handle records one running goroutine of a pool.
type handle struct {
	name string
	done chan struct{}
}

func (h handle) running() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

type pool[I any, C shared.Cloner[C], O any] struct {
	runID   string
	fn      func(I, C) O
	log     *logger.Logger
	metrics *observability.PoolMetrics
	ctx     context.Context
	started time.Time

	// mu serializes dequeueing from the forward queue.
	mu      sync.Mutex
	results *queue.Receiver[O]
	handles []handle
}

// start spawns the distributor and the workers. The returned pool owns the
// receiving end of the backward queue.
func start[I any, C shared.Cloner[C], O any](items iter.Seq[I], fn func(I, C) O, c C, o *options) *pool[I, C, O] {
	n, capacity := o.resolve()
	runID := uuid.NewString()

	p := &pool[I, C, O]{
		runID:   runID,
		fn:      fn,
		log:     o.log.WithFields(logger.Fields(logger.FieldRunID, runID)),
		metrics: o.metrics,
		ctx:     context.Background(),
		started: time.Now(),
		handles: make([]handle, 0, n+1),
	}

	fwdTx, fwdRx := queue.New[I](capacity)
	bwdTx, bwdRx := queue.New[O](capacity)
	p.results = bwdRx

	p.log.Debug("pool started", logger.Fields(
		logger.FieldMode, observability.ModeBlocking,
		logger.FieldWorkers, n,
		logger.FieldCapacity, capacity,
	))

	for id := range n {
		h := handle{name: fmt.Sprintf("worker-%d", id), done: make(chan struct{})}
		p.handles = append(p.handles, h)
		go p.work(id, fwdRx.Clone(), bwdTx.Clone(), c.Clone(), h.done)
	}
	fwdRx.Close()
	bwdTx.Close()

	h := handle{name: "distributor", done: make(chan struct{})}
	p.handles = append(p.handles, h)
	go p.distribute(items, fwdTx, h.done)

	return p
}

func (p *pool[I, C, O]) distribute(items iter.Seq[I], tx *queue.Sender[I], done chan struct{}) {
	defer close(done)
	defer tx.Close()

	sent := 0
	for item := range items {
		if err := tx.Send(item); err != nil {
			p.log.Debug("distributor stopped, no workers left", logger.Fields(logger.FieldSent, sent))
			return
		}
		sent++
		p.metrics.RecordEnqueued(p.ctx, observability.ModeBlocking)
	}
	p.log.Debug("distributor finished input", logger.Fields(logger.FieldSent, sent))
}

func (p *pool[I, C, O]) work(id int, rx *queue.Receiver[I], tx *queue.Sender[O], c C, done chan struct{}) {
	defer close(done)
	defer rx.Close()
	defer tx.Close()

	p.metrics.RecordWorkerStart(p.ctx, observability.ModeBlocking)
	defer p.metrics.RecordWorkerStop(p.ctx, observability.ModeBlocking)

	mapped := 0
	for {
		p.mu.Lock()
		item, ok := rx.Recv()
		p.mu.Unlock()
		if !ok {
			p.log.Debug("worker exited, input drained", logger.Fields(
				logger.FieldWorker, id,
				logger.FieldMapped, mapped,
			))
			return
		}

		began := time.Now()
		out := p.fn(item, c.Clone())
		p.metrics.RecordMap(p.ctx, observability.ModeBlocking, time.Since(began))

		if err := tx.Send(out); err != nil {
			p.log.Debug("worker exited, results abandoned", logger.Fields(
				logger.FieldWorker, id,
				logger.FieldMapped, mapped,
			))
			return
		}
		mapped++
		p.metrics.RecordDelivered(p.ctx, observability.ModeBlocking)
	}
}

// finish releases the backward queue. Workers and the distributor observe
// the closure on their next queue operation and exit on their own.
func (p *pool[I, C, O]) finish(reason string) {
	p.results.Close()

	var running []string
	for _, h := range p.handles {
		if h.running() {
			running = append(running, h.name)
		}
	}

	p.metrics.RecordShutdown(p.ctx, observability.ModeBlocking, reason)
	fields := logger.DurationFields(reason, time.Since(p.started))
	if len(running) > 0 {
		fields["running"] = running
	}
	p.log.Debug("pool finished", fields)
}
