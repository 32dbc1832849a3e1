package parallel

import (
	"iter"
	"slices"
	"sync/atomic"

	"github.com/kbukum/loop/observability"
	"github.com/kbukum/loop/shared"
)

// noContext stands in for the shared value of pools that take none.
type noContext struct{}

func (noContext) Clone() noContext { return noContext{} }

// Parallelize applies fn to every item on a pool of workers.
func Parallelize[I, O any](items iter.Seq[I], fn func(I) O, opts ...Option) iter.Seq[O] {
	return ParallelizeWith(items, func(item I, _ noContext) O { return fn(item) }, noContext{}, opts...)
}

// ParallelizeWith is Parallelize for mapping functions that need a shared
// value. Each worker clones c once, and each call receives a clone of the
// worker's copy.
func ParallelizeWith[I any, C shared.Cloner[C], O any](items iter.Seq[I], fn func(I, C) O, c C, opts ...Option) iter.Seq[O] {
	o := newOptions(opts)
	var used atomic.Bool

	return func(yield func(O) bool) {
		if !used.CompareAndSwap(false, true) {
			o.log.Warn("result sequence already consumed, yielding nothing")
			return
		}

		p := start(items, fn, c, o)
		reason := observability.ReasonAbandoned
		defer func() { p.finish(reason) }()

		for {
			out, ok := p.results.Recv()
			if !ok {
				reason = observability.ReasonDrained
				return
			}
			if !yield(out) {
				return
			}
		}
	}
}

// Collect ranges over seq and returns every value it yields.
func Collect[O any](seq iter.Seq[O]) []O {
	return slices.Collect(seq)
}
