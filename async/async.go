package async

import (
	"context"
	"iter"

	"github.com/kbukum/loop/shared"
)

type noContext struct{}

func (noContext) Clone() noContext { return noContext{} }

// Parallelize applies fn to every item on a pool of worker tasks. The pool
// starts immediately. Unless WithRuntime is given it runs on a private
// runtime derived from ctx, which the returned stream shuts down on Close.
func Parallelize[I, O any](ctx context.Context, items iter.Seq[I], fn func(context.Context, I) O, opts ...Option) *Stream[O] {
	return ParallelizeWith(ctx, items, func(ctx context.Context, item I, _ noContext) O {
		return fn(ctx, item)
	}, noContext{}, opts...)
}

// ParallelizeWith is Parallelize for mapping functions that need a shared
// value. Each worker clones c once, and each call receives a clone of the
// worker's copy.
func ParallelizeWith[I any, C shared.Cloner[C], O any](ctx context.Context, items iter.Seq[I], fn func(context.Context, I, C) O, c C, opts ...Option) *Stream[O] {
	return start(ctx, items, fn, c, newOptions(opts))
}
