// Package result carries per-item success or failure through a pool. The
// pool never inspects mapped values, so a mapping function that can fail
// returns a Result and the caller sorts the outcomes once they arrive.
package result

import (
	"context"
	"fmt"
)

// Result is either a value or an error.
type Result[T any] struct {
	value T
	err   error
	ok    bool
}

// Ok returns a successful result holding v.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v, ok: true}
}

// Fail returns a failed result. A nil err is replaced so that a failed
// result always reports an error.
func Fail[T any](err error) Result[T] {
	if err == nil {
		err = fmt.Errorf("result: failed without an error")
	}
	return Result[T]{err: err}
}

// IsOk reports whether r holds a value rather than an error.
func (r Result[T]) IsOk() bool { return r.ok }

// Value returns the held value, or the zero value for a failed result.
func (r Result[T]) Value() T { return r.value }

// Err returns the failure, or nil for a successful result.
func (r Result[T]) Err() error { return r.err }

// Unwrap returns the value and error as a conventional pair.
func (r Result[T]) Unwrap() (T, error) {
	return r.value, r.err
}

// Try adapts a fallible function to the mapping signature of parallel.Parallelize.
func Try[I, O any](fn func(I) (O, error)) func(I) Result[O] {
	return func(in I) Result[O] {
		out, err := fn(in)
		if err != nil {
			return Fail[O](err)
		}
		return Ok(out)
	}
}

// TryWith is Try for mapping functions that take a shared context value.
func TryWith[I, C, O any](fn func(I, C) (O, error)) func(I, C) Result[O] {
	return func(in I, c C) Result[O] {
		out, err := fn(in, c)
		if err != nil {
			return Fail[O](err)
		}
		return Ok(out)
	}
}

// TryContext adapts a fallible function to the mapping signature of async.Parallelize.
func TryContext[I, O any](fn func(context.Context, I) (O, error)) func(context.Context, I) Result[O] {
	return func(ctx context.Context, in I) Result[O] {
		out, err := fn(ctx, in)
		if err != nil {
			return Fail[O](err)
		}
		return Ok(out)
	}
}

// TryContextWith is TryContext for mapping functions that take a shared
// context value, as async.ParallelizeWith expects.
func TryContextWith[I, C, O any](fn func(context.Context, I, C) (O, error)) func(context.Context, I, C) Result[O] {
	return func(ctx context.Context, in I, c C) Result[O] {
		out, err := fn(ctx, in, c)
		if err != nil {
			return Fail[O](err)
		}
		return Ok(out)
	}
}

// Partition splits results into values and errors, keeping arrival order
// within each group.
func Partition[T any](results []Result[T]) ([]T, []error) {
	var values []T
	var errs []error
	for _, r := range results {
		if r.ok {
			values = append(values, r.value)
		} else {
			errs = append(errs, r.err)
		}
	}
	return values, errs
}
