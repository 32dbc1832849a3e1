// Package shared provides the cloning contract for values handed to every
// worker of a pool, and a stock reference-style handle that satisfies it.
package shared

import "sync/atomic"

// Cloner is implemented by values that can hand out a cheap duplicate of
// themselves. Each worker clones the pool's value once, and every mapping
// call receives a further clone of the worker's copy.
type Cloner[C any] interface {
	Clone() C
}

// Handle shares one logical value between any number of holders. Cloning a
// handle never copies the value it points to. Build handles with Share. The
// zero Handle holds the zero value of T, and its clones are zero handles
// that are not counted.
type Handle[T any] struct {
	state *handleState[T]
}

type handleState[T any] struct {
	value  T
	clones atomic.Int64
}

// Share wraps v in a Handle.
func Share[T any](v T) Handle[T] {
	return Handle[T]{state: &handleState[T]{value: v}}
}

// Clone returns another handle to the same value.
func (h Handle[T]) Clone() Handle[T] {
	if h.state == nil {
		return h
	}
	h.state.clones.Add(1)
	return Handle[T]{state: h.state}
}

// Get returns the shared value.
func (h Handle[T]) Get() T {
	if h.state == nil {
		var zero T
		return zero
	}
	return h.state.value
}

// Clones reports how many times any handle to this value has been cloned.
func (h Handle[T]) Clones() int64 {
	if h.state == nil {
		return 0
	}
	return h.state.clones.Load()
}

// Same reports whether h and other refer to the same value.
func (h Handle[T]) Same(other Handle[T]) bool {
	return h.state == other.state
}

// Value adapts a plain copyable value to Cloner. Cloning copies it.
type Value[T any] struct {
	V T
}

// Clone returns a copy of v.
func (v Value[T]) Clone() Value[T] { return v }
