package queue

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"

	"github.com/kbukum/loop/errors"
)

// ErrClosed is the cause of every error a send returns when no receiver is
// left. Match it with errors.Is. Each failed send returns its own
// QUEUE_CLOSED AppError wrapping ErrClosed, so callers may annotate the
// returned error freely.
var ErrClosed = stderrors.New("queue has no receivers")

func errClosed(end string) error {
	return errors.QueueClosed(end).WithCause(ErrClosed)
}

type state[T any] struct {
	items chan T
	done  chan struct{}

	senders   atomic.Int64
	receivers atomic.Int64
	closeDone sync.Once
}

// New creates a queue holding up to capacity buffered values. A capacity
// below 1 is raised to 1.
func New[T any](capacity int) (*Sender[T], *Receiver[T]) {
	if capacity < 1 {
		capacity = 1
	}
	s := &state[T]{
		items: make(chan T, capacity),
		done:  make(chan struct{}),
	}
	s.senders.Store(1)
	s.receivers.Store(1)
	return &Sender[T]{s: s}, &Receiver[T]{s: s}
}

// Sender is one handle on the sending end.
type Sender[T any] struct {
	s      *state[T]
	closed atomic.Bool
}

// Send blocks until v is buffered or every receiver is gone.
func (tx *Sender[T]) Send(v T) error {
	if tx.closed.Load() {
		return errClosed("sending")
	}
	if tx.receiversGone() {
		return errClosed("receiving")
	}
	select {
	case tx.s.items <- v:
		return nil
	case <-tx.s.done:
		return errClosed("receiving")
	}
}

// SendContext is Send that also gives up when ctx is done.
func (tx *Sender[T]) SendContext(ctx context.Context, v T) error {
	if tx.closed.Load() {
		return errClosed("sending")
	}
	if tx.receiversGone() {
		return errClosed("receiving")
	}
	if err := ctx.Err(); err != nil {
		return errors.Cancelled("send", err)
	}
	select {
	case tx.s.items <- v:
		return nil
	case <-tx.s.done:
		return errClosed("receiving")
	case <-ctx.Done():
		return errors.Cancelled("send", ctx.Err())
	}
}

// Done is closed once every receiver has closed.
func (tx *Sender[T]) Done() <-chan struct{} { return tx.s.done }

func (tx *Sender[T]) receiversGone() bool {
	select {
	case <-tx.s.done:
		return true
	default:
		return false
	}
}

// Clone returns a new handle on the same sending end. Cloning a closed
// handle yields a closed handle.
func (tx *Sender[T]) Clone() *Sender[T] {
	if tx.closed.Load() {
		c := &Sender[T]{s: tx.s}
		c.closed.Store(true)
		return c
	}
	tx.s.senders.Add(1)
	return &Sender[T]{s: tx.s}
}

// Close releases this handle. The last handle to close ends the queue.
func (tx *Sender[T]) Close() {
	if !tx.closed.CompareAndSwap(false, true) {
		return
	}
	if tx.s.senders.Add(-1) == 0 {
		close(tx.s.items)
	}
}

// Len reports the number of buffered values.
func (tx *Sender[T]) Len() int { return len(tx.s.items) }

// Cap reports the queue capacity.
func (tx *Sender[T]) Cap() int { return cap(tx.s.items) }

// Receiver is one handle on the receiving end.
type Receiver[T any] struct {
	s      *state[T]
	closed atomic.Bool
}

// Recv blocks for the next value. ok is false once the queue is closed and
// drained, or when this handle has been closed.
func (rx *Receiver[T]) Recv() (v T, ok bool) {
	if rx.closed.Load() {
		return v, false
	}
	v, ok = <-rx.s.items
	return v, ok
}

// RecvContext is Recv that also gives up when ctx is done. The error is
// non-nil only in that case.
func (rx *Receiver[T]) RecvContext(ctx context.Context) (v T, ok bool, err error) {
	if rx.closed.Load() {
		return v, false, nil
	}
	if err := ctx.Err(); err != nil {
		return v, false, errors.Cancelled("recv", err)
	}
	select {
	case v, ok = <-rx.s.items:
		return v, ok, nil
	case <-ctx.Done():
		return v, false, errors.Cancelled("recv", ctx.Err())
	}
}

// Clone returns a new handle on the same receiving end. Cloning a closed
// handle yields a closed handle.
func (rx *Receiver[T]) Clone() *Receiver[T] {
	if rx.closed.Load() {
		c := &Receiver[T]{s: rx.s}
		c.closed.Store(true)
		return c
	}
	rx.s.receivers.Add(1)
	return &Receiver[T]{s: rx.s}
}

// Close releases this handle. When the last handle closes, senders start
// failing with ErrClosed.
func (rx *Receiver[T]) Close() {
	if !rx.closed.CompareAndSwap(false, true) {
		return
	}
	if rx.s.receivers.Add(-1) == 0 {
		rx.s.closeDone.Do(func() { close(rx.s.done) })
	}
}

// Len reports the number of buffered values.
func (rx *Receiver[T]) Len() int { return len(rx.s.items) }

// Cap reports the queue capacity.
func (rx *Receiver[T]) Cap() int { return cap(rx.s.items) }
