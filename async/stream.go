package async

import (
	"context"
	"iter"
	"sync"

	"github.com/kbukum/loop/queue"
)

// Stream yields the results of a pool in completion order.
type Stream[O any] struct {
	rx       *queue.Receiver[O]
	shutdown func() error

	closeOnce sync.Once
	closeErr  error
}

// Next waits for the next result. ok is false once every result has been
// delivered or the stream has been closed. err is non-nil only when ctx
// ends while waiting, in which case the stream remains usable.
func (s *Stream[O]) Next(ctx context.Context) (v O, ok bool, err error) {
	v, ok, err = s.rx.RecvContext(ctx)
	if err != nil {
		return v, false, err
	}
	if !ok {
		_ = s.Close()
	}
	return v, ok, nil
}

// Close drops any results not yet received and waits for the pool's tasks
// to exit. Each worker finishes the item it holds first. On a shared
// runtime, a distributor waiting on its input keeps Close waiting until the
// input yields or the runtime shuts down.
//
// If the runtime context ended before the input was fully mapped, Close
// returns a CANCELLED errors.AppError wrapping the context's cause. Closing
// the stream early is not an error.
func (s *Stream[O]) Close() error {
	s.closeOnce.Do(func() {
		s.rx.Close()
		s.closeErr = s.shutdown()
	})
	return s.closeErr
}

// All adapts the stream to a range loop. The stream is closed when the loop
// ends for any reason. A ctx error is yielded once, then the loop ends.
func (s *Stream[O]) All(ctx context.Context) iter.Seq2[O, error] {
	return func(yield func(O, error) bool) {
		defer s.Close()
		for {
			v, ok, err := s.Next(ctx)
			if err != nil {
				yield(v, err)
				return
			}
			if !ok || !yield(v, nil) {
				return
			}
		}
	}
}

// Collect drains s and closes it. On a ctx error, or when the runtime ended
// before every item was mapped, it returns the results received so far
// along with the error.
func Collect[O any](ctx context.Context, s *Stream[O]) ([]O, error) {
	var out []O
	for v, err := range s.All(ctx) {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, s.Close()
}
