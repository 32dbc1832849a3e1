package async

import (
	"bytes"
	"context"
	stderrors "errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/goleak"
	"pgregory.net/rapid"

	"github.com/kbukum/loop/errors"
	"github.com/kbukum/loop/logger"
	"github.com/kbukum/loop/observability"
	"github.com/kbukum/loop/shared"
	"github.com/kbukum/loop/testutil"
	"github.com/kbukum/loop/workers"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var doubledTen = []int{0, 2, 4, 6, 8, 10, 12, 14, 16, 18}

func double(_ context.Context, x int) int { return 2 * x }

func seqRange(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func collectSorted(t *testing.T, s *Stream[int]) []int {
	t.Helper()
	got, err := Collect(context.Background(), s)
	require.NoError(t, err)
	slices.Sort(got)
	return got
}

func infinite(yield func(int) bool) {
	for i := 0; ; i++ {
		if !yield(i) {
			return
		}
	}
}

func TestParallelize_FixedMap(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"one worker", []Option{WithWorkers(1)}},
		{"two workers", []Option{WithWorkers(2)}},
		{"default workers", nil},
		{"zero workers", []Option{WithWorkers(0)}},
		{"small capacity", []Option{WithWorkers(4), WithCapacity(1)}},
		{"config", []Option{WithConfig(workers.Config{Workers: 3, Capacity: 2})}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := Parallelize(context.Background(), slices.Values(seqRange(10)), double, tc.opts...)
			assert.Equal(t, doubledTen, collectSorted(t, s))
		})
	}
}

func TestParallelizeWith_Context(t *testing.T) {
	factor := shared.Share(2)
	s := ParallelizeWith(context.Background(), slices.Values(seqRange(10)),
		func(_ context.Context, x int, c shared.Handle[int]) int { return x * c.Get() },
		factor, WithWorkers(2))

	assert.Equal(t, doubledTen, collectSorted(t, s))
	assert.Equal(t, int64(2+10), factor.Clones())
}

func TestParallelize_Empty(t *testing.T) {
	s := Parallelize(context.Background(), slices.Values([]int(nil)), double)
	got, err := Collect(context.Background(), s)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParallelize_Completeness(t *testing.T) {
	const n = 1000
	s := Parallelize(context.Background(), slices.Values(seqRange(n)),
		func(_ context.Context, x int) int { return x }, WithWorkers(8))
	assert.Equal(t, seqRange(n), collectSorted(t, s))
}

func TestParallelize_ZeroWorkersRunsOne(t *testing.T) {
	var active, peak atomic.Int64
	s := Parallelize(context.Background(), slices.Values(seqRange(20)), func(_ context.Context, x int) int {
		cur := active.Add(1)
		defer active.Add(-1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		return x
	}, WithWorkers(0))

	assert.Len(t, collectSorted(t, s), 20)
	assert.Equal(t, int64(1), peak.Load())
}

func TestParallelize_ZeroWorkersWarnsOnPoolLogger(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "warn", Format: "json"}, "loop", &buf)

	s := Parallelize(context.Background(), slices.Values(seqRange(5)), double, WithWorkers(-3), WithLogger(log))
	assert.Len(t, collectSorted(t, s), 5)
	assert.Contains(t, buf.String(), "worker count below 1, clamping")
}

func TestStream_NextAfterDrain(t *testing.T) {
	s := Parallelize(context.Background(), slices.Values(seqRange(3)), double)
	ctx := context.Background()

	n := 0
	for {
		_, ok, err := s.Next(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		n++
	}
	assert.Equal(t, 3, n)

	_, ok, err := s.Next(ctx)
	assert.False(t, ok)
	assert.NoError(t, err)
	assert.NoError(t, s.Close())
}

func TestStream_NextContextTimeout(t *testing.T) {
	release := make(chan struct{})
	s := Parallelize(context.Background(), slices.Values(seqRange(4)), func(_ context.Context, x int) int {
		<-release
		return x
	}, WithWorkers(2))
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, ok, err := s.Next(ctx)
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, errors.HasCode(err, errors.ErrCodeCancelled))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	got, err := Collect(context.Background(), s)
	require.NoError(t, err)
	assert.Len(t, got, 4, "the stream stays usable after a timed-out Next")
}

func TestStream_CloseEarly(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := Parallelize(context.Background(), infinite, double, WithWorkers(4))
	for range 3 {
		_, ok, err := s.Next(context.Background())
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, ok, err := s.Next(context.Background())
	assert.False(t, ok)
	assert.NoError(t, err)
}

func TestStream_AllBreak(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := Parallelize(context.Background(), infinite, double, WithWorkers(2))
	got := 0
	for v, err := range s.All(context.Background()) {
		require.NoError(t, err)
		assert.Zero(t, v%2)
		got++
		if got == 5 {
			break
		}
	}
	assert.Equal(t, 5, got)
}

func TestStream_AllContextError(t *testing.T) {
	s := Parallelize(context.Background(), slices.Values(seqRange(2)), func(ctx context.Context, x int) int {
		<-ctx.Done()
		return x
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got, err := Collect(ctx, s)
	assert.Empty(t, got)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRuntime_SharedAcrossPools(t *testing.T) {
	rt := NewRuntime(context.Background())

	var seen sync.Map
	fn := func(ctx context.Context, x int) int {
		seen.Store(ctx == rt.Context(), true)
		return 2 * x
	}
	a := Parallelize(context.Background(), slices.Values(seqRange(10)), fn, WithRuntime(rt), WithWorkers(2))
	b := Parallelize(context.Background(), slices.Values(seqRange(10)), fn, WithRuntime(rt), WithWorkers(3))

	assert.Equal(t, doubledTen, collectSorted(t, a))
	assert.Equal(t, doubledTen, collectSorted(t, b))

	_, wrongCtx := seen.Load(false)
	assert.False(t, wrongCtx, "mapping calls receive the runtime context")

	require.NoError(t, rt.Shutdown())
}

func TestRuntime_ShutdownStopsPools(t *testing.T) {
	defer goleak.VerifyNone(t)

	rt := NewRuntime(context.Background())
	s := Parallelize(context.Background(), infinite, double, WithRuntime(rt), WithWorkers(3))

	_, ok, err := s.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, rt.Shutdown())

	// Whatever was buffered is still delivered, then the stream ends.
	for {
		_, ok, err := s.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
	}
	err = s.Close()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeCancelled), err.Error())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParallelize_ParentContextCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancelCause(context.Background())
	s := Parallelize(ctx, infinite, double, WithWorkers(2))
	_, ok, err := s.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	cause := stderrors.New("deadline moved")
	cancel(cause)
	for {
		_, ok, err := s.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
	}

	err = s.Close()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeCancelled), err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestCollect_ParentCancelledBeforeStart(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := Collect(context.Background(), Parallelize(ctx, slices.Values(seqRange(10)), double, WithWorkers(2)))
	assert.Less(t, len(got), 10)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeCancelled), err.Error())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStream_CloseAfterDrainIgnoresLaterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := Parallelize(ctx, slices.Values(seqRange(10)), double, WithWorkers(3))

	var got []int
	for {
		v, ok, err := s.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, v)
	}
	cancel()

	assert.Len(t, got, 10)
	assert.NoError(t, s.Close())
}

func TestParallelize_TracingRecordsCancellation(t *testing.T) {
	spans := testutil.RecordSpans(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Collect(context.Background(), Parallelize(ctx, slices.Values(seqRange(10)), double, WithTracing(""), WithWorkers(2)))
	require.Error(t, err)

	ended := spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
}

func TestParallelize_Backpressure(t *testing.T) {
	const (
		n        = 2
		capacity = 3
		total    = 200
	)
	var produced atomic.Int64
	items := func(yield func(int) bool) {
		for i := range total {
			produced.Add(1)
			if !yield(i) {
				return
			}
		}
	}
	bound := int64(capacity + n + capacity + 1)

	s := Parallelize(context.Background(), items, double, WithWorkers(n), WithCapacity(capacity))
	defer s.Close()

	consumed := int64(0)
	for _, err := range s.All(context.Background()) {
		require.NoError(t, err)
		consumed++
		require.LessOrEqual(t, produced.Load()-consumed, bound)
		time.Sleep(100 * time.Microsecond)
	}
	assert.Equal(t, int64(total), consumed)
}

func TestParallelize_Metrics(t *testing.T) {
	rec := testutil.NewMetricRecorder(t)
	mode := attribute.String(observability.AttrMode, observability.ModeAsync)

	s := Parallelize(context.Background(), slices.Values(seqRange(10)), double,
		WithWorkers(2), WithMetrics(rec.Metrics))
	require.Len(t, collectSorted(t, s), 10)

	assert.Equal(t, int64(10), rec.Sum("loop.items.enqueued", mode))
	assert.Equal(t, int64(10), rec.Sum("loop.results.delivered", mode))
	assert.Equal(t, int64(0), rec.Sum("loop.workers.active", mode))
	assert.Equal(t, uint64(10), rec.Count("loop.map.duration", mode))
	assert.Equal(t, int64(1), rec.Sum("loop.pool.shutdown",
		attribute.String(observability.AttrReason, observability.ReasonDrained)))
}

func TestParallelize_MetricsAbandoned(t *testing.T) {
	rec := testutil.NewMetricRecorder(t)

	s := Parallelize(context.Background(), infinite, double, WithWorkers(2), WithMetrics(rec.Metrics))
	_, _, err := s.Next(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.Equal(t, int64(1), rec.Sum("loop.pool.shutdown",
		attribute.String(observability.AttrReason, observability.ReasonAbandoned)))
	assert.Equal(t, int64(0), rec.Sum("loop.workers.active"))
}

func TestParallelize_Tracing(t *testing.T) {
	spans := testutil.RecordSpans(t)

	var traced atomic.Bool
	s := Parallelize(context.Background(), slices.Values(seqRange(10)), func(ctx context.Context, x int) int {
		if trace.SpanFromContext(ctx).SpanContext().IsValid() {
			traced.Store(true)
		}
		return x
	}, WithTracing(""), WithWorkers(2))
	require.Len(t, collectSorted(t, s), 10)

	ended := spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, observability.SpanParallelize, ended[0].Name())

	attrs := attribute.NewSet(ended[0].Attributes()...)
	enqueued, _ := attrs.Value(observability.AttrEnqueued)
	assert.Equal(t, int64(10), enqueued.AsInt64())
	reason, _ := attrs.Value(observability.AttrReason)
	assert.Equal(t, observability.ReasonDrained, reason.AsString())
	workersAttr, _ := attrs.Value(observability.AttrWorkers)
	assert.Equal(t, int64(2), workersAttr.AsInt64())

	assert.True(t, traced.Load(), "mapping calls run inside the pool span")
}

func TestParallelize_NoLossNoDuplication(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		items := rapid.SliceOf(rapid.IntRange(-1000, 1000)).Draw(t, "items")
		n := rapid.IntRange(1, 8).Draw(t, "workers")
		capacity := rapid.IntRange(0, 4).Draw(t, "capacity")

		s := Parallelize(context.Background(), slices.Values(items),
			func(_ context.Context, x int) int { return x },
			WithWorkers(n), WithCapacity(capacity), WithLogger(logger.Nop()))
		got, err := Collect(context.Background(), s)
		if err != nil {
			t.Fatalf("collect: %v", err)
		}

		want := slices.Clone(items)
		slices.Sort(want)
		slices.Sort(got)
		if !slices.Equal(want, got) {
			t.Fatalf("multiset mismatch: want %v, got %v", want, got)
		}
	})
}
