// Package testutil provides test helpers for asserting on what a pool
// reports through OpenTelemetry.
//
// Collecting metrics:
//
//	func TestMetrics(t *testing.T) {
//	    rec := testutil.NewMetricRecorder(t)
//	    seq := parallel.Parallelize(items, fn, parallel.WithMetrics(rec.Metrics))
//	    parallel.Collect(seq)
//	    assert.Equal(t, int64(10), rec.Sum("loop.items.enqueued"))
//	}
//
// Recording spans:
//
//	spans := testutil.RecordSpans(t)
//	// ... run code that starts spans
//	ended := spans.Ended()
package testutil
