// Package parallel maps a sequence across a fixed pool of goroutines and
// yields the results as they finish.
//
// A distributor goroutine drains the input into a bounded forward queue.
// Each worker takes one item at a time from that queue under a shared lock,
// maps it, and sends the result to a bounded backward queue that the
// returned sequence reads. Both queues hold as many values as there are
// workers unless WithCapacity says otherwise, so a slow consumer slows the
// workers, and slow workers slow the distributor.
//
// Results arrive in completion order, not input order.
//
//	seq := parallel.Parallelize(slices.Values(urls), fetch, parallel.WithWorkers(8))
//	for page := range seq {
//	    ...
//	}
//
// Nothing starts until the sequence is ranged over, and it can be ranged
// over once. Leaving the loop early closes the backward queue: every worker
// exits after its current item, and the distributor stops pulling input once
// the last worker is gone. Mapping calls already running are not
// interrupted.
//
// The pool does not recover panics from the mapping function. Functions that
// can fail should return a result.Result.
package parallel
