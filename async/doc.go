// Package async is the task-based counterpart of package parallel. The
// distributor and workers run as tasks on a Runtime, every queue operation
// gives up when the runtime's context ends, and results are pulled from a
// Stream.
//
//	rt := async.NewRuntime(ctx)
//	defer rt.Shutdown()
//
//	s := async.Parallelize(ctx, slices.Values(ids), lookup, async.WithRuntime(rt), async.WithWorkers(16))
//	defer s.Close()
//	for {
//	    rec, ok, err := s.Next(ctx)
//	    if err != nil || !ok {
//	        break
//	    }
//	    ...
//	}
//
// Closing a Stream before it is drained drops the remaining results: each
// worker exits after its current item and the distributor stops once the
// last worker is gone. Shutting down the runtime has the same effect on
// every pool running on it.
package async
