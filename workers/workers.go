package workers

import (
	"runtime"

	"github.com/kbukum/loop/logger"
)

// parallelism reports the platform's available parallelism. GOMAXPROCS
// already accounts for CPU affinity and cgroup quotas.
var parallelism = func() int { return runtime.GOMAXPROCS(0) }

// Available returns the available parallelism, or 1 when it cannot be determined.
func Available() int {
	if n := parallelism(); n >= 1 {
		return n
	}
	return 1
}

// Resolve returns the worker count for an optional explicit request.
// A nil request means "use Available".
func Resolve(requested *int) int {
	return ResolveWith(requested, logger.Get("workers"))
}

// ResolveWith is Resolve reporting a clamped request to log.
func ResolveWith(requested *int, log *logger.Logger) int {
	if requested == nil {
		return Available()
	}
	if *requested < 1 {
		log.Warn("worker count below 1, clamping", logger.Fields(
			"requested", *requested,
			logger.FieldWorkers, 1,
		))
		return 1
	}
	return *requested
}

// Capacity returns the queue capacity for a pool of n workers. A nil or
// non-positive request means "same as the worker count".
func Capacity(requested *int, n int) int {
	if requested == nil || *requested < 1 {
		return n
	}
	return *requested
}
