// Package workers resolves how many workers a pool runs and how large its
// queues are.
//
// An explicit count is used as given when it is at least 1; anything lower
// is clamped to 1 with a warning rather than rejected, so a pool always has
// a worker. Without an explicit count the pool uses the available
// parallelism reported by the Go runtime. No upper bound is imposed.
package workers
