package async

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Runtime runs the tasks of one or more pools. Its context is handed to
// every task and every mapping call.
type Runtime struct {
	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewRuntime creates a runtime whose context is derived from ctx.
func NewRuntime(ctx context.Context) *Runtime {
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	return &Runtime{ctx: gctx, cancel: cancel, group: g}
}

// Context returns the runtime context. It is done once the runtime shuts
// down or its parent context ends.
func (r *Runtime) Context() context.Context { return r.ctx }

// Go runs fn as a task. A task that returns an error stops the runtime.
func (r *Runtime) Go(fn func(ctx context.Context) error) {
	r.group.Go(func() error { return fn(r.ctx) })
}

// Shutdown cancels the runtime context and waits for every task to return.
func (r *Runtime) Shutdown() error {
	r.cancel()
	return r.group.Wait()
}
