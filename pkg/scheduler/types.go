// Package scheduler implements a bounded worker pool with cancellable
// futures. Query executions go through it so a request that has not started
// yet can still be aborted.
package scheduler

import "context"

// Work is a unit of deferred work.
type Work[T any] func(ctx context.Context) (T, error)

// Result carries a work outcome.
type Result[T any] struct {
	Data T
	Err  error
}

// Future is a pending result. Stop cancels the work's context; work that has
// not begun executing is abandoned, work already running is not interrupted
// mid-flight.
type Future[T any] struct {
	c      chan Result[T]
	cancel context.CancelFunc
}

func newFuture[T any](c chan Result[T], cancel context.CancelFunc) *Future[T] {
	return &Future[T]{c: c, cancel: cancel}
}

// C returns the channel the result will arrive on. It is buffered; the
// result is never lost to a slow reader.
func (f *Future[T]) C() <-chan Result[T] {
	return f.c
}

// Wait blocks until the result arrives or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case r := <-f.c:
		return r.Data, r.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Stop aborts the work if it has not started.
func (f *Future[T]) Stop() {
	f.cancel()
}
