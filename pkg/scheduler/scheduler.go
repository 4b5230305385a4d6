package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

type request struct {
	fn   Work[any]
	c    chan Result[any]
	ctx  context.Context
	done *atomic.Bool
}

// resolve delivers the result exactly once. A request can be settled by the
// worker that ran it, by AddWork when the pool closed mid-submission, or by
// the close-time drain; whichever gets there first wins.
func (r request) resolve(res Result[any]) {
	if r.done.CompareAndSwap(false, true) {
		r.c <- res
	}
}

// Scheduler runs submitted work on a fixed number of workers. Work queues in
// submission order; a worker picks up the next request as soon as it is free.
type Scheduler struct {
	work       chan request
	mainCtx    context.Context
	mainCancel context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
}

// NewScheduler starts nbWorkers workers.
func NewScheduler(nbWorkers int) *Scheduler {
	if nbWorkers <= 0 {
		nbWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		work:       make(chan request, nbWorkers),
		mainCtx:    ctx,
		mainCancel: cancel,
	}
	s.wg.Add(nbWorkers)
	for range nbWorkers {
		go s.worker()
	}
	return s
}

// AddWork submits work and returns its future. After Close, the future
// resolves immediately with context.Canceled.
func (s *Scheduler) AddWork(w Work[any]) *Future[any] {
	c := make(chan Result[any], 1)
	ctx, cancel := context.WithCancel(s.mainCtx)
	req := request{fn: w, c: c, ctx: ctx, done: new(atomic.Bool)}

	if s.mainCtx.Err() != nil {
		req.resolve(Result[any]{Err: context.Canceled})
		return newFuture(c, cancel)
	}

	select {
	case <-s.mainCtx.Done():
		req.resolve(Result[any]{Err: context.Canceled})
	case s.work <- req:
		// The send can win the select even when the pool closed at the
		// same moment, leaving the request queued with no worker left.
		if s.mainCtx.Err() != nil {
			req.resolve(Result[any]{Err: context.Canceled})
		}
	}
	return newFuture(c, cancel)
}

func (s *Scheduler) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.mainCtx.Done():
			return
		case r := <-s.work:
			s.execute(r)
		}
	}
}

func (s *Scheduler) execute(r request) {
	defer func() {
		if rec := recover(); rec != nil {
			r.resolve(Result[any]{Err: fmt.Errorf("worker panicked: %v", rec)})
		}
	}()

	// Work whose future was stopped before a worker picked it up is
	// abandoned without running.
	if r.ctx.Err() != nil {
		r.resolve(Result[any]{Err: r.ctx.Err()})
		return
	}

	// Started work runs to completion: a Stop on its future no longer
	// reaches it.
	v, err := r.fn(context.WithoutCancel(r.ctx))
	r.resolve(Result[any]{Data: v, Err: err})
}

// Close stops accepting work, waits for running work to finish and resolves
// anything still queued.
func (s *Scheduler) Close() {
	s.once.Do(func() {
		s.mainCancel()
		s.wg.Wait()
		for {
			select {
			case r := <-s.work:
				r.resolve(Result[any]{Err: context.Canceled})
			default:
				return
			}
		}
	})
}
