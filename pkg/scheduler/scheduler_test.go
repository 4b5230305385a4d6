package scheduler_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/querydeck/querydeck/pkg/scheduler"
)

func TestScheduler(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Scheduler Suite")
}

var _ = Describe("Scheduler", func() {
	var s *scheduler.Scheduler

	AfterEach(func() {
		if s != nil {
			s.Close()
		}
	})

	Describe("AddWork", func() {
		It("should add work and return a future", func() {
			s = scheduler.NewScheduler(1)

			work := func(ctx context.Context) (any, error) {
				return "done", nil
			}

			future := s.AddWork(work)
			Expect(future).NotTo(BeNil())

			var result scheduler.Result[any]
			Eventually(future.C(), 2*time.Second).Should(Receive(&result))
			Expect(result.Err).NotTo(HaveOccurred())
			Expect(result.Data).To(Equal("done"))
		})

		It("should propagate work errors through the future", func() {
			s = scheduler.NewScheduler(1)

			future := s.AddWork(func(ctx context.Context) (any, error) {
				return nil, fmt.Errorf("boom")
			})

			_, err := future.Wait(context.Background())
			Expect(err).To(MatchError(ContainSubstring("boom")))
		})

		It("should recover a panicking work item", func() {
			s = scheduler.NewScheduler(1)

			future := s.AddWork(func(ctx context.Context) (any, error) {
				panic("exploded")
			})

			_, err := future.Wait(context.Background())
			Expect(err).To(MatchError(ContainSubstring("exploded")))

			// The worker survives and runs the next item.
			next := s.AddWork(func(ctx context.Context) (any, error) {
				return 42, nil
			})
			v, err := next.Wait(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(42))
		})
	})

	Describe("Run work", func() {
		It("should execute multiple work items", func() {
			s = scheduler.NewScheduler(2)

			results := make(chan int, 3)
			for i := range 3 {
				idx := i
				s.AddWork(func(ctx context.Context) (any, error) {
					results <- idx
					return idx, nil
				})
			}

			Eventually(func() int {
				return len(results)
			}, 2*time.Second, 100*time.Millisecond).Should(Equal(3))
		})
	})

	Describe("Stop", func() {
		// Given a single worker held busy
		// When a queued future is stopped before a worker picks it up
		// Then its work never runs
		It("should abandon stopped work that has not started", func() {
			s = scheduler.NewScheduler(1)

			release := make(chan struct{})
			s.AddWork(func(ctx context.Context) (any, error) {
				<-release
				return nil, nil
			})

			ran := make(chan struct{}, 1)
			queued := s.AddWork(func(ctx context.Context) (any, error) {
				ran <- struct{}{}
				return nil, nil
			})
			queued.Stop()
			close(release)

			_, err := queued.Wait(context.Background())
			Expect(err).To(MatchError(context.Canceled))
			Consistently(ran, 200*time.Millisecond).ShouldNot(Receive())
		})

		// Given work already running on a worker
		// When its future is stopped
		// Then the work runs to completion and delivers its result
		It("should not interrupt work that already started", func() {
			s = scheduler.NewScheduler(1)

			started := make(chan struct{})
			release := make(chan struct{})
			future := s.AddWork(func(ctx context.Context) (any, error) {
				close(started)
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-release:
					return "finished", nil
				}
			})

			<-started
			future.Stop()
			close(release)

			v, err := future.Wait(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal("finished"))
		})
	})

	Describe("Close", func() {
		It("should resolve work submitted after close with a canceled error", func() {
			s = scheduler.NewScheduler(1)
			s.Close()

			future := s.AddWork(func(ctx context.Context) (any, error) {
				return "never", nil
			})

			_, err := future.Wait(context.Background())
			Expect(err).To(MatchError(context.Canceled))
		})

		// Given a held worker and a request sitting in the queue
		// When the pool closes before the request is picked up
		// Then the queued future still resolves with a canceled error
		It("should resolve work left in the queue when the pool closes", func() {
			s = scheduler.NewScheduler(1)

			release := make(chan struct{})
			held := s.AddWork(func(ctx context.Context) (any, error) {
				<-release
				return "held", nil
			})
			queued := s.AddWork(func(ctx context.Context) (any, error) {
				return "ran", nil
			})

			closed := make(chan struct{})
			go func() {
				defer GinkgoRecover()
				s.Close()
				close(closed)
			}()

			// A full queue makes this submission block until Close cancels
			// the pool, which pins the ordering of the steps below.
			latecomer := s.AddWork(func(ctx context.Context) (any, error) {
				return nil, nil
			})
			_, err := latecomer.Wait(context.Background())
			Expect(err).To(MatchError(context.Canceled))

			close(release)
			Eventually(closed, 2*time.Second).Should(BeClosed())

			v, err := held.Wait(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal("held"))

			_, err = queued.Wait(context.Background())
			Expect(err).To(MatchError(context.Canceled))
		})
	})
})
