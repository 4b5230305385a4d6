package pipeline_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/querydeck/querydeck/internal/engine"
	"github.com/querydeck/querydeck/internal/history"
	"github.com/querydeck/querydeck/internal/models"
	"github.com/querydeck/querydeck/internal/pipeline"
	"github.com/querydeck/querydeck/internal/store"
)

func TestPipeline(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Pipeline Suite")
}

// fakeEngines serves a fixed handle and descriptor.
type fakeEngines struct {
	handle *engine.Handle
	desc   models.ConnectionDescriptor
	err    error
}

func (f *fakeEngines) Current() (*engine.Handle, models.ConnectionDescriptor, error) {
	return f.handle, f.desc, f.err
}

// countingRefresher records refresh calls.
type countingRefresher struct {
	mu    sync.Mutex
	count int
	err   error
}

func (r *countingRefresher) Refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	return r.err
}

func (r *countingRefresher) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// scriptedRemote returns a fixed body or error.
type scriptedRemote struct {
	body []byte
	err  error
	last string
}

func (s *scriptedRemote) Execute(ctx context.Context, query string) ([]byte, error) {
	s.last = query
	if s.err != nil {
		return nil, s.err
	}
	return s.body, nil
}

var _ = Describe("Pipeline", func() {
	var (
		ctx       context.Context
		engines   *fakeEngines
		ledger    *history.Ledger
		refresher *countingRefresher
	)

	BeforeEach(func() {
		ctx = context.Background()
		ledger = history.NewLedger(history.DefaultCapacity)
		refresher = &countingRefresher{}
	})

	Context("against a local engine", func() {
		var pipe *pipeline.Pipeline

		BeforeEach(func() {
			db, err := store.NewDB(":memory:")
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(func() { db.Close() })

			engines = &fakeEngines{
				handle: &engine.Handle{Scope: models.ScopeEmbedded, DB: db},
				desc:   models.ConnectionDescriptor{Scope: models.ScopeEmbedded},
			}
			pipe = pipeline.New(engines, ledger, refresher, nil)
		})

		// Given a valid query
		// When it executes
		// Then the result carries rows and the ledger records a success
		It("should execute a query and record it in the ledger", func() {
			result := pipe.Execute(ctx, "SELECT 1 AS one", "")

			Expect(result.Error).To(BeEmpty())
			Expect(result.RowCount).To(Equal(1))
			Expect(result.Data[0]["one"]).NotTo(BeNil())

			items := ledger.Items()
			Expect(items).To(HaveLen(1))
			Expect(items[0].Query).To(Equal("SELECT 1 AS one"))
			Expect(items[0].Error).To(BeEmpty())
		})

		// Given a failing query
		// When it executes
		// Then the caller still receives a result object, with Error set,
		// and the ledger records the failure
		It("should return an error-bearing result instead of an error", func() {
			result := pipe.Execute(ctx, "SELECT FROM nothing.nowhere", "")

			Expect(result).NotTo(BeNil())
			Expect(result.Error).NotTo(BeEmpty())
			Expect(result.Data).To(BeEmpty())

			items := ledger.Items()
			Expect(items).To(HaveLen(1))
			Expect(items[0].Error).NotTo(BeEmpty())
		})

		// Given a DDL statement
		// When it executes successfully
		// Then exactly one schema refresh runs before Execute returns
		It("should refresh the schema after DDL", func() {
			result := pipe.Execute(ctx, "CREATE TABLE t (id INTEGER)", "")

			Expect(result.Error).To(BeEmpty())
			Expect(refresher.calls()).To(Equal(1))
		})

		It("should detect DDL case-insensitively with leading whitespace", func() {
			pipe.Execute(ctx, "CREATE TABLE t (id INTEGER)", "")
			result := pipe.Execute(ctx, "   drop table t", "")

			Expect(result.Error).To(BeEmpty())
			Expect(refresher.calls()).To(Equal(2))
		})

		It("should not refresh after plain queries", func() {
			pipe.Execute(ctx, "SELECT 1", "")

			Expect(refresher.calls()).To(BeZero())
		})

		It("should not refresh after failed DDL", func() {
			result := pipe.Execute(ctx, "CREATE TABLE", "")

			Expect(result.Error).NotTo(BeEmpty())
			Expect(refresher.calls()).To(BeZero())
		})

		// Given a refresher that fails
		// When DDL executes
		// Then the query result is still a success
		It("should not fail the query when the refresh fails", func() {
			refresher.err = fmt.Errorf("schema read failed")

			result := pipe.Execute(ctx, "CREATE TABLE t2 (id INTEGER)", "")
			Expect(result.Error).To(BeEmpty())
		})

		// Given a history key distinct from the query text
		// When the query executes
		// Then the ledger records the key, not the text
		It("should record the history key when provided", func() {
			pipe.Execute(ctx, "SELECT 1", "-- my dashboard query")

			items := ledger.Items()
			Expect(items[0].Query).To(Equal("-- my dashboard query"))
		})
	})

	Context("against a remote engine", func() {
		var (
			remote *scriptedRemote
			pipe   *pipeline.Pipeline
		)

		BeforeEach(func() {
			engines = &fakeEngines{
				handle: nil,
				desc: models.ConnectionDescriptor{
					Scope: models.ScopeRemote,
					Host:  "warehouse.example",
					Port:  8123,
				},
			}
			remote = &scriptedRemote{}
			pipe = pipeline.New(engines, ledger, refresher, func(models.ConnectionDescriptor) pipeline.RemoteExecutor {
				return remote
			})
		})

		It("should normalize a remote response body", func() {
			remote.body = []byte(`{"meta": [{"name": "id", "type": "UInt64"}], "data": [[1], [2]], "rows": 2}`)

			result := pipe.Execute(ctx, "SELECT id FROM events", "")

			Expect(result.Error).To(BeEmpty())
			Expect(result.Columns).To(Equal([]string{"id"}))
			Expect(result.RowCount).To(Equal(2))
			Expect(remote.last).To(Equal("SELECT id FROM events"))
		})

		It("should surface a remote failure as an error-bearing result", func() {
			remote.err = fmt.Errorf("connection refused")

			result := pipe.Execute(ctx, "SELECT 1", "")

			Expect(result.Error).To(ContainSubstring("connection refused"))
			Expect(ledger.Items()[0].Error).NotTo(BeEmpty())
		})

		It("should surface an unparseable remote body as an error-bearing result", func() {
			remote.body = []byte("<html>gateway timeout</html>")

			result := pipe.Execute(ctx, "SELECT 1", "")

			Expect(result.Error).NotTo(BeEmpty())
		})
	})

	Context("with no engine selected", func() {
		It("should return an error-bearing result", func() {
			engines = &fakeEngines{err: fmt.Errorf("no connection selected")}
			pipe := pipeline.New(engines, ledger, refresher, nil)

			result := pipe.Execute(ctx, "SELECT 1", "")

			Expect(result.Error).To(ContainSubstring("no connection selected"))
		})
	})
})
