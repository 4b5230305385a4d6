package schema_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/querydeck/querydeck/internal/engine"
	"github.com/querydeck/querydeck/internal/models"
	"github.com/querydeck/querydeck/internal/schema"
	"github.com/querydeck/querydeck/internal/store"
	srvErrors "github.com/querydeck/querydeck/pkg/errors"
)

func TestSchema(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Schema Suite")
}

type fixedEngines struct {
	handle *engine.Handle
	desc   models.ConnectionDescriptor
	err    error
}

func (f *fixedEngines) Current() (*engine.Handle, models.ConnectionDescriptor, error) {
	return f.handle, f.desc, f.err
}

var _ = Describe("Refresher", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	// Given a local engine with a created table
	// When the schema refreshes
	// Then the listing groups that table's columns in declaration order
	It("should list tables and columns of a local engine", func() {
		db, err := store.NewDB(":memory:")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { db.Close() })

		_, err = db.ExecContext(ctx, `CREATE TABLE orders (id INTEGER, amount DECIMAL(10,2), placed_at TIMESTAMP)`)
		Expect(err).NotTo(HaveOccurred())

		engines := &fixedEngines{
			handle: &engine.Handle{Scope: models.ScopeEmbedded, DB: db},
			desc:   models.ConnectionDescriptor{Scope: models.ScopeEmbedded},
		}
		refresher := schema.NewRefresher(engines)

		Expect(refresher.Refresh(ctx)).To(Succeed())

		tables := refresher.Tables()
		var orders *models.TableInfo
		for i := range tables {
			if tables[i].Name == "orders" {
				orders = &tables[i]
			}
		}
		Expect(orders).NotTo(BeNil())
		Expect(orders.Columns).To(HaveLen(3))
		Expect(orders.Columns[0].Name).To(Equal("id"))
		Expect(orders.Columns[1].Name).To(Equal("amount"))
		Expect(orders.Columns[2].Name).To(Equal("placed_at"))
	})

	// Given a refreshed listing
	// When the backend gains a table and refreshes again
	// Then the listing includes the new table
	It("should pick up new tables on re-refresh", func() {
		db, err := store.NewDB(":memory:")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { db.Close() })

		engines := &fixedEngines{
			handle: &engine.Handle{Scope: models.ScopeEmbedded, DB: db},
			desc:   models.ConnectionDescriptor{Scope: models.ScopeEmbedded},
		}
		refresher := schema.NewRefresher(engines)
		Expect(refresher.Refresh(ctx)).To(Succeed())
		before := len(refresher.Tables())

		_, err = db.ExecContext(ctx, `CREATE TABLE fresh (id INTEGER)`)
		Expect(err).NotTo(HaveOccurred())
		Expect(refresher.Refresh(ctx)).To(Succeed())

		Expect(len(refresher.Tables())).To(Equal(before + 1))
	})

	It("should fail when no engine is selected", func() {
		engines := &fixedEngines{err: srvErrors.NewConnectionInvalidError("no connection selected")}
		refresher := schema.NewRefresher(engines)

		err := refresher.Refresh(ctx)
		Expect(err).To(HaveOccurred())
		Expect(srvErrors.IsConnectionInvalidError(err)).To(BeTrue())
	})

	It("should return a copy of the listing", func() {
		db, err := store.NewDB(":memory:")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { db.Close() })

		_, err = db.ExecContext(ctx, `CREATE TABLE t (id INTEGER)`)
		Expect(err).NotTo(HaveOccurred())

		engines := &fixedEngines{
			handle: &engine.Handle{Scope: models.ScopeEmbedded, DB: db},
			desc:   models.ConnectionDescriptor{Scope: models.ScopeEmbedded},
		}
		refresher := schema.NewRefresher(engines)
		Expect(refresher.Refresh(ctx)).To(Succeed())

		tables := refresher.Tables()
		Expect(tables).NotTo(BeEmpty())
		tables[0].Name = "mutated"
		Expect(refresher.Tables()[0].Name).NotTo(Equal("mutated"))
	})
})
