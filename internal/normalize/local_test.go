package normalize_test

import (
	"context"
	"database/sql"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/querydeck/querydeck/internal/normalize"
	"github.com/querydeck/querydeck/internal/store"
)

var _ = Describe("LocalRows", func() {
	var (
		ctx context.Context
		db  *sql.DB
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		db, err = store.NewDB(":memory:")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	query := func(q string) *sql.Rows {
		rows, err := db.QueryContext(ctx, q)
		Expect(err).NotTo(HaveOccurred())
		return rows
	}

	// Given a result set with declared columns
	// When it is normalized
	// Then column names and types come from the schema, not the data
	It("should carry declared column names and types", func() {
		rows := query(`SELECT 1 AS id, 'alpha' AS name`)
		defer rows.Close()

		result, err := normalize.LocalRows(rows)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Columns).To(Equal([]string{"id", "name"}))
		Expect(result.ColumnTypes).To(HaveLen(2))
		Expect(result.RowCount).To(Equal(1))
		Expect(result.Data[0]["name"]).To(Equal("alpha"))
	})

	// Given a DECIMAL column
	// When it is normalized
	// Then the cell is a plain float of unscaled / 10^scale
	It("should coerce decimals to plain numbers", func() {
		rows := query(`SELECT CAST(123.45 AS DECIMAL(10,2)) AS amount`)
		defer rows.Close()

		result, err := normalize.LocalRows(rows)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Data[0]["amount"]).To(BeNumerically("~", 123.45, 1e-9))
	})

	It("should coerce negative and zero-scale decimals", func() {
		rows := query(`SELECT CAST(-7.5 AS DECIMAL(6,1)) AS neg, CAST(42 AS DECIMAL(5,0)) AS whole`)
		defer rows.Close()

		result, err := normalize.LocalRows(rows)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Data[0]["neg"]).To(BeNumerically("~", -7.5, 1e-9))
		Expect(result.Data[0]["whole"]).To(BeNumerically("~", 42.0, 1e-9))
	})

	// Given a DATE column
	// When it is normalized
	// Then the cell is a month/day/year string without leading zeros
	It("should format dates as locale date strings", func() {
		rows := query(`SELECT DATE '2024-03-07' AS day`)
		defer rows.Close()

		result, err := normalize.LocalRows(rows)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Data[0]["day"]).To(Equal("3/7/2024"))
	})

	// Given a TIMESTAMP column
	// When it is normalized
	// Then the cell stays a native time value
	It("should keep timestamps as native times", func() {
		rows := query(`SELECT TIMESTAMP '2024-03-07 12:30:00' AS at`)
		defer rows.Close()

		result, err := normalize.LocalRows(rows)
		Expect(err).NotTo(HaveOccurred())

		at, ok := result.Data[0]["at"].(time.Time)
		Expect(ok).To(BeTrue())
		Expect(at.Hour()).To(Equal(12))
		Expect(at.Minute()).To(Equal(30))
	})

	It("should pass NULL through as nil", func() {
		rows := query(`SELECT CAST(NULL AS DECIMAL(10,2)) AS amount, CAST(NULL AS DATE) AS day`)
		defer rows.Close()

		result, err := normalize.LocalRows(rows)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Data[0]["amount"]).To(BeNil())
		Expect(result.Data[0]["day"]).To(BeNil())
	})

	// Given a HUGEINT column
	// When it is normalized
	// Then the cell becomes a float64
	It("should coerce hugeint to float64", func() {
		rows := query(`SELECT CAST(170141183460469231731687303715884105727 AS HUGEINT) AS big`)
		defer rows.Close()

		result, err := normalize.LocalRows(rows)
		Expect(err).NotTo(HaveOccurred())
		_, ok := result.Data[0]["big"].(float64)
		Expect(ok).To(BeTrue())
	})

	It("should return an empty data slice for zero rows", func() {
		rows := query(`SELECT 1 AS x WHERE false`)
		defer rows.Close()

		result, err := normalize.LocalRows(rows)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Data).NotTo(BeNil())
		Expect(result.Data).To(BeEmpty())
		Expect(result.RowCount).To(BeZero())
	})
})
