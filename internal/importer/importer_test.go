package importer_test

import (
	"bytes"
	"context"
	"database/sql"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"

	"github.com/querydeck/querydeck/internal/importer"
	"github.com/querydeck/querydeck/internal/store"
)

func TestImporter(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Importer Suite")
}

var _ = Describe("Import", func() {
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

	countRows := func(table string) int {
		var n int
		row := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table)
		Expect(row.Scan(&n)).To(Succeed())
		return n
	}

	Context("csv", func() {
		// Given a csv buffer with a header row
		// When it is imported
		// Then the header names the columns and every data row lands
		It("should load csv rows into a new table", func() {
			buf := []byte("name,city\nalice,berlin\nbob,lisbon\n")

			rows, err := importer.Import(ctx, db, buf, "people", importer.FormatCSV)
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(Equal(2))
			Expect(countRows("people")).To(Equal(2))

			var city string
			r := db.QueryRowContext(ctx, `SELECT city FROM people WHERE name = 'alice'`)
			Expect(r.Scan(&city)).To(Succeed())
			Expect(city).To(Equal("berlin"))
		})

		It("should pad ragged csv rows with nulls", func() {
			buf := []byte("a,b,c\n1,2\n")

			rows, err := importer.Import(ctx, db, buf, "ragged", importer.FormatCSV)
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(Equal(1))

			var c sql.NullString
			r := db.QueryRowContext(ctx, `SELECT c FROM ragged`)
			Expect(r.Scan(&c)).To(Succeed())
			Expect(c.Valid).To(BeFalse())
		})

		It("should reject an empty buffer", func() {
			_, err := importer.Import(ctx, db, nil, "empty", importer.FormatCSV)
			Expect(err).To(HaveOccurred())
		})

		It("should append to an existing table on re-import", func() {
			buf := []byte("x\n1\n")
			_, err := importer.Import(ctx, db, buf, "t", importer.FormatCSV)
			Expect(err).NotTo(HaveOccurred())
			_, err = importer.Import(ctx, db, buf, "t", importer.FormatCSV)
			Expect(err).NotTo(HaveOccurred())
			Expect(countRows("t")).To(Equal(2))
		})
	})

	Context("json", func() {
		// Given a json array of objects
		// When it is imported
		// Then columns come from the first object's keys, sorted
		It("should load a json array of objects", func() {
			buf := []byte(`[{"name": "alice", "age": 31}, {"name": "bob", "age": 45}]`)

			rows, err := importer.Import(ctx, db, buf, "users", importer.FormatJSON)
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(Equal(2))

			var age string
			r := db.QueryRowContext(ctx, `SELECT age FROM users WHERE name = 'bob'`)
			Expect(r.Scan(&age)).To(Succeed())
			Expect(age).To(Equal("45"))
		})

		It("should reject a non-array json buffer", func() {
			_, err := importer.Import(ctx, db, []byte(`{"not": "an array"}`), "bad", importer.FormatJSON)
			Expect(err).To(HaveOccurred())
		})

		It("should reject an empty json array", func() {
			_, err := importer.Import(ctx, db, []byte(`[]`), "bad", importer.FormatJSON)
			Expect(err).To(HaveOccurred())
		})
	})

	Context("xlsx", func() {
		xlsxBuffer := func(rows [][]any) []byte {
			f := excelize.NewFile()
			defer f.Close()
			for i, row := range rows {
				cell, err := excelize.CoordinatesToCellName(1, i+1)
				Expect(err).NotTo(HaveOccurred())
				Expect(f.SetSheetRow("Sheet1", cell, &row)).To(Succeed())
			}
			var buf bytes.Buffer
			_, err := f.WriteTo(&buf)
			Expect(err).NotTo(HaveOccurred())
			return buf.Bytes()
		}

		It("should load the first sheet of a workbook", func() {
			buf := xlsxBuffer([][]any{
				{"sku", "qty"},
				{"A-1", "3"},
				{"B-2", "7"},
			})

			rows, err := importer.Import(ctx, db, buf, "stock", importer.FormatXLSX)
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(Equal(2))
			Expect(countRows("stock")).To(Equal(2))
		})

		It("should reject a buffer that is not a workbook", func() {
			_, err := importer.Import(ctx, db, []byte("plain text"), "bad", importer.FormatXLSX)
			Expect(err).To(HaveOccurred())
		})
	})

	Context("identifiers", func() {
		It("should quote table and column names", func() {
			buf := []byte("weird name,other\n1,2\n")

			rows, err := importer.Import(ctx, db, buf, "my table", importer.FormatCSV)
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(Equal(1))

			var v string
			r := db.QueryRowContext(ctx, `SELECT "weird name" FROM "my table"`)
			Expect(r.Scan(&v)).To(Succeed())
			Expect(v).To(Equal("1"))
		})
	})
})

var _ = Describe("ParseFormat", func() {
	It("should map known names including aliases", func() {
		Expect(importer.ParseFormat("csv")).To(Equal(importer.FormatCSV))
		Expect(importer.ParseFormat("XLSX")).To(Equal(importer.FormatXLSX))
		Expect(importer.ParseFormat("excel")).To(Equal(importer.FormatXLSX))
		Expect(importer.ParseFormat("json")).To(Equal(importer.FormatJSON))
	})

	It("should reject unknown formats", func() {
		_, err := importer.ParseFormat("parquet")
		Expect(err).To(HaveOccurred())
	})
})
