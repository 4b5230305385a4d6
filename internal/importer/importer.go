// Package importer loads caller-supplied file buffers into a table of the
// current local engine. Supported formats: csv, xlsx and json arrays of
// objects. Every imported column is VARCHAR; type refinement is left to the
// user's queries.
package importer

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Format identifies a supported import format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported import format: %s", s)
	}
}

// Import parses buf according to format and loads it into table. The first
// row (or the JSON object keys) provides column names.
func Import(ctx context.Context, db *sql.DB, buf []byte, table string, format Format) (int, error) {
	var header []string
	var records [][]string
	var err error

	switch format {
	case FormatCSV:
		header, records, err = parseCSV(buf)
	case FormatXLSX:
		header, records, err = parseXLSX(buf)
	case FormatJSON:
		header, records, err = parseJSON(buf)
	default:
		return 0, fmt.Errorf("unsupported import format: %s", format)
	}
	if err != nil {
		return 0, err
	}
	if len(header) == 0 {
		return 0, fmt.Errorf("import buffer has no columns")
	}

	if err := load(ctx, db, table, header, records); err != nil {
		return 0, err
	}
	zap.S().Named("importer").Infow("file imported", "table", table, "format", format, "rows", len(records))
	return len(records), nil
}

func parseCSV(buf []byte) ([]string, [][]string, error) {
	reader := csv.NewReader(bytes.NewReader(buf))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("csv buffer is empty")
	}
	return rows[0], rows[1:], nil
}

func parseXLSX(buf []byte) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(buf))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}
	return rows[0], rows[1:], nil
}

func parseJSON(buf []byte) ([]string, [][]string, error) {
	var objects []map[string]any
	if err := json.Unmarshal(buf, &objects); err != nil {
		return nil, nil, fmt.Errorf("failed to parse json: %w", err)
	}
	if len(objects) == 0 {
		return nil, nil, fmt.Errorf("json buffer has no objects")
	}

	// Column order follows the first object's keys, sorted for determinism.
	var header []string
	for key := range objects[0] {
		header = append(header, key)
	}
	sort.Strings(header)

	records := make([][]string, 0, len(objects))
	for _, obj := range objects {
		row := make([]string, len(header))
		for i, key := range header {
			row[i] = stringify(obj[key])
		}
		records = append(records, row)
	}
	return header, records, nil
}

func load(ctx context.Context, db *sql.DB, table string, header []string, records [][]string) error {
	cols := make([]string, len(header))
	placeholders := make([]string, len(header))
	for i, name := range header {
		cols[i] = quoteIdent(name) + " VARCHAR"
		placeholders[i] = "?"
	}

	createStmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		quoteIdent(table), strings.Join(cols, ", "))
	if _, err := db.ExecContext(ctx, createStmt); err != nil {
		return fmt.Errorf("failed to create target table: %w", err)
	}

	insertStmt := fmt.Sprintf("INSERT INTO %s VALUES (%s)",
		quoteIdent(table), strings.Join(placeholders, ", "))
	stmt, err := db.PrepareContext(ctx, insertStmt)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, record := range records {
		args := make([]any, len(header))
		for i := range header {
			if i < len(record) {
				args[i] = record[i]
			} else {
				args[i] = nil
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert row: %w", err)
		}
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(raw)
	}
}
