// Package normalize collapses engine-specific raw results into the canonical
// QueryResult shape. Local results come from database/sql rows; remote results
// come from a protocol response body tried against an ordered list of
// candidate parsers.
package normalize

import (
	"database/sql"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	duckdb "github.com/duckdb/duckdb-go/v2"
	"go.uber.org/zap"

	"github.com/querydeck/querydeck/internal/models"
)

// LocalRows converts a local engine result set into a QueryResult. Column
// names and types come from the declared schema, never inferred from data.
// Per-cell coercion failures are logged and resolve to nil; a single malformed
// value cannot fail the result set.
func LocalRows(rows *sql.Rows) (*models.QueryResult, error) {
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	columns := make([]string, len(columnTypes))
	typeNames := make([]string, len(columnTypes))
	for i, ct := range columnTypes {
		columns[i] = ct.Name()
		typeNames[i] = ct.DatabaseTypeName()
	}

	result := &models.QueryResult{
		Columns:     columns,
		ColumnTypes: typeNames,
		Data:        []models.Row{},
	}

	for rows.Next() {
		raw := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(models.Row, len(columns))
		for i, col := range columns {
			row[col] = coerceCell(raw[i], columnTypes[i])
		}
		result.Data = append(result.Data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result.RowCount = len(result.Data)
	return result, nil
}

// coerceCell applies the targeted conversions: decimals become plain numbers,
// day-resolution dates become locale date strings, timestamps stay native
// times, everything else passes through.
func coerceCell(v any, ct *sql.ColumnType) any {
	if v == nil {
		return nil
	}

	typeName := strings.ToUpper(ct.DatabaseTypeName())
	switch {
	case strings.HasPrefix(typeName, "DECIMAL"), typeName == "NUMERIC":
		return coerceDecimal(v, ct)
	case typeName == "DATE":
		if t, ok := v.(time.Time); ok {
			return t.Format("1/2/2006")
		}
		return v
	case strings.HasPrefix(typeName, "TIMESTAMP"):
		if t, ok := v.(time.Time); ok {
			return t
		}
		return v
	case typeName == "HUGEINT", typeName == "UHUGEINT":
		if b, ok := v.(*big.Int); ok {
			f, _ := new(big.Float).SetInt(b).Float64()
			return f
		}
		return v
	default:
		return v
	}
}

// coerceDecimal computes unscaled / 10^scale. The unscaled value arrives as
// the driver's decimal wrapper, a plain number or a string; anything
// unparseable resolves to nil.
func coerceDecimal(v any, ct *sql.ColumnType) any {
	switch d := v.(type) {
	case duckdb.Decimal:
		return d.Float64()
	case *big.Int:
		_, scale, _ := ct.DecimalSize()
		f, _ := new(big.Float).SetInt(d).Float64()
		return f / math.Pow10(int(scale))
	case float64:
		return d
	case float32:
		return float64(d)
	case int64:
		_, scale, _ := ct.DecimalSize()
		return float64(d) / math.Pow10(int(scale))
	case string:
		f, err := strconv.ParseFloat(d, 64)
		if err != nil {
			zap.S().Named("normalize").Debugw("unparseable decimal value", "column", ct.Name(), "value", d)
			return nil
		}
		return f
	default:
		zap.S().Named("normalize").Debugw("unexpected decimal representation", "column", ct.Name(), "type", fmt.Sprintf("%T", v))
		return nil
	}
}
