package models

import "time"

// Row maps a column name to a normalized scalar: float64, string, bool,
// time.Time or nil. Raw decimal and big-integer wrappers never reach a Row.
type Row map[string]any

// QueryResult is the canonical tabular shape every backend converges to.
// A failed execution still yields a QueryResult, with Error set and empty
// columns and data, so callers always have something to render.
type QueryResult struct {
	Columns     []string `json:"columns"`
	ColumnTypes []string `json:"columnTypes"`
	Data        []Row    `json:"data"`
	RowCount    int      `json:"rowCount"`
	Error       string   `json:"error,omitempty"`
}

// ErrorResult builds the uniform failure-shaped result.
func ErrorResult(err error) *QueryResult {
	return &QueryResult{
		Columns:     []string{},
		ColumnTypes: []string{},
		Data:        []Row{},
		Error:       err.Error(),
	}
}

// QueryHistoryItem is one ledger entry. Query text is unique within the ledger.
type QueryHistoryItem struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

// ColumnInfo describes one column of a schema listing.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// TableInfo describes one table known to the current backend.
type TableInfo struct {
	Database string       `json:"database"`
	Name     string       `json:"name"`
	Columns  []ColumnInfo `json:"columns"`
}
