package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"

	srvErrors "github.com/querydeck/querydeck/pkg/errors"
)

// Opener opens an engine instance for a data source name. Injected into the
// Manager so tests can substitute a fake without touching a real engine.
type Opener interface {
	Open(ctx context.Context, dsn string) (*sql.DB, error)
}

// duckdbOpener opens DuckDB databases, installs the baseline format readers
// and classifies exclusive-lock failures into typed contention errors at the
// point of failure, so the retry policy never has to inspect error text.
type duckdbOpener struct{}

// baselineStatements run on every new instance to install the format readers
// imports rely on.
var baselineStatements = []string{
	"INSTALL json",
	"LOAD json",
}

func (duckdbOpener) Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, classifyOpenError(dsn, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, classifyOpenError(dsn, err)
	}
	for _, stmt := range baselineStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to install baseline capabilities (%s): %w", stmt, err)
		}
	}
	return db, nil
}

// classifyOpenError maps the driver's lock-conflict failures to transient
// contention. The driver only exposes these as text, so the one string check
// lives here and nowhere else.
func classifyOpenError(dsn string, err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "lock") || strings.Contains(msg, "conflicting") || strings.Contains(msg, "being used") {
		return srvErrors.NewTransientContentionError(dsn)
	}
	return err
}
