// Package schema maintains an up-to-date listing of databases, tables and
// columns for the currently selected backend.
package schema

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/querydeck/querydeck/internal/engine"
	"github.com/querydeck/querydeck/internal/models"
	"github.com/querydeck/querydeck/internal/normalize"
	srvErrors "github.com/querydeck/querydeck/pkg/errors"
)

const localColumnsQuery = `
	SELECT table_catalog, table_name, column_name, data_type
	FROM information_schema.columns
	ORDER BY table_catalog, table_name, ordinal_position`

const remoteColumnsQuery = `
	SELECT database, table, name, type FROM system.columns
	WHERE database NOT IN ('system', 'information_schema', 'INFORMATION_SCHEMA')
	ORDER BY database, table, position FORMAT JSON`

// EngineSource resolves the currently selected engine.
type EngineSource interface {
	Current() (*engine.Handle, models.ConnectionDescriptor, error)
}

// RemoteFactory builds a protocol client for a remote descriptor.
type RemoteFactory func(models.ConnectionDescriptor) *engine.RemoteClient

// Refresher queries the current backend for its table listing and caches it.
// Refresh implements the collaborator interface the engine manager and the
// query pipeline call after scope switches and DDL.
type Refresher struct {
	log     *zap.SugaredLogger
	engines EngineSource
	remote  RemoteFactory

	mu     sync.Mutex
	tables []models.TableInfo
}

func NewRefresher(engines EngineSource) *Refresher {
	return &Refresher{
		log:     zap.S().Named("schema"),
		engines: engines,
		remote:  engine.NewRemoteClient,
	}
}

// Refresh re-reads the schema listing from the current backend.
func (r *Refresher) Refresh(ctx context.Context) error {
	handle, desc, err := r.engines.Current()
	if err != nil {
		return err
	}

	var result *models.QueryResult
	if desc.Scope == models.ScopeRemote {
		body, err := r.remote(desc).Execute(ctx, remoteColumnsQuery)
		if err != nil {
			return err
		}
		result, err = normalize.RemoteBody(body)
		if err != nil {
			return err
		}
	} else {
		if handle == nil || handle.DB == nil {
			return srvErrors.NewConnectionInvalidError("no live engine handle")
		}
		rows, err := handle.DB.QueryContext(ctx, localColumnsQuery)
		if err != nil {
			return err
		}
		defer rows.Close()
		result, err = normalize.LocalRows(rows)
		if err != nil {
			return err
		}
	}

	tables := groupColumns(result)

	r.mu.Lock()
	r.tables = tables
	r.mu.Unlock()
	r.log.Debugw("schema refreshed", "tables", len(tables))
	return nil
}

// Tables returns the most recently refreshed listing.
func (r *Refresher) Tables() []models.TableInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.TableInfo, len(r.tables))
	copy(out, r.tables)
	return out
}

// groupColumns folds the flat (database, table, column, type) rows into
// TableInfo entries, preserving row order.
func groupColumns(result *models.QueryResult) []models.TableInfo {
	if len(result.Columns) < 4 {
		return nil
	}
	dbCol, tableCol := result.Columns[0], result.Columns[1]
	nameCol, typeCol := result.Columns[2], result.Columns[3]

	var tables []models.TableInfo
	index := make(map[string]int)
	for _, row := range result.Data {
		db, _ := row[dbCol].(string)
		table, _ := row[tableCol].(string)
		name, _ := row[nameCol].(string)
		colType, _ := row[typeCol].(string)
		if table == "" {
			continue
		}

		key := db + "." + table
		i, ok := index[key]
		if !ok {
			tables = append(tables, models.TableInfo{Database: db, Name: table})
			i = len(tables) - 1
			index[key] = i
		}
		tables[i].Columns = append(tables[i].Columns, models.ColumnInfo{Name: name, Type: colType})
	}
	return tables
}
