package store

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"github.com/querydeck/querydeck/internal/history"
	"github.com/querydeck/querydeck/internal/models"
)

type sqlHistoryRepo struct {
	db *sql.DB
}

// Save mirrors the in-memory ledger semantics durably: an existing entry with
// the same query text is replaced, then the table is trimmed to the ledger
// capacity, newest first.
func (r *sqlHistoryRepo) Save(ctx context.Context, profileID string, item models.QueryHistoryItem) error {
	if _, err := r.db.ExecContext(ctx, queryDeleteHistoryByText, profileID, item.Query); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, queryInsertHistory,
		item.ID, profileID, item.Query, item.Error, item.Timestamp); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, queryTrimHistory, profileID, profileID, history.DefaultCapacity)
	return err
}

func (r *sqlHistoryRepo) List(ctx context.Context, profileID string) ([]models.QueryHistoryItem, error) {
	query, args, err := sq.Select("id", "query", "error", "executed_at").
		From("query_history").
		Where(sq.Eq{"profile_id": profileID}).
		OrderBy("executed_at DESC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.QueryHistoryItem
	for rows.Next() {
		var item models.QueryHistoryItem
		if err := rows.Scan(&item.ID, &item.Query, &item.Error, &item.Timestamp); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *sqlHistoryRepo) Clear(ctx context.Context, profileID string) error {
	_, err := r.db.ExecContext(ctx, queryClearHistory, profileID)
	return err
}
