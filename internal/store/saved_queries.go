package store

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"github.com/querydeck/querydeck/internal/models"
)

type sqlSavedQueryRepo struct {
	db *sql.DB
}

func (r *sqlSavedQueryRepo) Save(ctx context.Context, profileID string, q models.SavedQuery) error {
	_, err := r.db.ExecContext(ctx, queryUpsertSavedQuery, q.ID, profileID, q.Name, q.Query, q.CreatedAt)
	return err
}

func (r *sqlSavedQueryRepo) List(ctx context.Context, profileID string) ([]models.SavedQuery, error) {
	query, args, err := sq.Select("id", "name", "query", "created_at").
		From("saved_queries").
		Where(sq.Eq{"profile_id": profileID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var queries []models.SavedQuery
	for rows.Next() {
		var q models.SavedQuery
		if err := rows.Scan(&q.ID, &q.Name, &q.Query, &q.CreatedAt); err != nil {
			return nil, err
		}
		queries = append(queries, q)
	}
	return queries, rows.Err()
}

func (r *sqlSavedQueryRepo) Delete(ctx context.Context, profileID, id string) error {
	_, err := r.db.ExecContext(ctx, queryDeleteSavedQuery, profileID, id)
	return err
}
