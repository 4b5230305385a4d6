package store

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"

	"github.com/querydeck/querydeck/internal/models"
	srvErrors "github.com/querydeck/querydeck/pkg/errors"
)

type sqlSettingsRepo struct {
	db *sql.DB
}

func (r *sqlSettingsRepo) Set(ctx context.Context, profileID, key, value string) error {
	_, err := r.db.ExecContext(ctx, queryUpsertSetting, profileID, key, value)
	return err
}

func (r *sqlSettingsRepo) Get(ctx context.Context, profileID, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, queryGetSetting, profileID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", srvErrors.NewResourceNotFoundError("setting", key)
	}
	return value, err
}

func (r *sqlSettingsRepo) List(ctx context.Context, profileID string) ([]models.Setting, error) {
	query, args, err := sq.Select("key", "value").
		From("settings").
		Where(sq.Eq{"profile_id": profileID}).
		OrderBy("key").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []models.Setting
	for rows.Next() {
		var s models.Setting
		if err := rows.Scan(&s.Key, &s.Value); err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

func (r *sqlSettingsRepo) Delete(ctx context.Context, profileID, key string) error {
	_, err := r.db.ExecContext(ctx, queryDeleteSetting, profileID, key)
	return err
}
