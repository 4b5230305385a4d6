package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/querydeck/querydeck/internal/models"
	srvErrors "github.com/querydeck/querydeck/pkg/errors"
)

type sqlProfileRepo struct {
	db *sql.DB
}

func (r *sqlProfileRepo) Save(ctx context.Context, p models.Profile) error {
	_, err := r.db.ExecContext(ctx, queryUpsertProfile, p.ID, p.Name, p.Protected, p.VerifyToken, p.Salt)
	return err
}

func (r *sqlProfileRepo) Get(ctx context.Context, id string) (*models.Profile, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, queryGetProfile, id), id)
}

func (r *sqlProfileRepo) GetByName(ctx context.Context, name string) (*models.Profile, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, queryGetProfileByName, name), name)
}

func (r *sqlProfileRepo) scanOne(row *sql.Row, ref string) (*models.Profile, error) {
	var p models.Profile
	var createdAt time.Time
	err := row.Scan(&p.ID, &p.Name, &p.Protected, &p.VerifyToken, &p.Salt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, srvErrors.NewResourceNotFoundError("profile", ref)
	}
	if err != nil {
		return nil, err
	}
	p.CreatedAt = createdAt
	return &p, nil
}

func (r *sqlProfileRepo) List(ctx context.Context) ([]models.Profile, error) {
	query, args, err := sq.Select("id", "name", "protected", "verify_token", "salt", "created_at").
		From("profiles").
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		var p models.Profile
		if err := rows.Scan(&p.ID, &p.Name, &p.Protected, &p.VerifyToken, &p.Salt, &p.CreatedAt); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func (r *sqlProfileRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, queryDeleteProfile, id)
	return err
}
