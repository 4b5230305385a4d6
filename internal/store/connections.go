package store

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"github.com/querydeck/querydeck/internal/models"
	srvErrors "github.com/querydeck/querydeck/pkg/errors"
)

type sqlConnectionRepo struct {
	db     *sql.DB
	cipher *FieldCipher
}

func (r *sqlConnectionRepo) Save(ctx context.Context, profileID string, c models.ConnectionDescriptor) error {
	password, err := r.cipher.Seal(profileID, c.Password)
	if err != nil {
		return err
	}
	apiKey, err := r.cipher.Seal(profileID, c.APIKey)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, queryUpsertConnection,
		c.ID, profileID, c.Name, string(c.Scope), string(c.Environment),
		c.Host, c.Port, c.Path, c.User, password, apiKey, string(c.AuthMode))
	return err
}

func (r *sqlConnectionRepo) Get(ctx context.Context, profileID, id string) (*models.ConnectionDescriptor, error) {
	conns, err := r.list(ctx, profileID, sq.Eq{"id": id})
	if err != nil {
		return nil, err
	}
	if len(conns) == 0 {
		return nil, srvErrors.NewResourceNotFoundError("connection", id)
	}
	return &conns[0], nil
}

func (r *sqlConnectionRepo) List(ctx context.Context, profileID string) ([]models.ConnectionDescriptor, error) {
	return r.list(ctx, profileID, nil)
}

func (r *sqlConnectionRepo) list(ctx context.Context, profileID string, extra sq.Sqlizer) ([]models.ConnectionDescriptor, error) {
	builder := sq.Select("id", "name", "scope", "environment", "host", "port", "path", "username", "password", "api_key", "auth_mode").
		From("connections").
		Where(sq.Eq{"profile_id": profileID}).
		OrderBy("name")
	if extra != nil {
		builder = builder.Where(extra)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conns []models.ConnectionDescriptor
	for rows.Next() {
		var c models.ConnectionDescriptor
		var scope, environment, authMode, password, apiKey string
		err := rows.Scan(&c.ID, &c.Name, &scope, &environment, &c.Host, &c.Port, &c.Path, &c.User, &password, &apiKey, &authMode)
		if err != nil {
			return nil, err
		}
		c.Scope = models.Scope(scope)
		c.Environment = models.Environment(environment)
		c.AuthMode = models.AuthMode(authMode)
		c.Password = r.cipher.Open(profileID, password)
		c.APIKey = r.cipher.Open(profileID, apiKey)
		conns = append(conns, c)
	}
	return conns, rows.Err()
}

func (r *sqlConnectionRepo) Delete(ctx context.Context, profileID, id string) error {
	_, err := r.db.ExecContext(ctx, queryDeleteConnection, profileID, id)
	return err
}
