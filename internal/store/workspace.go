package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/querydeck/querydeck/internal/models"
	srvErrors "github.com/querydeck/querydeck/pkg/errors"
)

type sqlWorkspaceRepo struct {
	db *sql.DB
}

func (r *sqlWorkspaceRepo) Save(ctx context.Context, ws models.WorkspaceState) error {
	state, err := json.Marshal(ws)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, queryUpsertWorkspace, ws.ProfileID, string(state))
	return err
}

func (r *sqlWorkspaceRepo) Get(ctx context.Context, profileID string) (*models.WorkspaceState, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, queryGetWorkspace, profileID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, srvErrors.NewResourceNotFoundError("workspace", profileID)
	}
	if err != nil {
		return nil, err
	}

	var ws models.WorkspaceState
	if err := json.Unmarshal([]byte(raw), &ws); err != nil {
		return nil, err
	}
	ws.ProfileID = profileID
	return &ws, nil
}
