package store

import (
	"context"
	"database/sql"
	"encoding/json"

	sq "github.com/Masterminds/squirrel"

	"github.com/querydeck/querydeck/internal/models"
)

type sqlAIConfigRepo struct {
	db     *sql.DB
	cipher *FieldCipher
}

func (r *sqlAIConfigRepo) Save(ctx context.Context, profileID string, cfg models.AIProviderConfig) error {
	apiKey, err := r.cipher.Seal(profileID, cfg.APIKey)
	if err != nil {
		return err
	}
	options, err := json.Marshal(cfg.Options)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, queryUpsertAIConfig,
		cfg.ID, profileID, cfg.Provider, cfg.Model, apiKey, string(options))
	return err
}

func (r *sqlAIConfigRepo) List(ctx context.Context, profileID string) ([]models.AIProviderConfig, error) {
	query, args, err := sq.Select("id", "provider", "model", "api_key", "options").
		From("ai_provider_configs").
		Where(sq.Eq{"profile_id": profileID}).
		OrderBy("provider").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []models.AIProviderConfig
	for rows.Next() {
		var cfg models.AIProviderConfig
		var apiKey, options string
		if err := rows.Scan(&cfg.ID, &cfg.Provider, &cfg.Model, &apiKey, &options); err != nil {
			return nil, err
		}
		cfg.APIKey = r.cipher.Open(profileID, apiKey)
		if err := json.Unmarshal([]byte(options), &cfg.Options); err != nil {
			cfg.Options = nil
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

func (r *sqlAIConfigRepo) Delete(ctx context.Context, profileID, id string) error {
	_, err := r.db.ExecContext(ctx, queryDeleteAIConfig, profileID, id)
	return err
}
