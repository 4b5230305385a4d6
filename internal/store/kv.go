package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/querydeck/querydeck/internal/history"
	"github.com/querydeck/querydeck/internal/models"
	srvErrors "github.com/querydeck/querydeck/pkg/errors"
)

// OpenFallback opens the key/value fallback database. One logical store per
// primary table name, keyed by profile id plus the entity's own key; values
// are JSON blobs.
func OpenFallback(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS kv_store (
			store TEXT NOT NULL,
			profile_id TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (store, profile_id, key)
		)`); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// kvTable scopes key/value access to one logical store.
type kvTable struct {
	db    *sql.DB
	store string
}

func (t kvTable) put(ctx context.Context, profileID, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	_, err = t.db.ExecContext(ctx, `
		INSERT INTO kv_store (store, profile_id, key, value) VALUES (?, ?, ?, ?)
		ON CONFLICT (store, profile_id, key) DO UPDATE SET value = excluded.value`,
		t.store, profileID, key, string(raw))
	return err
}

func (t kvTable) get(ctx context.Context, profileID, key string, out any) error {
	var raw string
	err := t.db.QueryRowContext(ctx,
		`SELECT value FROM kv_store WHERE store = ? AND profile_id = ? AND key = ?`,
		t.store, profileID, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return srvErrors.NewResourceNotFoundError(t.store, key)
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), out)
}

// list decodes every value under a profile into items via decode. A decode
// failure skips that record only.
func (t kvTable) list(ctx context.Context, profileID string, decode func(raw []byte) error) error {
	rows, err := t.db.QueryContext(ctx,
		`SELECT value FROM kv_store WHERE store = ? AND profile_id = ? ORDER BY key`,
		t.store, profileID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return err
		}
		if err := decode([]byte(raw)); err != nil {
			continue
		}
	}
	return rows.Err()
}

func (t kvTable) delete(ctx context.Context, profileID, key string) error {
	_, err := t.db.ExecContext(ctx,
		`DELETE FROM kv_store WHERE store = ? AND profile_id = ? AND key = ?`,
		t.store, profileID, key)
	return err
}

func (t kvTable) clear(ctx context.Context, profileID string) error {
	_, err := t.db.ExecContext(ctx,
		`DELETE FROM kv_store WHERE store = ? AND profile_id = ?`,
		t.store, profileID)
	return err
}

// kvProfileRepo stores profiles under an empty profile scope, keyed by id.
type kvProfileRepo struct {
	kv kvTable
}

func (r *kvProfileRepo) Save(ctx context.Context, p models.Profile) error {
	return r.kv.put(ctx, "", p.ID, p)
}

func (r *kvProfileRepo) Get(ctx context.Context, id string) (*models.Profile, error) {
	var p models.Profile
	if err := r.kv.get(ctx, "", id, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *kvProfileRepo) GetByName(ctx context.Context, name string) (*models.Profile, error) {
	profiles, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range profiles {
		if profiles[i].Name == name {
			return &profiles[i], nil
		}
	}
	return nil, srvErrors.NewResourceNotFoundError("profile", name)
}

func (r *kvProfileRepo) List(ctx context.Context) ([]models.Profile, error) {
	var profiles []models.Profile
	err := r.kv.list(ctx, "", func(raw []byte) error {
		var p models.Profile
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		profiles = append(profiles, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].CreatedAt.Before(profiles[j].CreatedAt) })
	return profiles, nil
}

func (r *kvProfileRepo) Delete(ctx context.Context, id string) error {
	return r.kv.delete(ctx, "", id)
}

type kvConnectionRepo struct {
	kv     kvTable
	cipher *FieldCipher
}

// storedConnection is the JSON value kept in the fallback store. Credentials
// are sealed before marshalling, same as the primary path.
type storedConnection struct {
	models.ConnectionDescriptor
	SealedPassword string `json:"sealedPassword"`
	SealedAPIKey   string `json:"sealedApiKey"`
}

func (r *kvConnectionRepo) Save(ctx context.Context, profileID string, c models.ConnectionDescriptor) error {
	sealed := storedConnection{ConnectionDescriptor: c}
	var err error
	if sealed.SealedPassword, err = r.cipher.Seal(profileID, c.Password); err != nil {
		return err
	}
	if sealed.SealedAPIKey, err = r.cipher.Seal(profileID, c.APIKey); err != nil {
		return err
	}
	sealed.Password = ""
	sealed.APIKey = ""
	return r.kv.put(ctx, profileID, c.ID, sealed)
}

func (r *kvConnectionRepo) Get(ctx context.Context, profileID, id string) (*models.ConnectionDescriptor, error) {
	var sealed storedConnection
	if err := r.kv.get(ctx, profileID, id, &sealed); err != nil {
		return nil, err
	}
	c := r.unseal(profileID, sealed)
	return &c, nil
}

func (r *kvConnectionRepo) List(ctx context.Context, profileID string) ([]models.ConnectionDescriptor, error) {
	var conns []models.ConnectionDescriptor
	err := r.kv.list(ctx, profileID, func(raw []byte) error {
		var sealed storedConnection
		if err := json.Unmarshal(raw, &sealed); err != nil {
			return err
		}
		conns = append(conns, r.unseal(profileID, sealed))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(conns, func(i, j int) bool { return conns[i].Name < conns[j].Name })
	return conns, nil
}

func (r *kvConnectionRepo) unseal(profileID string, sealed storedConnection) models.ConnectionDescriptor {
	c := sealed.ConnectionDescriptor
	c.Password = r.cipher.Open(profileID, sealed.SealedPassword)
	c.APIKey = r.cipher.Open(profileID, sealed.SealedAPIKey)
	return c
}

func (r *kvConnectionRepo) Delete(ctx context.Context, profileID, id string) error {
	return r.kv.delete(ctx, profileID, id)
}

type kvHistoryRepo struct {
	kv kvTable
}

// Save keeps the whole history list under one key so the dedupe-and-cap pass
// stays atomic per profile.
func (r *kvHistoryRepo) Save(ctx context.Context, profileID string, item models.QueryHistoryItem) error {
	items, err := r.List(ctx, profileID)
	if err != nil {
		return err
	}
	for i := range items {
		if items[i].Query == item.Query {
			items = append(items[:i], items[i+1:]...)
			break
		}
	}
	items = append([]models.QueryHistoryItem{item}, items...)
	if len(items) > history.DefaultCapacity {
		items = items[:history.DefaultCapacity]
	}
	return r.kv.put(ctx, profileID, "items", items)
}

func (r *kvHistoryRepo) List(ctx context.Context, profileID string) ([]models.QueryHistoryItem, error) {
	var items []models.QueryHistoryItem
	err := r.kv.get(ctx, profileID, "items", &items)
	if srvErrors.IsResourceNotFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *kvHistoryRepo) Clear(ctx context.Context, profileID string) error {
	return r.kv.clear(ctx, profileID)
}

type kvWorkspaceRepo struct {
	kv kvTable
}

func (r *kvWorkspaceRepo) Save(ctx context.Context, ws models.WorkspaceState) error {
	return r.kv.put(ctx, ws.ProfileID, "state", ws)
}

func (r *kvWorkspaceRepo) Get(ctx context.Context, profileID string) (*models.WorkspaceState, error) {
	var ws models.WorkspaceState
	if err := r.kv.get(ctx, profileID, "state", &ws); err != nil {
		return nil, err
	}
	ws.ProfileID = profileID
	return &ws, nil
}

type kvAIConfigRepo struct {
	kv     kvTable
	cipher *FieldCipher
}

type storedAIConfig struct {
	models.AIProviderConfig
	SealedAPIKey string `json:"sealedApiKey"`
}

func (r *kvAIConfigRepo) Save(ctx context.Context, profileID string, cfg models.AIProviderConfig) error {
	sealed := storedAIConfig{AIProviderConfig: cfg}
	var err error
	if sealed.SealedAPIKey, err = r.cipher.Seal(profileID, cfg.APIKey); err != nil {
		return err
	}
	sealed.APIKey = ""
	return r.kv.put(ctx, profileID, cfg.ID, sealed)
}

func (r *kvAIConfigRepo) List(ctx context.Context, profileID string) ([]models.AIProviderConfig, error) {
	var configs []models.AIProviderConfig
	err := r.kv.list(ctx, profileID, func(raw []byte) error {
		var sealed storedAIConfig
		if err := json.Unmarshal(raw, &sealed); err != nil {
			return err
		}
		cfg := sealed.AIProviderConfig
		cfg.APIKey = r.cipher.Open(profileID, sealed.SealedAPIKey)
		configs = append(configs, cfg)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].Provider < configs[j].Provider })
	return configs, nil
}

func (r *kvAIConfigRepo) Delete(ctx context.Context, profileID, id string) error {
	return r.kv.delete(ctx, profileID, id)
}

type kvSettingsRepo struct {
	kv kvTable
}

func (r *kvSettingsRepo) Set(ctx context.Context, profileID, key, value string) error {
	return r.kv.put(ctx, profileID, key, value)
}

func (r *kvSettingsRepo) Get(ctx context.Context, profileID, key string) (string, error) {
	var value string
	if err := r.kv.get(ctx, profileID, key, &value); err != nil {
		return "", err
	}
	return value, nil
}

func (r *kvSettingsRepo) List(ctx context.Context, profileID string) ([]models.Setting, error) {
	rows, err := r.kv.db.QueryContext(ctx,
		`SELECT key, value FROM kv_store WHERE store = ? AND profile_id = ? ORDER BY key`,
		r.kv.store, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []models.Setting
	for rows.Next() {
		var s models.Setting
		var raw string
		if err := rows.Scan(&s.Key, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &s.Value); err != nil {
			continue
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

func (r *kvSettingsRepo) Delete(ctx context.Context, profileID, key string) error {
	return r.kv.delete(ctx, profileID, key)
}

type kvSavedQueryRepo struct {
	kv kvTable
}

func (r *kvSavedQueryRepo) Save(ctx context.Context, profileID string, q models.SavedQuery) error {
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now()
	}
	return r.kv.put(ctx, profileID, q.ID, q)
}

func (r *kvSavedQueryRepo) List(ctx context.Context, profileID string) ([]models.SavedQuery, error) {
	var queries []models.SavedQuery
	err := r.kv.list(ctx, profileID, func(raw []byte) error {
		var q models.SavedQuery
		if err := json.Unmarshal(raw, &q); err != nil {
			return err
		}
		queries = append(queries, q)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(queries, func(i, j int) bool { return queries[i].CreatedAt.After(queries[j].CreatedAt) })
	return queries, nil
}

func (r *kvSavedQueryRepo) Delete(ctx context.Context, profileID, id string) error {
	return r.kv.delete(ctx, profileID, id)
}
