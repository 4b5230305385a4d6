// Package store implements the profile-scoped persistence gateway. The
// primary backend is a DuckDB database shaped by the migrations package; when
// that database cannot be opened the gateway falls back to a key/value store
// so callers keep the same repository surface either way.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2"
	"go.uber.org/zap"

	"github.com/querydeck/querydeck/internal/models"
	"github.com/querydeck/querydeck/internal/store/migrations"
)

// ProfileRepo persists profiles.
type ProfileRepo interface {
	Save(ctx context.Context, p models.Profile) error
	Get(ctx context.Context, id string) (*models.Profile, error)
	GetByName(ctx context.Context, name string) (*models.Profile, error)
	List(ctx context.Context) ([]models.Profile, error)
	Delete(ctx context.Context, id string) error
}

// ConnectionRepo persists connection descriptors with encrypted credentials.
type ConnectionRepo interface {
	Save(ctx context.Context, profileID string, c models.ConnectionDescriptor) error
	Get(ctx context.Context, profileID, id string) (*models.ConnectionDescriptor, error)
	List(ctx context.Context, profileID string) ([]models.ConnectionDescriptor, error)
	Delete(ctx context.Context, profileID, id string) error
}

// HistoryRepo is the durable mirror of the in-memory ledger, with the same
// dedupe-and-cap semantics.
type HistoryRepo interface {
	Save(ctx context.Context, profileID string, item models.QueryHistoryItem) error
	List(ctx context.Context, profileID string) ([]models.QueryHistoryItem, error)
	Clear(ctx context.Context, profileID string) error
}

// WorkspaceRepo persists one workspace state row per profile.
type WorkspaceRepo interface {
	Save(ctx context.Context, ws models.WorkspaceState) error
	Get(ctx context.Context, profileID string) (*models.WorkspaceState, error)
}

// AIConfigRepo persists AI provider entries with encrypted API keys.
type AIConfigRepo interface {
	Save(ctx context.Context, profileID string, cfg models.AIProviderConfig) error
	List(ctx context.Context, profileID string) ([]models.AIProviderConfig, error)
	Delete(ctx context.Context, profileID, id string) error
}

// SettingsRepo persists free-form key/value settings per profile.
type SettingsRepo interface {
	Set(ctx context.Context, profileID, key, value string) error
	Get(ctx context.Context, profileID, key string) (string, error)
	List(ctx context.Context, profileID string) ([]models.Setting, error)
	Delete(ctx context.Context, profileID, key string) error
}

// SavedQueryRepo persists named queries.
type SavedQueryRepo interface {
	Save(ctx context.Context, profileID string, q models.SavedQuery) error
	List(ctx context.Context, profileID string) ([]models.SavedQuery, error)
	Delete(ctx context.Context, profileID, id string) error
}

// Store provides access to all storage repositories.
type Store struct {
	db       *sql.DB
	fallback bool

	profiles     ProfileRepo
	connections  ConnectionRepo
	history      HistoryRepo
	workspace    WorkspaceRepo
	aiConfigs    AIConfigRepo
	settings     SettingsRepo
	savedQueries SavedQueryRepo
}

// NewDB opens the primary storage database.
func NewDB(path string) (*sql.DB, error) {
	if path == ":memory:" {
		path = ""
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// NewStore builds the gateway on the primary database.
func NewStore(db *sql.DB, cipher *FieldCipher) *Store {
	return &Store{
		db:           db,
		profiles:     &sqlProfileRepo{db: db},
		connections:  &sqlConnectionRepo{db: db, cipher: cipher},
		history:      &sqlHistoryRepo{db: db},
		workspace:    &sqlWorkspaceRepo{db: db},
		aiConfigs:    &sqlAIConfigRepo{db: db, cipher: cipher},
		settings:     &sqlSettingsRepo{db: db},
		savedQueries: &sqlSavedQueryRepo{db: db},
	}
}

// NewFallbackStore builds the gateway on the key/value fallback database.
func NewFallbackStore(db *sql.DB, cipher *FieldCipher) *Store {
	return &Store{
		db:           db,
		fallback:     true,
		profiles:     &kvProfileRepo{kv: kvTable{db: db, store: "profiles"}},
		connections:  &kvConnectionRepo{kv: kvTable{db: db, store: "connections"}, cipher: cipher},
		history:      &kvHistoryRepo{kv: kvTable{db: db, store: "query_history"}},
		workspace:    &kvWorkspaceRepo{kv: kvTable{db: db, store: "workspace_state"}},
		aiConfigs:    &kvAIConfigRepo{kv: kvTable{db: db, store: "ai_provider_configs"}, cipher: cipher},
		settings:     &kvSettingsRepo{kv: kvTable{db: db, store: "settings"}},
		savedQueries: &kvSavedQueryRepo{kv: kvTable{db: db, store: "saved_queries"}},
	}
}

// Open opens the primary storage location, runs migrations and returns the
// gateway. When the primary location cannot be opened it falls back to the
// key/value store at fallbackPath; callers are oblivious to which backend
// serves them.
func Open(ctx context.Context, primaryPath, fallbackPath string, cipher *FieldCipher) (*Store, error) {
	log := zap.S().Named("store")

	db, err := NewDB(primaryPath)
	if err == nil {
		if err := migrations.Run(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate storage: %w", err)
		}
		return NewStore(db, cipher), nil
	}
	log.Warnw("primary storage unavailable, using fallback store", "path", primaryPath, "error", err)

	kvdb, kvErr := OpenFallback(fallbackPath)
	if kvErr != nil {
		return nil, fmt.Errorf("primary storage failed (%v) and fallback failed: %w", err, kvErr)
	}
	return NewFallbackStore(kvdb, cipher), nil
}

// Migrate applies pending migrations. A no-op on the fallback store.
func (s *Store) Migrate(ctx context.Context) error {
	if s.fallback {
		return nil
	}
	return migrations.Run(ctx, s.db)
}

// Fallback reports whether the gateway runs on the key/value fallback.
func (s *Store) Fallback() bool { return s.fallback }

func (s *Store) Profiles() ProfileRepo        { return s.profiles }
func (s *Store) Connections() ConnectionRepo  { return s.connections }
func (s *Store) History() HistoryRepo         { return s.history }
func (s *Store) Workspace() WorkspaceRepo     { return s.workspace }
func (s *Store) AIConfigs() AIConfigRepo      { return s.aiConfigs }
func (s *Store) Settings() SettingsRepo       { return s.settings }
func (s *Store) SavedQueries() SavedQueryRepo { return s.savedQueries }

func (s *Store) Close() error {
	return s.db.Close()
}
