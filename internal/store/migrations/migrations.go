// Package migrations applies the versioned schema to a persistent storage
// database. Each migration is applied at most once, in ascending version
// order, gated by the schema_version ledger table. Safe to run on every
// process start: migrations at or below the recorded version execute no DDL
// and write no ledger row, and every statement is IF NOT EXISTS so a crash
// between a migration's statements and its ledger row re-applies harmlessly.
package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// Migration is one versioned schema step. Statements run in order before the
// version is recorded.
type Migration struct {
	Version     int
	Description string
	Statements  []string
}

const createVersionLedger = `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		description VARCHAR NOT NULL,
		applied_at TIMESTAMP DEFAULT now()
	)`

// All lists every migration, ascending. Append only; never edit a shipped
// migration.
var All = []Migration{
	{
		Version:     1,
		Description: "profiles and settings",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS profiles (
				id VARCHAR PRIMARY KEY,
				name VARCHAR NOT NULL UNIQUE,
				protected BOOLEAN NOT NULL DEFAULT false,
				verify_token VARCHAR NOT NULL,
				salt VARCHAR NOT NULL DEFAULT '',
				created_at TIMESTAMP DEFAULT now()
			)`,
			`CREATE TABLE IF NOT EXISTS settings (
				profile_id VARCHAR NOT NULL,
				key VARCHAR NOT NULL,
				value VARCHAR NOT NULL,
				PRIMARY KEY (profile_id, key)
			)`,
		},
	},
	{
		Version:     2,
		Description: "connections",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS connections (
				id VARCHAR PRIMARY KEY,
				profile_id VARCHAR NOT NULL,
				name VARCHAR NOT NULL,
				scope VARCHAR NOT NULL,
				environment VARCHAR NOT NULL DEFAULT 'app',
				host VARCHAR NOT NULL DEFAULT '',
				port INTEGER NOT NULL DEFAULT 0,
				path VARCHAR NOT NULL DEFAULT '',
				username VARCHAR NOT NULL DEFAULT '',
				password VARCHAR NOT NULL DEFAULT '',
				api_key VARCHAR NOT NULL DEFAULT '',
				auth_mode VARCHAR NOT NULL DEFAULT 'none',
				UNIQUE (profile_id, name)
			)`,
		},
	},
	{
		Version:     3,
		Description: "query history",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS query_history (
				id VARCHAR PRIMARY KEY,
				profile_id VARCHAR NOT NULL,
				query VARCHAR NOT NULL,
				error VARCHAR NOT NULL DEFAULT '',
				executed_at TIMESTAMP DEFAULT now()
			)`,
		},
	},
	{
		Version:     4,
		Description: "workspace state",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS workspace_state (
				profile_id VARCHAR PRIMARY KEY,
				state VARCHAR NOT NULL,
				updated_at TIMESTAMP DEFAULT now()
			)`,
		},
	},
	{
		Version:     5,
		Description: "ai provider configs and conversations",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS ai_provider_configs (
				id VARCHAR PRIMARY KEY,
				profile_id VARCHAR NOT NULL,
				provider VARCHAR NOT NULL,
				model VARCHAR NOT NULL DEFAULT '',
				api_key VARCHAR NOT NULL DEFAULT '',
				options VARCHAR NOT NULL DEFAULT '{}'
			)`,
			`CREATE TABLE IF NOT EXISTS ai_conversations (
				id VARCHAR PRIMARY KEY,
				profile_id VARCHAR NOT NULL,
				title VARCHAR NOT NULL DEFAULT '',
				messages VARCHAR NOT NULL DEFAULT '[]',
				created_at TIMESTAMP DEFAULT now()
			)`,
		},
	},
	{
		Version:     6,
		Description: "saved queries",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS saved_queries (
				id VARCHAR PRIMARY KEY,
				profile_id VARCHAR NOT NULL,
				name VARCHAR NOT NULL,
				query VARCHAR NOT NULL,
				created_at TIMESTAMP DEFAULT now()
			)`,
		},
	},
}

// Run applies every pending migration against db.
func Run(ctx context.Context, db *sql.DB) error {
	log := zap.S().Named("migrations")

	if _, err := db.ExecContext(ctx, createVersionLedger); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var current int
	row := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err := row.Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range All {
		if m.Version <= current {
			continue
		}
		for _, stmt := range m.Statements {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
			}
		}
		if _, err := db.ExecContext(ctx,
			`INSERT INTO schema_version (version, description) VALUES (?, ?)`,
			m.Version, m.Description); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
		log.Infow("migration applied", "version", m.Version, "description", m.Description)
	}
	return nil
}
