package store

// Profile queries
const (
	queryUpsertProfile = `
		INSERT INTO profiles (id, name, protected, verify_token, salt)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			protected = EXCLUDED.protected,
			verify_token = EXCLUDED.verify_token,
			salt = EXCLUDED.salt`

	queryGetProfile = `
		SELECT id, name, protected, verify_token, salt, created_at
		FROM profiles WHERE id = ?`

	queryGetProfileByName = `
		SELECT id, name, protected, verify_token, salt, created_at
		FROM profiles WHERE name = ?`

	queryDeleteProfile = `DELETE FROM profiles WHERE id = ?`
)

// Connection queries
const (
	queryUpsertConnection = `
		INSERT INTO connections
			(id, profile_id, name, scope, environment, host, port, path, username, password, api_key, auth_mode)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			scope = EXCLUDED.scope,
			environment = EXCLUDED.environment,
			host = EXCLUDED.host,
			port = EXCLUDED.port,
			path = EXCLUDED.path,
			username = EXCLUDED.username,
			password = EXCLUDED.password,
			api_key = EXCLUDED.api_key,
			auth_mode = EXCLUDED.auth_mode`

	queryDeleteConnection = `DELETE FROM connections WHERE profile_id = ? AND id = ?`
)

// History queries
const (
	queryDeleteHistoryByText = `DELETE FROM query_history WHERE profile_id = ? AND query = ?`

	queryInsertHistory = `
		INSERT INTO query_history (id, profile_id, query, error, executed_at)
		VALUES (?, ?, ?, ?, ?)`

	queryTrimHistory = `
		DELETE FROM query_history
		WHERE profile_id = ? AND id NOT IN (
			SELECT id FROM query_history
			WHERE profile_id = ?
			ORDER BY executed_at DESC LIMIT ?
		)`

	queryClearHistory = `DELETE FROM query_history WHERE profile_id = ?`
)

// Workspace queries
const (
	queryUpsertWorkspace = `
		INSERT INTO workspace_state (profile_id, state, updated_at)
		VALUES (?, ?, now())
		ON CONFLICT (profile_id) DO UPDATE SET
			state = EXCLUDED.state,
			updated_at = now()`

	queryGetWorkspace = `SELECT state FROM workspace_state WHERE profile_id = ?`
)

// AI provider config queries
const (
	queryUpsertAIConfig = `
		INSERT INTO ai_provider_configs (id, profile_id, provider, model, api_key, options)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			provider = EXCLUDED.provider,
			model = EXCLUDED.model,
			api_key = EXCLUDED.api_key,
			options = EXCLUDED.options`

	queryDeleteAIConfig = `DELETE FROM ai_provider_configs WHERE profile_id = ? AND id = ?`
)

// Settings queries
const (
	queryUpsertSetting = `
		INSERT INTO settings (profile_id, key, value)
		VALUES (?, ?, ?)
		ON CONFLICT (profile_id, key) DO UPDATE SET
			value = EXCLUDED.value`

	queryGetSetting = `SELECT value FROM settings WHERE profile_id = ? AND key = ?`

	queryDeleteSetting = `DELETE FROM settings WHERE profile_id = ? AND key = ?`
)

// Saved query queries
const (
	queryUpsertSavedQuery = `
		INSERT INTO saved_queries (id, profile_id, name, query, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			query = EXCLUDED.query`

	queryDeleteSavedQuery = `DELETE FROM saved_queries WHERE profile_id = ? AND id = ?`
)
