package store

import "database/sql"

// createSchemaV2 creates the normalized session schema: sessions,
// messages, file_references, compaction_events and embeddings, plus the
// indexes the query patterns in this package rely on. It is safe to call
// against an existing v1 database (CREATE TABLE IF NOT EXISTS) as part of
// the migration path, and against a fresh empty database on first open.
func createSchemaV2(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_used DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			max_context_tokens INTEGER NOT NULL DEFAULT 64000,
			model_name TEXT,
			system_prompt TEXT,
			metadata_json TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_last_used ON sessions(last_used)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_model_name ON sessions(model_name)`,

		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(session_id) ON DELETE CASCADE,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			tokens INTEGER NOT NULL,
			is_summary INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session_id ON messages(session_id, id)`,

		`CREATE TABLE IF NOT EXISTS file_references (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(session_id) ON DELETE CASCADE,
			file_path TEXT NOT NULL,
			mode TEXT NOT NULL DEFAULT 'full',
			tokens INTEGER NOT NULL DEFAULT 0,
			last_message_id INTEGER,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(session_id, file_path)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_file_references_session_id ON file_references(session_id)`,

		`CREATE TABLE IF NOT EXISTS compaction_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(session_id) ON DELETE CASCADE,
			level INTEGER NOT NULL,
			tokens_before INTEGER NOT NULL,
			tokens_after INTEGER NOT NULL,
			tokens_freed INTEGER NOT NULL,
			messages_affected INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_compaction_events_session_id ON compaction_events(session_id, id)`,

		`CREATE TABLE IF NOT EXISTS embeddings (
			message_id INTEGER NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
			model TEXT NOT NULL,
			embedding BLOB NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_embeddings_message_id ON embeddings(message_id, created_at)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
