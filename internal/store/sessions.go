package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ctxengine/internal/ctxerr"
	"ctxengine/internal/logging"
)

// CreateSession inserts a new session row. maxContextTokens <= 0 selects
// the store-wide default of 64000.
func (s *Store) CreateSession(sessionID, modelName, systemPrompt string, maxContextTokens int) (*Session, error) {
	if sessionID == "" {
		return nil, ctxerr.New(ctxerr.KindInvalidArgument, "store.CreateSession", fmt.Errorf("session_id required"))
	}
	if maxContextTokens <= 0 {
		maxContextTokens = 64000
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	_, err := s.db.Exec(
		`INSERT INTO sessions (session_id, created_at, last_used, max_context_tokens, model_name, system_prompt)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, now, now, maxContextTokens, modelName, systemPrompt,
	)
	if err != nil {
		return nil, ctxerr.New(ctxerr.KindStoreIO, "store.CreateSession", err)
	}

	logging.Store("created session %s (max_context_tokens=%d)", sessionID, maxContextTokens)
	return &Session{
		SessionID:        sessionID,
		CreatedAt:        now,
		LastUsed:         now,
		MaxContextTokens: maxContextTokens,
		ModelName:        modelName,
		SystemPrompt:     systemPrompt,
	}, nil
}

// GetSession fetches a session by ID.
func (s *Store) GetSession(sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(
		`SELECT session_id, created_at, last_used, max_context_tokens, model_name, system_prompt, metadata_json
		 FROM sessions WHERE session_id = ?`, sessionID)

	var sess Session
	var modelName, systemPrompt, metadata sql.NullString
	if err := row.Scan(&sess.SessionID, &sess.CreatedAt, &sess.LastUsed, &sess.MaxContextTokens, &modelName, &systemPrompt, &metadata); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ctxerr.New(ctxerr.KindNotFound, "store.GetSession", fmt.Errorf("session %q not found", sessionID))
		}
		return nil, ctxerr.New(ctxerr.KindStoreIO, "store.GetSession", err)
	}
	sess.ModelName = modelName.String
	sess.SystemPrompt = systemPrompt.String
	sess.MetadataJSON = metadata.String
	return &sess, nil
}

// UpdateSession applies the given field updates to a session. Only the
// closed set of fields in updatableSessionFields may be updated; an
// unrecognized key is rejected as InvalidArgument rather than silently
// ignored or passed through to SQL. Each supported field is assigned via
// its own literal, parameterized statement branch, so no caller-supplied
// string is ever interpolated into SQL.
func (s *Store) UpdateSession(sessionID string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	for key := range fields {
		if !updatableSessionFields[key] {
			return ctxerr.New(ctxerr.KindInvalidArgument, "store.UpdateSession", fmt.Errorf("field %q is not updatable", key))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return ctxerr.New(ctxerr.KindStoreIO, "store.UpdateSession", err)
	}
	defer tx.Rollback()

	if v, ok := fields["max_context_tokens"]; ok {
		if _, err := tx.Exec(`UPDATE sessions SET max_context_tokens = ? WHERE session_id = ?`, v, sessionID); err != nil {
			return ctxerr.New(ctxerr.KindStoreIO, "store.UpdateSession", err)
		}
	}
	if v, ok := fields["model_name"]; ok {
		if _, err := tx.Exec(`UPDATE sessions SET model_name = ? WHERE session_id = ?`, v, sessionID); err != nil {
			return ctxerr.New(ctxerr.KindStoreIO, "store.UpdateSession", err)
		}
	}
	if v, ok := fields["system_prompt"]; ok {
		if _, err := tx.Exec(`UPDATE sessions SET system_prompt = ? WHERE session_id = ?`, v, sessionID); err != nil {
			return ctxerr.New(ctxerr.KindStoreIO, "store.UpdateSession", err)
		}
	}
	if v, ok := fields["metadata_json"]; ok {
		if _, err := tx.Exec(`UPDATE sessions SET metadata_json = ? WHERE session_id = ?`, v, sessionID); err != nil {
			return ctxerr.New(ctxerr.KindStoreIO, "store.UpdateSession", err)
		}
	}
	if _, err := tx.Exec(`UPDATE sessions SET last_used = ? WHERE session_id = ?`, time.Now().UTC(), sessionID); err != nil {
		return ctxerr.New(ctxerr.KindStoreIO, "store.UpdateSession", err)
	}

	if err := tx.Commit(); err != nil {
		return ctxerr.New(ctxerr.KindStoreIO, "store.UpdateSession", err)
	}
	return nil
}

// TouchSession bumps last_used to now without altering any other field.
func (s *Store) TouchSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE sessions SET last_used = ? WHERE session_id = ?`, time.Now().UTC(), sessionID)
	if err != nil {
		return ctxerr.New(ctxerr.KindStoreIO, "store.TouchSession", err)
	}
	return nil
}

// DeleteSession removes a session and, via ON DELETE CASCADE, all of its
// messages, file references, compaction events, and embeddings.
func (s *Store) DeleteSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		return ctxerr.New(ctxerr.KindStoreIO, "store.DeleteSession", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ctxerr.New(ctxerr.KindNotFound, "store.DeleteSession", fmt.Errorf("session %q not found", sessionID))
	}
	logging.Store("deleted session %s (cascade)", sessionID)
	return nil
}

// ListSessions returns up to limit sessions, most recently used first.
// limit <= 0 returns all sessions.
func (s *Store) ListSessions(limit int) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT session_id, created_at, last_used, max_context_tokens, model_name, system_prompt, metadata_json
	          FROM sessions ORDER BY last_used DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, ctxerr.New(ctxerr.KindStoreIO, "store.ListSessions", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		var sess Session
		var modelName, systemPrompt, metadata sql.NullString
		if err := rows.Scan(&sess.SessionID, &sess.CreatedAt, &sess.LastUsed, &sess.MaxContextTokens, &modelName, &systemPrompt, &metadata); err != nil {
			return nil, ctxerr.New(ctxerr.KindStoreIO, "store.ListSessions", err)
		}
		sess.ModelName = modelName.String
		sess.SystemPrompt = systemPrompt.String
		sess.MetadataJSON = metadata.String
		out = append(out, &sess)
	}
	return out, rows.Err()
}

// GetSessionCount returns the total number of sessions.
func (s *Store) GetSessionCount() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&count); err != nil {
		return 0, ctxerr.New(ctxerr.KindStoreIO, "store.GetSessionCount", err)
	}
	return count, nil
}

// PurgeSessions deletes sessions whose last_used is older than the given
// number of days, cascading to their messages, file references,
// compaction events, and embeddings. Returns the number of sessions
// removed.
func (s *Store) PurgeSessions(olderThanDays int) (int, error) {
	if olderThanDays <= 0 {
		return 0, ctxerr.New(ctxerr.KindInvalidArgument, "store.PurgeSessions", fmt.Errorf("olderThanDays must be positive"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays)
	res, err := s.db.Exec(`DELETE FROM sessions WHERE last_used < ?`, cutoff)
	if err != nil {
		return 0, ctxerr.New(ctxerr.KindStoreIO, "store.PurgeSessions", err)
	}
	n, _ := res.RowsAffected()
	logging.Store("purged %d sessions older than %d days", n, olderThanDays)
	return int(n), nil
}
