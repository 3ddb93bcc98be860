package store

import (
	"database/sql"
	"errors"
	"fmt"

	"ctxengine/internal/ctxerr"
)

// SaveMessage appends a message to a session's history.
func (s *Store) SaveMessage(sessionID, role, content string, tokens int) (*Message, error) {
	if sessionID == "" || role == "" {
		return nil, ctxerr.New(ctxerr.KindInvalidArgument, "store.SaveMessage", fmt.Errorf("session_id and role required"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`INSERT INTO messages (session_id, role, content, tokens) VALUES (?, ?, ?, ?)`,
		sessionID, role, content, tokens,
	)
	if err != nil {
		return nil, ctxerr.New(ctxerr.KindStoreIO, "store.SaveMessage", err)
	}
	id, _ := res.LastInsertId()

	var m Message
	row := s.db.QueryRow(`SELECT id, session_id, role, content, tokens, is_summary, created_at FROM messages WHERE id = ?`, id)
	if err := row.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.Tokens, &m.IsSummary, &m.CreatedAt); err != nil {
		return nil, ctxerr.New(ctxerr.KindStoreIO, "store.SaveMessage", err)
	}
	return &m, nil
}

// LoadMessages returns every message in a session, oldest first.
func (s *Store) LoadMessages(sessionID string) ([]*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, session_id, role, content, tokens, is_summary, created_at FROM messages WHERE session_id = ? ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, ctxerr.New(ctxerr.KindStoreIO, "store.LoadMessages", err)
	}
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.Tokens, &m.IsSummary, &m.CreatedAt); err != nil {
			return nil, ctxerr.New(ctxerr.KindStoreIO, "store.LoadMessages", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// GetMessageTokens sums the token count of every message in a session.
func (s *Store) GetMessageTokens(sessionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total sql.NullInt64
	err := s.db.QueryRow(`SELECT SUM(tokens) FROM messages WHERE session_id = ?`, sessionID).Scan(&total)
	if err != nil {
		return 0, ctxerr.New(ctxerr.KindStoreIO, "store.GetMessageTokens", err)
	}
	return int(total.Int64), nil
}

// DeleteMessages removes the given message IDs from a session.
func (s *Store) DeleteMessages(sessionID string, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, ctxerr.New(ctxerr.KindStoreIO, "store.DeleteMessages", err)
	}
	defer tx.Rollback()

	var affected int
	stmt, err := tx.Prepare(`DELETE FROM messages WHERE session_id = ? AND id = ?`)
	if err != nil {
		return 0, ctxerr.New(ctxerr.KindStoreIO, "store.DeleteMessages", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		res, err := stmt.Exec(sessionID, id)
		if err != nil {
			return 0, ctxerr.New(ctxerr.KindStoreIO, "store.DeleteMessages", err)
		}
		n, _ := res.RowsAffected()
		affected += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, ctxerr.New(ctxerr.KindStoreIO, "store.DeleteMessages", err)
	}
	return affected, nil
}

// ReplaceMessagesWithSummary atomically deletes the given message IDs and
// inserts a single synthetic summary message (is_summary=true) in their
// place, used by Level 3 (emergency) compaction. The caller is
// responsible for the summary's content, including any sentinel wrapping.
func (s *Store) ReplaceMessagesWithSummary(sessionID string, ids []int64, summaryContent string, summaryTokens int) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, ctxerr.New(ctxerr.KindStoreIO, "store.ReplaceMessagesWithSummary", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`DELETE FROM messages WHERE session_id = ? AND id = ?`)
	if err != nil {
		return nil, ctxerr.New(ctxerr.KindStoreIO, "store.ReplaceMessagesWithSummary", err)
	}
	for _, id := range ids {
		if _, err := stmt.Exec(sessionID, id); err != nil {
			stmt.Close()
			return nil, ctxerr.New(ctxerr.KindStoreIO, "store.ReplaceMessagesWithSummary", err)
		}
	}
	stmt.Close()

	res, err := tx.Exec(
		`INSERT INTO messages (session_id, role, content, tokens, is_summary) VALUES (?, 'system', ?, ?, 1)`,
		sessionID, summaryContent, summaryTokens,
	)
	if err != nil {
		return nil, ctxerr.New(ctxerr.KindStoreIO, "store.ReplaceMessagesWithSummary", err)
	}
	newID, _ := res.LastInsertId()

	var m Message
	row := tx.QueryRow(`SELECT id, session_id, role, content, tokens, is_summary, created_at FROM messages WHERE id = ?`, newID)
	if err := row.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.Tokens, &m.IsSummary, &m.CreatedAt); err != nil {
		return nil, ctxerr.New(ctxerr.KindStoreIO, "store.ReplaceMessagesWithSummary", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, ctxerr.New(ctxerr.KindStoreIO, "store.ReplaceMessagesWithSummary", err)
	}
	return &m, nil
}

// SaveEmbedding appends a message's embedding vector, already serialized
// to bytes by the caller. Earlier embeddings for the same message+model
// are kept; GetEmbedding returns the newest.
func (s *Store) SaveEmbedding(messageID int64, model string, vector []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO embeddings (message_id, model, embedding) VALUES (?, ?, ?)`,
		messageID, model, vector,
	)
	if err != nil {
		return ctxerr.New(ctxerr.KindStoreIO, "store.SaveEmbedding", err)
	}
	return nil
}

// GetEmbedding returns the newest embedding for a message under the given
// model, or ctxerr.NotFound if none has been saved.
func (s *Store) GetEmbedding(messageID int64, model string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var vec []byte
	err := s.db.QueryRow(
		`SELECT embedding FROM embeddings WHERE message_id = ? AND model = ? ORDER BY created_at DESC LIMIT 1`,
		messageID, model,
	).Scan(&vec)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ctxerr.New(ctxerr.KindNotFound, "store.GetEmbedding", fmt.Errorf("no embedding for message %d model %q", messageID, model))
		}
		return nil, ctxerr.New(ctxerr.KindStoreIO, "store.GetEmbedding", err)
	}
	return vec, nil
}
