package store

import (
	"database/sql"
	"errors"
	"fmt"

	"ctxengine/internal/ctxerr"
)

// RecordCompaction appends a compaction event to a session's history.
func (s *Store) RecordCompaction(sessionID string, level CompactionLevel, tokensBefore, tokensAfter, messagesAffected int) (*CompactionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	freed := tokensBefore - tokensAfter
	res, err := s.db.Exec(
		`INSERT INTO compaction_events (session_id, level, tokens_before, tokens_after, tokens_freed, messages_affected)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, int(level), tokensBefore, tokensAfter, freed, messagesAffected,
	)
	if err != nil {
		return nil, ctxerr.New(ctxerr.KindStoreIO, "store.RecordCompaction", err)
	}
	id, _ := res.LastInsertId()

	var ev CompactionEvent
	var lvl int
	row := s.db.QueryRow(
		`SELECT id, session_id, level, tokens_before, tokens_after, tokens_freed, messages_affected, created_at
		 FROM compaction_events WHERE id = ?`, id,
	)
	if err := row.Scan(&ev.ID, &ev.SessionID, &lvl, &ev.TokensBefore, &ev.TokensAfter, &ev.TokensFreed, &ev.MessagesAffected, &ev.CreatedAt); err != nil {
		return nil, ctxerr.New(ctxerr.KindStoreIO, "store.RecordCompaction", err)
	}
	ev.Level = CompactionLevel(lvl)
	return &ev, nil
}

// GetCompactionHistory returns every compaction event for a session,
// oldest first.
func (s *Store) GetCompactionHistory(sessionID string) ([]*CompactionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, session_id, level, tokens_before, tokens_after, tokens_freed, messages_affected, created_at
		 FROM compaction_events WHERE session_id = ? ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, ctxerr.New(ctxerr.KindStoreIO, "store.GetCompactionHistory", err)
	}
	defer rows.Close()

	var out []*CompactionEvent
	for rows.Next() {
		var ev CompactionEvent
		var lvl int
		if err := rows.Scan(&ev.ID, &ev.SessionID, &lvl, &ev.TokensBefore, &ev.TokensAfter, &ev.TokensFreed, &ev.MessagesAffected, &ev.CreatedAt); err != nil {
			return nil, ctxerr.New(ctxerr.KindStoreIO, "store.GetCompactionHistory", err)
		}
		ev.Level = CompactionLevel(lvl)
		out = append(out, &ev)
	}
	return out, rows.Err()
}

// GetLastCompaction returns the most recent compaction event for a
// session, or ctxerr.NotFound if the session has never been compacted.
func (s *Store) GetLastCompaction(sessionID string) (*CompactionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ev CompactionEvent
	var lvl int
	row := s.db.QueryRow(
		`SELECT id, session_id, level, tokens_before, tokens_after, tokens_freed, messages_affected, created_at
		 FROM compaction_events WHERE session_id = ? ORDER BY id DESC LIMIT 1`,
		sessionID,
	)
	if err := row.Scan(&ev.ID, &ev.SessionID, &lvl, &ev.TokensBefore, &ev.TokensAfter, &ev.TokensFreed, &ev.MessagesAffected, &ev.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ctxerr.New(ctxerr.KindNotFound, "store.GetLastCompaction", fmt.Errorf("session %q has no compaction history", sessionID))
		}
		return nil, ctxerr.New(ctxerr.KindStoreIO, "store.GetLastCompaction", err)
	}
	ev.Level = CompactionLevel(lvl)
	return &ev, nil
}

// GetTotalTokensFreed sums tokens_freed across every compaction event for
// a session.
func (s *Store) GetTotalTokensFreed(sessionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total sql.NullInt64
	err := s.db.QueryRow(`SELECT SUM(tokens_freed) FROM compaction_events WHERE session_id = ?`, sessionID).Scan(&total)
	if err != nil {
		return 0, ctxerr.New(ctxerr.KindStoreIO, "store.GetTotalTokensFreed", err)
	}
	return int(total.Int64), nil
}
