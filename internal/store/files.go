package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ctxengine/internal/ctxerr"
)

// TrackFileReference records (or updates, if already tracked) that a file
// has been injected into a session's context at the given mode and token
// cost, associated with the message that introduced or last referenced
// it.
func (s *Store) TrackFileReference(sessionID, filePath string, mode FileMode, tokens int, lastMessageID int64) (*FileReference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	_, err := s.db.Exec(
		`INSERT INTO file_references (session_id, file_path, mode, tokens, last_message_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id, file_path) DO UPDATE SET
		   mode = excluded.mode,
		   tokens = excluded.tokens,
		   last_message_id = excluded.last_message_id,
		   updated_at = excluded.updated_at`,
		sessionID, filePath, string(mode), tokens, lastMessageID, now, now,
	)
	if err != nil {
		return nil, ctxerr.New(ctxerr.KindStoreIO, "store.TrackFileReference", err)
	}

	var fr FileReference
	row := s.db.QueryRow(
		`SELECT id, session_id, file_path, mode, tokens, last_message_id, created_at, updated_at
		 FROM file_references WHERE session_id = ? AND file_path = ?`,
		sessionID, filePath,
	)
	var modeStr string
	if err := row.Scan(&fr.ID, &fr.SessionID, &fr.FilePath, &modeStr, &fr.Tokens, &fr.LastMessageID, &fr.CreatedAt, &fr.UpdatedAt); err != nil {
		return nil, ctxerr.New(ctxerr.KindStoreIO, "store.TrackFileReference", err)
	}
	fr.Mode = FileMode(modeStr)
	return &fr, nil
}

// GetFileReferences returns every file reference tracked for a session.
func (s *Store) GetFileReferences(sessionID string) ([]*FileReference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, session_id, file_path, mode, tokens, last_message_id, created_at, updated_at
		 FROM file_references WHERE session_id = ? ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, ctxerr.New(ctxerr.KindStoreIO, "store.GetFileReferences", err)
	}
	defer rows.Close()

	return scanFileReferences(rows)
}

// GetStaleFiles returns file references in the given mode whose
// last_message_id falls outside the newest staleThreshold messages of the
// session, i.e. files that have not been touched recently enough to
// still be "live". A staleThreshold of 0 or less marks every matching
// file as stale regardless of how recently it was referenced (used by
// Level 3's recompression-before-summarize pass).
func (s *Store) GetStaleFiles(sessionID string, staleThreshold int, modeFilter FileMode) ([]*FileReference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows *sql.Rows
	var err error
	if staleThreshold <= 0 {
		rows, err = s.db.Query(
			`SELECT fr.id, fr.session_id, fr.file_path, fr.mode, fr.tokens, fr.last_message_id, fr.created_at, fr.updated_at
			 FROM file_references fr
			 WHERE fr.session_id = ? AND fr.mode = ?
			 ORDER BY fr.id ASC`,
			sessionID, string(modeFilter),
		)
	} else {
		rows, err = s.db.Query(
			`SELECT fr.id, fr.session_id, fr.file_path, fr.mode, fr.tokens, fr.last_message_id, fr.created_at, fr.updated_at
			 FROM file_references fr
			 WHERE fr.session_id = ?
			   AND fr.mode = ?
			   AND fr.last_message_id < (
			     SELECT COALESCE(MIN(id), 0) FROM (
			       SELECT id FROM messages WHERE session_id = ? ORDER BY id DESC LIMIT ?
			     )
			   )
			 ORDER BY fr.id ASC`,
			sessionID, string(modeFilter), sessionID, staleThreshold,
		)
	}
	if err != nil {
		return nil, ctxerr.New(ctxerr.KindStoreIO, "store.GetStaleFiles", err)
	}
	defer rows.Close()

	return scanFileReferences(rows)
}

func scanFileReferences(rows *sql.Rows) ([]*FileReference, error) {
	var out []*FileReference
	for rows.Next() {
		var fr FileReference
		var modeStr string
		if err := rows.Scan(&fr.ID, &fr.SessionID, &fr.FilePath, &modeStr, &fr.Tokens, &fr.LastMessageID, &fr.CreatedAt, &fr.UpdatedAt); err != nil {
			return nil, ctxerr.New(ctxerr.KindStoreIO, "store.scanFileReferences", err)
		}
		fr.Mode = FileMode(modeStr)
		out = append(out, &fr)
	}
	return out, rows.Err()
}

// UpdateFileReferenceMode recompresses (or expands) a tracked file
// reference's mode and records its new token cost. Used by Level 1 (soft)
// compaction.
func (s *Store) UpdateFileReferenceMode(sessionID, filePath string, mode FileMode, tokens int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`UPDATE file_references SET mode = ?, tokens = ?, updated_at = ? WHERE session_id = ? AND file_path = ?`,
		string(mode), tokens, time.Now().UTC(), sessionID, filePath,
	)
	if err != nil {
		return ctxerr.New(ctxerr.KindStoreIO, "store.UpdateFileReferenceMode", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ctxerr.New(ctxerr.KindNotFound, "store.UpdateFileReferenceMode", fmt.Errorf("file reference %q not tracked for session %q", filePath, sessionID))
	}
	return nil
}

// GetFileReference fetches a single tracked file reference.
func (s *Store) GetFileReference(sessionID, filePath string) (*FileReference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var fr FileReference
	var modeStr string
	row := s.db.QueryRow(
		`SELECT id, session_id, file_path, mode, tokens, last_message_id, created_at, updated_at
		 FROM file_references WHERE session_id = ? AND file_path = ?`,
		sessionID, filePath,
	)
	if err := row.Scan(&fr.ID, &fr.SessionID, &fr.FilePath, &modeStr, &fr.Tokens, &fr.LastMessageID, &fr.CreatedAt, &fr.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ctxerr.New(ctxerr.KindNotFound, "store.GetFileReference", fmt.Errorf("file reference %q not tracked for session %q", filePath, sessionID))
		}
		return nil, ctxerr.New(ctxerr.KindStoreIO, "store.GetFileReference", err)
	}
	fr.Mode = FileMode(modeStr)
	return &fr, nil
}
