package compaction

import "ctxengine/internal/store"

// Soft runs Level 1 compaction: recompress every stale full-mode file
// reference to summary mode. A file is stale when its most recent
// reference lies outside the newest StaleFileThreshold messages of the
// session — it is no longer part of the live conversational window, so
// its full content can be reduced to a floor-protected summary (a tenth
// of its original token cost, never below cfg.FloorTokens) without
// losing anything the model is actively working with.
func (s *Strategies) Soft(sessionID string) (Result, error) {
	before, err := sessionTokenTotal(s.Store, sessionID)
	if err != nil {
		return Result{}, err
	}

	affected, err := recompressStaleFiles(s.Store, sessionID, s.Cfg.StaleFileThreshold, s.Cfg.FloorTokens)
	if err != nil {
		return Result{}, err
	}

	after, err := sessionTokenTotal(s.Store, sessionID)
	if err != nil {
		return Result{}, err
	}

	return recordResult(s.Store, sessionID, store.LevelSoft, before, after, affected)
}

// recompressStaleFiles recompresses every full-mode file reference that
// is stale under staleThreshold to summary mode, returning the number of
// files touched. staleThreshold <= 0 marks every full-mode file as stale
// (Level 3's prelude reuses this with threshold 0).
func recompressStaleFiles(st *store.Store, sessionID string, staleThreshold, floorTokens int) (int, error) {
	staleFiles, err := st.GetStaleFiles(sessionID, staleThreshold, store.FileModeFull)
	if err != nil {
		return 0, err
	}

	affected := 0
	for _, f := range staleFiles {
		summaryTokens := f.Tokens / 10
		if summaryTokens < floorTokens {
			summaryTokens = floorTokens
		}
		if summaryTokens >= f.Tokens {
			continue
		}

		if err := st.UpdateFileReferenceMode(sessionID, f.FilePath, store.FileModeSummary, summaryTokens); err != nil {
			return affected, err
		}
		affected++
	}
	return affected, nil
}
