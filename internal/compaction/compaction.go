// Package compaction implements the three graduated compaction
// strategies the context engine escalates through as a session's token
// usage crosses the soft, hard, and emergency thresholds: Level 1 (soft)
// file recompression, Level 2 (hard) relevance-based message pruning,
// and Level 3 (emergency) summarization.
package compaction

import (
	"context"

	"ctxengine/internal/config"
	"ctxengine/internal/logging"
	"ctxengine/internal/relevance"
	"ctxengine/internal/store"
)

// Summarizer produces a condensed summary of a run of messages. A nil
// Summarizer (or one that returns an error) causes emergency compaction
// to fall back to a deterministic structural summary instead of failing
// the session.
type Summarizer interface {
	Summarize(ctx context.Context, messages []*store.Message) (string, error)
}

// Result describes the effect of a single compaction run.
type Result struct {
	Level            store.CompactionLevel
	TokensBefore     int
	TokensAfter      int
	TokensFreed      int
	MessagesAffected int
}

// Strategies bundles the dependencies each compaction level needs.
type Strategies struct {
	Store      *store.Store
	Scorer     *relevance.Scorer
	Summarizer Summarizer
	Cfg        config.EngineConfig
}

// sessionTokenTotal returns a session's current live token count: the sum
// of its message tokens plus its tracked file reference tokens.
func sessionTokenTotal(s *store.Store, sessionID string) (int, error) {
	msgTokens, err := s.GetMessageTokens(sessionID)
	if err != nil {
		return 0, err
	}
	files, err := s.GetFileReferences(sessionID)
	if err != nil {
		return 0, err
	}
	fileTokens := 0
	for _, f := range files {
		fileTokens += f.Tokens
	}
	return msgTokens + fileTokens, nil
}

func recordResult(s *store.Store, sessionID string, level store.CompactionLevel, before, after, affected int) (Result, error) {
	if _, err := s.RecordCompaction(sessionID, level, before, after, affected); err != nil {
		return Result{}, err
	}
	res := Result{Level: level, TokensBefore: before, TokensAfter: after, TokensFreed: before - after, MessagesAffected: affected}
	logging.Compaction("level=%s session=%s before=%d after=%d freed=%d affected=%d", level, sessionID, before, after, res.TokensFreed, affected)
	return res, nil
}
