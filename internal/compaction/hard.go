package compaction

import (
	"context"
	"math"
	"sort"
	"strings"

	"ctxengine/internal/relevance"
	"ctxengine/internal/store"
)

// scoredMessage pairs a message with its relevance score for sorting.
type scoredMessage struct {
	msg   *store.Message
	score float64
}

// Hard runs Level 2 compaction: first the Level 1 stale-file
// recompression pass, then score every message outside the newest
// MinMessagesToKeep against the concatenated content of those protected
// messages, retain the top RelevanceKeepPercentage of the scored
// candidates (rounded up, minimum 1 if any candidates exist, ties
// preferring the newer message), and delete the rest.
func (s *Strategies) Hard(ctx context.Context, sessionID string) (Result, error) {
	before, err := sessionTokenTotal(s.Store, sessionID)
	if err != nil {
		return Result{}, err
	}

	if _, err := recompressStaleFiles(s.Store, sessionID, s.Cfg.StaleFileThreshold, s.Cfg.FloorTokens); err != nil {
		return Result{}, err
	}

	messages, err := s.Store.LoadMessages(sessionID)
	if err != nil {
		return Result{}, err
	}

	keep := s.Cfg.MinMessagesToKeep
	if len(messages) <= keep {
		after, err := sessionTokenTotal(s.Store, sessionID)
		if err != nil {
			return Result{}, err
		}
		return recordResult(s.Store, sessionID, store.LevelHard, before, after, 0)
	}

	protected := messages[len(messages)-keep:]
	candidates := messages[:len(messages)-keep]

	protectedContents := make([]string, len(protected))
	for i, m := range protected {
		protectedContents[i] = m.Content
	}
	reference := strings.Join(protectedContents, " ")

	scored := make([]scoredMessage, len(candidates))
	for i, m := range candidates {
		score := s.Scorer.Score(ctx, reference, relevance.Candidate{Role: m.Role, Content: m.Content})
		scored[i] = scoredMessage{msg: m, score: score}
	}

	// Ties prefer the newer message (higher id): on an equal score, the
	// newer candidate sorts ahead so it lands in the kept prefix rather
	// than the deleted tail.
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].msg.ID > scored[j].msg.ID
	})

	keepCount := int(math.Ceil(float64(len(scored)) * s.Cfg.RelevanceKeepPercentage))
	if keepCount < 1 {
		keepCount = 1
	}
	if keepCount > len(scored) {
		keepCount = len(scored)
	}

	toDelete := make([]int64, 0, len(scored)-keepCount)
	for _, sm := range scored[keepCount:] {
		toDelete = append(toDelete, sm.msg.ID)
	}

	affected, err := s.Store.DeleteMessages(sessionID, toDelete)
	if err != nil {
		return Result{}, err
	}

	after, err := sessionTokenTotal(s.Store, sessionID)
	if err != nil {
		return Result{}, err
	}

	return recordResult(s.Store, sessionID, store.LevelHard, before, after, affected)
}
