// Package engine implements the context engine: the orchestrator that
// tracks a session's token usage against the threshold ladder, enforces
// the compaction cooldown, and escalates to the appropriate compaction
// strategy (soft, hard, or emergency) as usage climbs.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ctxengine/internal/compaction"
	"ctxengine/internal/config"
	"ctxengine/internal/ctxerr"
	"ctxengine/internal/logging"
	"ctxengine/internal/store"
	"ctxengine/internal/tokens"
)

// Level identifies a point on the threshold ladder.
type Level int

const (
	LevelNone Level = iota
	LevelSoft
	LevelHard
	LevelEmergency
)

func (l Level) String() string {
	switch l {
	case LevelSoft:
		return "soft"
	case LevelHard:
		return "hard"
	case LevelEmergency:
		return "emergency"
	default:
		return "none"
	}
}

// Engine manages a single session's compaction lifecycle. One Engine
// instance should be used per active session; it is safe for concurrent
// use.
type Engine struct {
	mu sync.Mutex

	sessionID  string
	store      *store.Store
	strategies *compaction.Strategies
	cfg        config.EngineConfig

	messagesSinceCompaction int
	lastCompactionAt        time.Time
}

// New constructs an Engine for sessionID. The session must already exist
// in the store. Cooldown state is seeded from the session's most recent
// compaction event, if any, so a freshly constructed Engine honors the
// cooldown across process restarts rather than resetting it.
func New(sessionID string, st *store.Store, strategies *compaction.Strategies, cfg config.EngineConfig) (*Engine, error) {
	if _, err := st.GetSession(sessionID); err != nil {
		return nil, err
	}

	e := &Engine{
		sessionID:  sessionID,
		store:      st,
		strategies: strategies,
		cfg:        cfg,
	}

	last, err := st.GetLastCompaction(sessionID)
	if err != nil {
		if !errors.Is(err, ctxerr.NotFound) {
			return nil, err
		}
	} else {
		e.lastCompactionAt = last.CreatedAt
	}

	return e, nil
}

// AddMessage records a message, estimates its token cost, and then
// attempts auto-compaction if the session has crossed a threshold and is
// out of cooldown.
func (e *Engine) AddMessage(ctx context.Context, role, content string) (*store.Message, *compaction.Result, error) {
	tokenCount := tokens.Estimate(content)

	msg, err := e.store.SaveMessage(e.sessionID, role, content, tokenCount)
	if err != nil {
		return nil, nil, err
	}

	e.mu.Lock()
	e.messagesSinceCompaction++
	e.mu.Unlock()

	result, err := e.AutoCompact(ctx)
	if err != nil {
		return msg, nil, err
	}
	return msg, result, nil
}

// Usage returns the session's current token total and its configured
// ceiling.
func (e *Engine) Usage() (current, max int, err error) {
	sess, err := e.store.GetSession(e.sessionID)
	if err != nil {
		return 0, 0, err
	}
	msgTokens, err := e.store.GetMessageTokens(e.sessionID)
	if err != nil {
		return 0, 0, err
	}
	files, err := e.store.GetFileReferences(e.sessionID)
	if err != nil {
		return 0, 0, err
	}
	fileTokens := 0
	for _, f := range files {
		fileTokens += f.Tokens
	}
	return msgTokens + fileTokens, sess.MaxContextTokens, nil
}

// UsagePercentage returns current/max as a fraction.
func (e *Engine) UsagePercentage() (float64, error) {
	current, max, err := e.Usage()
	if err != nil {
		return 0, err
	}
	if max == 0 {
		return 0, nil
	}
	return float64(current) / float64(max), nil
}

// DetermineLevel classifies a usage ratio against the threshold ladder.
func (e *Engine) DetermineLevel(ratio float64) Level {
	switch {
	case ratio >= e.cfg.EmergencyThreshold:
		return LevelEmergency
	case ratio >= e.cfg.HardThreshold:
		return LevelHard
	case ratio >= e.cfg.SoftThreshold:
		return LevelSoft
	default:
		return LevelNone
	}
}

// canCompact reports whether the cooldown gate is satisfied: both the
// minimum message count and the minimum elapsed time since the last
// compaction must have passed.
func (e *Engine) canCompact() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.messagesSinceCompaction < e.cfg.MinMessagesBetweenCompaction {
		return false
	}
	if e.lastCompactionAt.IsZero() {
		return true
	}
	return time.Since(e.lastCompactionAt) >= time.Duration(e.cfg.MinTimeBetweenCompactionSecs)*time.Second
}

func (e *Engine) markCompacted() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.messagesSinceCompaction = 0
	e.lastCompactionAt = time.Now().UTC()
}

// AutoCompact runs the compaction strategy matching the session's current
// level, subject to the cooldown gate. Returns a nil Result if no
// threshold has been crossed or the cooldown has not elapsed.
func (e *Engine) AutoCompact(ctx context.Context) (*compaction.Result, error) {
	ratio, err := e.UsagePercentage()
	if err != nil {
		return nil, err
	}

	level := e.DetermineLevel(ratio)
	if level == LevelNone {
		return nil, nil
	}
	if !e.canCompact() {
		logging.EngineDebug("session %s: level=%s but cooldown active, skipping auto-compact", e.sessionID, level)
		return nil, nil
	}

	return e.runLevel(ctx, level)
}

// ForceCompact runs the compaction strategy matching the session's
// current level, bypassing the cooldown gate entirely. If the session is
// below the soft threshold, Level 1 (soft) is still run, since a caller
// forcing compaction wants *some* effect even at low usage.
func (e *Engine) ForceCompact(ctx context.Context) (*compaction.Result, error) {
	ratio, err := e.UsagePercentage()
	if err != nil {
		return nil, err
	}

	level := e.DetermineLevel(ratio)
	if level == LevelNone {
		level = LevelSoft
	}
	return e.runLevel(ctx, level)
}

func (e *Engine) runLevel(ctx context.Context, level Level) (*compaction.Result, error) {
	var (
		res compaction.Result
		err error
	)

	switch level {
	case LevelSoft:
		res, err = e.strategies.Soft(e.sessionID)
	case LevelHard:
		res, err = e.strategies.Hard(ctx, e.sessionID)
	case LevelEmergency:
		res, err = e.strategies.Emergency(ctx, e.sessionID)
	default:
		return nil, ctxerr.New(ctxerr.KindInvariantViolation, "engine.runLevel", fmt.Errorf("unknown level %v", level))
	}
	if err != nil {
		return nil, err
	}

	e.markCompacted()
	return &res, nil
}

// Status summarizes a session's current compaction posture.
type Status struct {
	SessionID      string
	CurrentTokens  int
	MaxTokens      int
	UsageRatio     float64
	Level          Level
	CanAutoCompact bool
	LastCompaction *store.CompactionEvent
}

// GetStatus returns the session's current usage, level, and cooldown
// state.
func (e *Engine) GetStatus() (*Status, error) {
	current, max, err := e.Usage()
	if err != nil {
		return nil, err
	}
	ratio := 0.0
	if max > 0 {
		ratio = float64(current) / float64(max)
	}

	last, err := e.store.GetLastCompaction(e.sessionID)
	if err != nil && !errors.Is(err, ctxerr.NotFound) {
		return nil, err
	}

	return &Status{
		SessionID:      e.sessionID,
		CurrentTokens:  current,
		MaxTokens:      max,
		UsageRatio:     ratio,
		Level:          e.DetermineLevel(ratio),
		CanAutoCompact: e.canCompact(),
		LastCompaction: last,
	}, nil
}

// Stats summarizes a session's compaction history.
type Stats struct {
	TotalCompactions int
	TotalTokensFreed int
	ByLevel          map[store.CompactionLevel]int
}

// GetStats returns aggregate compaction statistics for the session.
func (e *Engine) GetStats() (*Stats, error) {
	history, err := e.store.GetCompactionHistory(e.sessionID)
	if err != nil {
		return nil, err
	}

	stats := &Stats{ByLevel: make(map[store.CompactionLevel]int)}
	for _, ev := range history {
		stats.TotalCompactions++
		stats.TotalTokensFreed += ev.TokensFreed
		stats.ByLevel[ev.Level]++
	}
	return stats, nil
}
