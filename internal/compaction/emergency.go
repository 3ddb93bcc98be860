package compaction

import (
	"context"
	"fmt"
	"strings"

	"ctxengine/internal/logging"
	"ctxengine/internal/store"
	"ctxengine/internal/tokens"
)

// summaryPrefix wraps every Level 3 summary message so downstream readers
// (and humans inspecting history) can tell a synthetic summary turn apart
// from a real one at a glance, independent of the is_summary flag.
const summaryPrefix = "[Previous conversation summary]\n"

// Emergency runs Level 3 compaction: first recompresses every remaining
// full-mode file reference (the same recompression Level 1 runs, but with
// every file treated as stale, since at this level none of them are worth
// preserving in full), then summarizes every message outside the newest
// EmergencyKeep into a single synthetic, sentinel-wrapped summary message.
// The Summarizer is tried first; if it is nil or errors, a deterministic
// structural fallback summary is used instead, so emergency compaction
// never fails the session merely because an LLM backend is unavailable.
func (s *Strategies) Emergency(ctx context.Context, sessionID string) (Result, error) {
	before, err := sessionTokenTotal(s.Store, sessionID)
	if err != nil {
		return Result{}, err
	}

	if _, err := recompressStaleFiles(s.Store, sessionID, 0, s.Cfg.FloorTokens); err != nil {
		return Result{}, err
	}

	messages, err := s.Store.LoadMessages(sessionID)
	if err != nil {
		return Result{}, err
	}

	keep := s.Cfg.EmergencyKeep
	if len(messages) <= keep {
		after, err := sessionTokenTotal(s.Store, sessionID)
		if err != nil {
			return Result{}, err
		}
		return recordResult(s.Store, sessionID, store.LevelEmergency, before, after, 0)
	}

	toSummarize := messages[:len(messages)-keep]
	summaryText := summaryPrefix + s.summarize(ctx, toSummarize)

	origTokens := 0
	for _, m := range toSummarize {
		origTokens += m.Tokens
	}
	summaryTokens := tokens.Estimate(summaryText)
	if floor := origTokens / 10; summaryTokens < floor {
		summaryTokens = floor
	}
	if summaryTokens < s.Cfg.FloorTokens {
		summaryTokens = s.Cfg.FloorTokens
	}

	ids := make([]int64, len(toSummarize))
	for i, m := range toSummarize {
		ids[i] = m.ID
	}

	if _, err := s.Store.ReplaceMessagesWithSummary(sessionID, ids, summaryText, summaryTokens); err != nil {
		return Result{}, err
	}

	after, err := sessionTokenTotal(s.Store, sessionID)
	if err != nil {
		return Result{}, err
	}

	return recordResult(s.Store, sessionID, store.LevelEmergency, before, after, len(toSummarize))
}

func (s *Strategies) summarize(ctx context.Context, messages []*store.Message) string {
	if s.Summarizer != nil {
		if text, err := s.Summarizer.Summarize(ctx, messages); err == nil && strings.TrimSpace(text) != "" {
			return text
		} else if err != nil {
			logging.CompactionDebug("summarizer unavailable, using fallback: %v", err)
		}
	}
	return fallbackSummary(messages)
}

// fallbackSummary builds a deterministic structural summary when no LLM
// summarizer is available: message counts by role, an excerpt of how the
// conversation started, and whether it touched code or files — enough to
// audit what was lost without a narrative summary.
func fallbackSummary(messages []*store.Message) string {
	var userCount, assistantCount int
	var codeCount, fileRefCount int
	for _, m := range messages {
		switch m.Role {
		case "user":
			userCount++
		case "assistant":
			assistantCount++
		}
		if strings.Contains(m.Content, "```") {
			codeCount++
		}
		if strings.Contains(m.Content, "@./") || strings.Contains(m.Content, "@/") {
			fileRefCount++
		}
	}

	parts := []string{
		fmt.Sprintf("Conversation contained %d user messages and %d assistant responses.", userCount, assistantCount),
	}

	if len(messages) > 0 {
		first := messages[0].Content
		if r := []rune(first); len(r) > 200 {
			first = string(r[:200])
		}
		parts = append(parts, fmt.Sprintf("Started with: %s...", first))
	}

	if codeCount > 0 {
		parts = append(parts, fmt.Sprintf("Included %d code-related exchanges.", codeCount))
	}

	if fileRefCount > 0 {
		parts = append(parts, fmt.Sprintf("Referenced files in %d messages.", fileRefCount))
	}

	return strings.Join(parts, "\n")
}
