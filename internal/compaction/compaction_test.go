package compaction

import (
	"context"
	"strings"
	"testing"

	"ctxengine/internal/config"
	"ctxengine/internal/relevance"
	"ctxengine/internal/store"
)

func newTestStrategies(t *testing.T) (*Strategies, *store.Store, string) {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	sessionID := "sess-1"
	if _, err := st.CreateSession(sessionID, "test-model", "", 1000); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	cfg := config.DefaultEngineConfig()
	cfg.MinMessagesToKeep = 2
	cfg.EmergencyKeep = 2
	cfg.RelevanceKeepPercentage = 0.5

	return &Strategies{
		Store:      st,
		Scorer:     relevance.New(nil, false),
		Summarizer: nil,
		Cfg:        cfg,
	}, st, sessionID
}

func TestSoftRecompressesStaleFiles(t *testing.T) {
	s, st, sessionID := newTestStrategies(t)

	old, err := st.SaveMessage(sessionID, "user", "here's the file", 10)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.TrackFileReference(sessionID, "big.go", store.FileModeFull, 900, old.ID); err != nil {
		t.Fatal(err)
	}

	// Push enough newer messages that big.go's reference falls outside
	// the newest StaleFileThreshold messages.
	for i := 0; i < s.Cfg.StaleFileThreshold+1; i++ {
		if _, err := st.SaveMessage(sessionID, "user", "unrelated", 10); err != nil {
			t.Fatal(err)
		}
	}

	res, err := s.Soft(sessionID)
	if err != nil {
		t.Fatalf("Soft: %v", err)
	}
	if res.MessagesAffected != 1 {
		t.Errorf("expected 1 file recompressed, got %d", res.MessagesAffected)
	}

	fr, err := st.GetFileReference(sessionID, "big.go")
	if err != nil {
		t.Fatal(err)
	}
	if fr.Mode != store.FileModeSummary {
		t.Errorf("expected file recompressed to summary mode, got %s", fr.Mode)
	}
	if fr.Tokens < s.Cfg.FloorTokens {
		t.Errorf("expected recompressed tokens to respect floor, got %d", fr.Tokens)
	}
}

func TestSoftLeavesRecentFilesAlone(t *testing.T) {
	s, st, sessionID := newTestStrategies(t)

	msg, err := st.SaveMessage(sessionID, "user", "here's the file", 10)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.TrackFileReference(sessionID, "fresh.go", store.FileModeFull, 900, msg.ID); err != nil {
		t.Fatal(err)
	}

	res, err := s.Soft(sessionID)
	if err != nil {
		t.Fatalf("Soft: %v", err)
	}
	if res.MessagesAffected != 0 {
		t.Errorf("expected no files recompressed when within the stale threshold, got %d", res.MessagesAffected)
	}

	fr, err := st.GetFileReference(sessionID, "fresh.go")
	if err != nil {
		t.Fatal(err)
	}
	if fr.Mode != store.FileModeFull {
		t.Errorf("expected fresh.go to remain in full mode, got %s", fr.Mode)
	}
}

func TestHardPrunesLowestScoringMessages(t *testing.T) {
	s, st, sessionID := newTestStrategies(t)

	for i := 0; i < 6; i++ {
		if _, err := st.SaveMessage(sessionID, "user", "unrelated filler content here", 50); err != nil {
			t.Fatal(err)
		}
	}

	res, err := s.Hard(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("Hard: %v", err)
	}
	if res.MessagesAffected == 0 {
		t.Error("expected some messages pruned")
	}

	remaining, err := st.LoadMessages(sessionID)
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) < s.Cfg.MinMessagesToKeep {
		t.Errorf("expected at least MinMessagesToKeep messages to survive, got %d", len(remaining))
	}
}

func TestHardNoopBelowMinMessagesToKeep(t *testing.T) {
	s, st, sessionID := newTestStrategies(t)
	if _, err := st.SaveMessage(sessionID, "user", "hello", 10); err != nil {
		t.Fatal(err)
	}

	res, err := s.Hard(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("Hard: %v", err)
	}
	if res.MessagesAffected != 0 {
		t.Errorf("expected no-op when under MinMessagesToKeep, got %d affected", res.MessagesAffected)
	}
}

func TestEmergencyFallsBackToDeterministicSummary(t *testing.T) {
	s, st, sessionID := newTestStrategies(t)

	for i := 0; i < 5; i++ {
		if _, err := st.SaveMessage(sessionID, "user", "message content", 100); err != nil {
			t.Fatal(err)
		}
	}

	res, err := s.Emergency(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("Emergency: %v", err)
	}
	if res.MessagesAffected != 3 {
		t.Errorf("expected 3 messages summarized (5 - EmergencyKeep=2), got %d", res.MessagesAffected)
	}

	remaining, err := st.LoadMessages(sessionID)
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 3 {
		t.Fatalf("expected 1 summary + 2 protected = 3 messages, got %d", len(remaining))
	}

	var summary *store.Message
	for _, m := range remaining {
		if m.IsSummary {
			summary = m
		}
	}
	if summary == nil {
		t.Fatal("expected exactly one is_summary=true message among the survivors")
	}
	if summary.Role != "system" {
		t.Errorf("expected summary message to have role system, got %s", summary.Role)
	}
	if !strings.HasPrefix(summary.Content, summaryPrefix) {
		t.Errorf("expected summary content to start with sentinel %q, got %q", summaryPrefix, summary.Content)
	}
	if !strings.Contains(summary.Content, "user messages") || !strings.Contains(summary.Content, "assistant responses") {
		t.Errorf("expected fallback summary to report user/assistant counts, got %q", summary.Content)
	}
}

func TestEmergencyRecompressesFullModeFilesBeforeSummarizing(t *testing.T) {
	s, st, sessionID := newTestStrategies(t)

	for i := 0; i < 5; i++ {
		if _, err := st.SaveMessage(sessionID, "user", "message content", 100); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := st.TrackFileReference(sessionID, "main.go", store.FileModeFull, 800, 1); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Emergency(context.Background(), sessionID); err != nil {
		t.Fatalf("Emergency: %v", err)
	}

	fr, err := st.GetFileReference(sessionID, "main.go")
	if err != nil {
		t.Fatal(err)
	}
	if fr.Mode != store.FileModeSummary {
		t.Errorf("expected emergency compaction to recompress every full-mode file, got mode %s", fr.Mode)
	}
}
