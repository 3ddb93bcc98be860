package engine

import (
	"context"
	"strings"
	"testing"

	"ctxengine/internal/compaction"
	"ctxengine/internal/config"
	"ctxengine/internal/relevance"
	"ctxengine/internal/store"
)

func newTestEngine(t *testing.T, maxTokens int) (*Engine, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	sessionID := "sess-1"
	if _, err := st.CreateSession(sessionID, "test-model", "", maxTokens); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	cfg := config.DefaultEngineConfig()
	cfg.MaxContextTokens = maxTokens
	cfg.MinMessagesBetweenCompaction = 0
	cfg.MinTimeBetweenCompactionSecs = 0

	strategies := &compaction.Strategies{
		Store:  st,
		Scorer: relevance.New(nil, false),
		Cfg:    cfg,
	}

	e, err := New(sessionID, st, strategies, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e, st
}

func TestDetermineLevelLadder(t *testing.T) {
	e, _ := newTestEngine(t, 1000)
	cases := []struct {
		ratio float64
		want  Level
	}{
		{0.1, LevelNone},
		{0.49, LevelNone},
		{0.50, LevelSoft},
		{0.64, LevelSoft},
		{0.65, LevelHard},
		{0.79, LevelHard},
		{0.80, LevelEmergency},
		{1.0, LevelEmergency},
	}
	for _, c := range cases {
		if got := e.DetermineLevel(c.ratio); got != c.want {
			t.Errorf("DetermineLevel(%v) = %v, want %v", c.ratio, got, c.want)
		}
	}
}

func TestAddMessageTriggersAutoCompactAtHardThreshold(t *testing.T) {
	e, st := newTestEngine(t, 400)

	var lastResult *compaction.Result
	for i := 0; i < 20; i++ {
		_, res, err := e.AddMessage(context.Background(), "user", strings.Repeat("word ", 20))
		if err != nil {
			t.Fatalf("AddMessage: %v", err)
		}
		if res != nil {
			lastResult = res
		}
	}

	if lastResult == nil {
		t.Fatal("expected at least one auto-compaction to have run")
	}

	history, err := st.GetCompactionHistory("sess-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) == 0 {
		t.Error("expected compaction events recorded")
	}

	sawHard := false
	for _, ev := range history {
		if ev.Level == store.LevelHard {
			sawHard = true
		}
	}
	if !sawHard {
		t.Error("expected a hard-level compaction event once usage crossed the hard threshold")
	}
}

func TestForceCompactBypassesCooldownAndLowUsage(t *testing.T) {
	e, _ := newTestEngine(t, 100000)
	if _, _, err := e.AddMessage(context.Background(), "user", "hello"); err != nil {
		t.Fatal(err)
	}

	// Close the message-count cooldown gate so ForceCompact has one to bypass.
	e.cfg.MinMessagesBetweenCompaction = 100
	if e.canCompact() {
		t.Fatal("expected the cooldown gate to be closed")
	}

	res, err := e.ForceCompact(context.Background())
	if err != nil {
		t.Fatalf("ForceCompact: %v", err)
	}
	if res == nil {
		t.Fatal("expected ForceCompact to run even below threshold")
	}
}

func TestAddMessage(t *testing.T) {
	e, _ := newTestEngine(t, 100000)
	msg, _, err := e.AddMessage(context.Background(), "user", "hi")
	if err != nil {
		t.Fatal(err)
	}
	if msg.Role != "user" || msg.Content != "hi" {
		t.Errorf("unexpected message: %+v", msg)
	}
}
