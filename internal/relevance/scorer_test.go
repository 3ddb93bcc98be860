package relevance

import (
	"context"
	"testing"
)

func TestLexicalScoreIdenticalIsOne(t *testing.T) {
	got := lexicalScore("the quick brown fox", "the quick brown fox")
	if got != 1.0 {
		t.Errorf("expected 1.0 for identical text, got %v", got)
	}
}

func TestLexicalScoreDisjointIsZero(t *testing.T) {
	got := lexicalScore("alpha beta gamma", "delta epsilon zeta")
	if got != 0.0 {
		t.Errorf("expected 0.0 for disjoint text, got %v", got)
	}
}

func TestLexicalScoreIgnoresShortTokens(t *testing.T) {
	// "a" and "to" are below the length-3 floor and contribute nothing.
	got := lexicalScore("a to go", "a to go")
	if got != 0.0 {
		t.Errorf("expected 0.0 when all tokens are below length 3, got %v", got)
	}
}

func TestApplyBoostsCapsAtOne(t *testing.T) {
	c := Candidate{Role: "assistant", Content: "```go\nfunc f() {}\n``` see @./main.go"}
	got := applyBoosts(0.9, c)
	if got != 1.0 {
		t.Errorf("expected boosts to cap at 1.0, got %v", got)
	}
}

func TestApplyBoostsNoMatchLeavesScoreUnchanged(t *testing.T) {
	c := Candidate{Role: "user", Content: "plain text, no boosts apply here"}
	got := applyBoosts(0.4, c)
	if got != 0.4 {
		t.Errorf("expected unboosted score to pass through, got %v", got)
	}
}

func TestScoreFallsBackToLexicalWithoutEmbedder(t *testing.T) {
	s := New(nil, true)
	got := s.Score(context.Background(), "the quick brown fox", Candidate{Role: "user", Content: "the quick brown fox"})
	if got != 1.0 {
		t.Errorf("expected lexical fallback to score identical text 1.0, got %v", got)
	}
}
