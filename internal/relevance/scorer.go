// Package relevance scores how relevant a past message is to a session's
// current focus, for use by Level 2 (hard) compaction's pruning decision.
// Scoring prefers a semantic signal (cosine similarity between message
// embeddings) and falls back to a lexical (Jaccard token overlap) signal
// when embeddings are unavailable.
package relevance

import (
	"context"
	"regexp"
	"strings"

	"ctxengine/internal/embedding"
	"ctxengine/internal/logging"
)

// Boost multipliers applied, in order, to the base relevance score. Each
// boost is multiplicative; the final score is capped at 1.0.
const (
	AssistantRoleBoost = 1.10
	FencedCodeBoost    = 1.20
	FileRefBoost       = 1.15
)

var fileRefPattern = regexp.MustCompile(`(^|\s)@\.?/\S+`)

// Candidate is a single message being scored against a reference text
// (in Level 2 compaction, the concatenated content of the session's
// protected newest messages).
type Candidate struct {
	Role    string
	Content string
}

// Scorer computes relevance scores for candidates against a reference
// text.
type Scorer struct {
	embedder  *embedding.Client
	useVector bool
}

// New constructs a Scorer. embedder may be nil, which forces lexical
// scoring regardless of useVector.
func New(embedder *embedding.Client, useVector bool) *Scorer {
	return &Scorer{embedder: embedder, useVector: useVector}
}

// Score returns the relevance of candidate against reference, in [0, 1],
// after applying role/content boosts and capping at 1.0.
func (s *Scorer) Score(ctx context.Context, reference string, candidate Candidate) float64 {
	base := s.baseScore(ctx, reference, candidate.Content)
	return applyBoosts(base, candidate)
}

// ScoreBatch scores every candidate against the same reference text.
func (s *Scorer) ScoreBatch(ctx context.Context, reference string, candidates []Candidate) []float64 {
	out := make([]float64, len(candidates))
	for i, c := range candidates {
		out[i] = s.Score(ctx, reference, c)
	}
	return out
}

func (s *Scorer) baseScore(ctx context.Context, reference, content string) float64 {
	if s.useVector && s.embedder != nil && s.embedder.IsAvailable(ctx) {
		refVec, err1 := s.embedder.Embed(ctx, reference)
		candVec, err2 := s.embedder.Embed(ctx, content)
		if err1 == nil && err2 == nil && refVec != nil && candVec != nil {
			return embedding.ScoreRelevance(refVec, candVec)
		}
		logging.RelevanceDebug("semantic scoring unavailable for this pair, falling back to lexical")
	}
	return lexicalScore(reference, content)
}

// applyBoosts multiplies the base score by each applicable boost, in
// order (role, then fenced code, then file reference), and caps the
// result at 1.0.
func applyBoosts(base float64, c Candidate) float64 {
	score := base
	if strings.EqualFold(c.Role, "assistant") {
		score *= AssistantRoleBoost
	}
	if strings.Contains(c.Content, "```") {
		score *= FencedCodeBoost
	}
	if fileRefPattern.MatchString(c.Content) {
		score *= FileRefBoost
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// lexicalScore computes the Jaccard similarity of the alphanumeric,
// lowercased, length>=3 token sets of a and b.
func lexicalScore(a, b string) float64 {
	ta := tokenSet(a)
	tb := tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0.0
	}

	intersection := 0
	for tok := range ta {
		if tb[tok] {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(text string) map[string]bool {
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		if len(t) >= 3 {
			set[t] = true
		}
	}
	return set
}
