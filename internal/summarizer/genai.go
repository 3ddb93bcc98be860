// Package summarizer implements compaction.Summarizer against Google's
// Gemini API, for sessions that opt into LLM-backed Level 3 (emergency)
// compaction rather than the deterministic structural fallback.
package summarizer

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"ctxengine/internal/logging"
	"ctxengine/internal/store"
)

const systemPrompt = `You are summarizing a long-running conversation so it can be replaced with a condensed record. Preserve the user's goals, decisions made, facts established, and the state of any unfinished work. Write in third person, past tense, as a compact briefing for someone continuing the conversation. Do not editorialize about the summarization process itself.`

// GenAIEngine summarizes message runs via the Gemini API.
type GenAIEngine struct {
	client *genai.Client
	model  string
}

// New constructs a GenAIEngine. model defaults to "gemini-2.0-flash" if
// empty.
func New(ctx context.Context, apiKey, model string) (*GenAIEngine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("genai API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GenAIEngine{client: client, model: model}, nil
}

// Summarize implements compaction.Summarizer.
func (g *GenAIEngine) Summarize(ctx context.Context, messages []*store.Message) (string, error) {
	timer := logging.StartTimer(logging.CategoryCompaction, "GenAIEngine.Summarize")
	defer timer.Stop()

	transcript := renderTranscript(messages)
	contents := []*genai.Content{
		genai.NewContentFromText(transcript, genai.RoleUser),
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	})
	if err != nil {
		return "", fmt.Errorf("genai summarize failed: %w", err)
	}

	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("genai returned an empty summary")
	}
	return text, nil
}

func renderTranscript(messages []*store.Message) string {
	var b strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return b.String()
}
