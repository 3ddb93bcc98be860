package main

import (
	"context"
	"fmt"

	"ctxengine/internal/compaction"
	"ctxengine/internal/config"
	"ctxengine/internal/embedding"
	"ctxengine/internal/engine"
	"ctxengine/internal/logging"
	"ctxengine/internal/relevance"
	"ctxengine/internal/store"
	"ctxengine/internal/summarizer"
)

// openStore opens the session database at the configured path.
func openStore() (*store.Store, error) {
	return store.Open(cfg.Store.DatabasePath)
}

// buildEngine wires a Store, embedder, scorer, and compaction strategies
// into an Engine for the given session.
func buildEngine(st *store.Store, sessionID string) (*engine.Engine, error) {
	embedder := embedding.New(embedding.Config{
		EndpointURL:   cfg.Embedding.EndpointURL,
		PrimaryModel:  cfg.Embedding.PrimaryModel,
		FallbackModel: cfg.Embedding.FallbackModel,
		CacheCapacity: cfg.Embedding.CacheCapacity,
		Timeout:       cfg.EmbedTimeout(),
	})

	strategies := &compaction.Strategies{
		Store:      st,
		Scorer:     relevance.New(embedder, cfg.Engine.UseVectorScoring),
		Summarizer: buildSummarizer(),
		Cfg:        cfg.Engine,
	}

	return engine.New(sessionID, st, strategies, cfg.Engine)
}

// buildSummarizer constructs the optional LLM-backed emergency summarizer.
// It returns nil (deterministic fallback only) if disabled, unconfigured, or
// if the genai client fails to initialize.
func buildSummarizer() compaction.Summarizer {
	if !cfg.Summarizer.Enabled || cfg.Summarizer.APIKey == "" {
		return nil
	}
	s, err := summarizer.New(context.Background(), cfg.Summarizer.APIKey, cfg.Summarizer.Model)
	if err != nil {
		logging.BootError("failed to initialize genai summarizer, falling back to deterministic summary: %v", err)
		return nil
	}
	return s
}

func engineConfigSummary(c config.EngineConfig) string {
	return fmt.Sprintf("max_context_tokens=%d soft=%.2f hard=%.2f emergency=%.2f",
		c.MaxContextTokens, c.SoftThreshold, c.HardThreshold, c.EmergencyThreshold)
}
