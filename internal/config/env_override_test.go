package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvOverrides_Store(t *testing.T) {
	t.Setenv("CTXENGINE_DB_PATH", "/tmp/sessions.db")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "/tmp/sessions.db", cfg.Store.DatabasePath)
}

func TestEnvOverrides_Embedding(t *testing.T) {
	t.Run("endpoint override", func(t *testing.T) {
		t.Setenv("CTXENGINE_EMBEDDING_ENDPOINT", "http://custom:11434/api/embeddings")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "http://custom:11434/api/embeddings", cfg.Embedding.EndpointURL)
	})

	t.Run("primary and fallback model overrides", func(t *testing.T) {
		t.Setenv("CTXENGINE_EMBEDDING_MODEL", "custom-embed")
		t.Setenv("CTXENGINE_EMBEDDING_FALLBACK_MODEL", "custom-embed-fallback")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "custom-embed", cfg.Embedding.PrimaryModel)
		assert.Equal(t, "custom-embed-fallback", cfg.Embedding.FallbackModel)
	})
}

func TestEnvOverrides_MaxContextTokens(t *testing.T) {
	t.Run("valid positive value applies", func(t *testing.T) {
		t.Setenv("CTXENGINE_MAX_CONTEXT_TOKENS", "128000")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, 128000, cfg.Engine.MaxContextTokens)
	})

	t.Run("non-numeric value is ignored", func(t *testing.T) {
		t.Setenv("CTXENGINE_MAX_CONTEXT_TOKENS", "not-a-number")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, DefaultEngineConfig().MaxContextTokens, cfg.Engine.MaxContextTokens)
	})

	t.Run("non-positive value is ignored", func(t *testing.T) {
		t.Setenv("CTXENGINE_MAX_CONTEXT_TOKENS", "-5")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, DefaultEngineConfig().MaxContextTokens, cfg.Engine.MaxContextTokens)
	})
}

func TestEnvOverrides_Debug(t *testing.T) {
	t.Run("true enables debug mode", func(t *testing.T) {
		t.Setenv("CTXENGINE_DEBUG", "true")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.True(t, cfg.Logging.DebugMode)
	})

	t.Run("1 enables debug mode", func(t *testing.T) {
		t.Setenv("CTXENGINE_DEBUG", "1")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.True(t, cfg.Logging.DebugMode)
	})

	t.Run("unset leaves debug mode off", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.False(t, cfg.Logging.DebugMode)
	})
}

func TestEnvOverrides_Summarizer(t *testing.T) {
	t.Setenv("CTXENGINE_GENAI_API_KEY", "test-api-key")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "test-api-key", cfg.Summarizer.APIKey)
	assert.True(t, cfg.Summarizer.Enabled)
}
