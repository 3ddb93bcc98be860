package config

import (
	"ctxengine/internal/logging"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete context engine configuration.
type Config struct {
	// Name and Version identify the running build, surfaced in status
	// output and logs.
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Engine configures the threshold ladder and compaction parameters.
	Engine EngineConfig `yaml:"engine"`

	// Embedding configures the embedder client.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Store configures the persistence layer.
	Store StoreConfig `yaml:"store"`

	// Summarizer configures the optional LLM-backed emergency summarizer.
	Summarizer SummarizerConfig `yaml:"summarizer"`

	// Logging configures the categorized file logger.
	Logging LoggingConfig `yaml:"logging"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "ctxengine",
		Version: "0.1.0",

		Engine:     DefaultEngineConfig(),
		Embedding:  DefaultEmbeddingConfig(),
		Store:      DefaultStoreConfig(),
		Summarizer: DefaultSummarizerConfig(),

		Logging: LoggingConfig{
			Level:     "info",
			Format:    "text",
			DebugMode: false,
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults (with
// environment overrides applied) if the file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	logging.BootDebug("loading config from: %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Boot("config file not found, using defaults: %s", path)
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		logging.BootError("failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		logging.BootError("failed to parse config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	logging.Boot("config loaded: max_context_tokens=%d db=%s", cfg.Engine.MaxContextTokens, cfg.Store.DatabasePath)

	return cfg, nil
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides on top of
// whatever was loaded from file (or the defaults).
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("CTXENGINE_DB_PATH"); path != "" {
		c.Store.DatabasePath = path
	}
	if endpoint := os.Getenv("CTXENGINE_EMBEDDING_ENDPOINT"); endpoint != "" {
		c.Embedding.EndpointURL = endpoint
	}
	if model := os.Getenv("CTXENGINE_EMBEDDING_MODEL"); model != "" {
		c.Embedding.PrimaryModel = model
	}
	if model := os.Getenv("CTXENGINE_EMBEDDING_FALLBACK_MODEL"); model != "" {
		c.Embedding.FallbackModel = model
	}
	if tokens := os.Getenv("CTXENGINE_MAX_CONTEXT_TOKENS"); tokens != "" {
		if n, err := parsePositiveInt(tokens); err == nil {
			c.Engine.MaxContextTokens = n
		}
	}
	if v := os.Getenv("CTXENGINE_DEBUG"); v == "1" || v == "true" {
		c.Logging.DebugMode = true
	}
	if key := os.Getenv("CTXENGINE_GENAI_API_KEY"); key != "" {
		c.Summarizer.APIKey = key
		c.Summarizer.Enabled = true
	}
}

func parsePositiveInt(s string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("value must be positive: %d", n)
	}
	return n, nil
}

// MinTimeBetweenCompaction returns the cooldown gate as a duration.
func (c *Config) MinTimeBetweenCompaction() time.Duration {
	return time.Duration(c.Engine.MinTimeBetweenCompactionSecs) * time.Second
}

// EmbedTimeout returns the embedder request timeout as a duration.
func (c *Config) EmbedTimeout() time.Duration {
	if c.Embedding.EmbedTimeoutSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Embedding.EmbedTimeoutSecs) * time.Second
}

// Validate checks the configuration for internally inconsistent values.
func (c *Config) Validate() error {
	if c.Engine.MaxContextTokens <= 0 {
		return fmt.Errorf("engine.max_context_tokens must be positive")
	}
	if !(0 < c.Engine.SoftThreshold && c.Engine.SoftThreshold < c.Engine.HardThreshold &&
		c.Engine.HardThreshold < c.Engine.EmergencyThreshold && c.Engine.EmergencyThreshold <= 1.0) {
		return fmt.Errorf("engine thresholds must satisfy 0 < soft < hard < emergency <= 1.0")
	}
	if c.Engine.MinMessagesToKeep < 1 {
		return fmt.Errorf("engine.min_messages_to_keep must be at least 1")
	}
	if c.Engine.RelevanceKeepPercentage <= 0 || c.Engine.RelevanceKeepPercentage > 1.0 {
		return fmt.Errorf("engine.relevance_keep_percentage must be in (0, 1.0]")
	}
	if c.Embedding.CacheCapacity < 0 {
		return fmt.Errorf("embedding.cache_capacity must be non-negative")
	}
	return nil
}
