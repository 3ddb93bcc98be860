package config

// EngineConfig configures the context management engine's threshold ladder,
// cooldown gates, and per-level compaction parameters.
//
// Threshold ladder (expressed as fractions of MaxContextTokens, applied to
// current_tokens/MaxContextTokens):
//
//	u < Soft                 -> level 0 (no-op)
//	Soft   <= u < Hard        -> level 1 (soft: file recompression)
//	Hard   <= u < Emergency   -> level 2 (hard: relevance-based pruning)
//	Emergency <= u            -> level 3 (emergency: summarization)
type EngineConfig struct {
	// MaxContextTokens is the ceiling a session's live token count is
	// measured against when computing usage ratios.
	MaxContextTokens int `yaml:"max_context_tokens" json:"max_context_tokens"`

	// Threshold ladder, expressed as fractions of MaxContextTokens.
	SoftThreshold      float64 `yaml:"soft_threshold" json:"soft_threshold"`
	HardThreshold      float64 `yaml:"hard_threshold" json:"hard_threshold"`
	EmergencyThreshold float64 `yaml:"emergency_threshold" json:"emergency_threshold"`

	// Cooldown gates. Both must be satisfied before auto-compaction runs;
	// force_compact bypasses both.
	MinMessagesBetweenCompaction int `yaml:"min_messages_between_compaction" json:"min_messages_between_compaction"`
	MinTimeBetweenCompactionSecs int `yaml:"min_time_between_compaction_secs" json:"min_time_between_compaction_secs"`

	// StaleFileThreshold: a tracked file reference is "stale" once it has
	// not appeared in the newest N messages.
	StaleFileThreshold int `yaml:"stale_file_threshold" json:"stale_file_threshold"`

	// FloorTokens is the minimum token budget a recompressed file reference
	// may be reduced to by Level 1 (soft) compaction.
	FloorTokens int `yaml:"floor_tokens" json:"floor_tokens"`

	// MinMessagesToKeep protects the newest N messages from Level 2 pruning.
	MinMessagesToKeep int `yaml:"min_messages_to_keep" json:"min_messages_to_keep"`

	// RelevanceKeepPercentage is the fraction of Level 2 pruning candidates
	// retained after relevance scoring (rounded up, minimum 1 if any
	// candidates exist).
	RelevanceKeepPercentage float64 `yaml:"relevance_keep_percentage" json:"relevance_keep_percentage"`

	// EmergencyKeep protects the newest N messages from Level 3
	// summarization.
	EmergencyKeep int `yaml:"emergency_keep" json:"emergency_keep"`

	// UseVectorScoring enables semantic (embedding) relevance scoring; when
	// false, or when the embedder is unavailable, the scorer falls back to
	// lexical (Jaccard) scoring.
	UseVectorScoring bool `yaml:"use_vector_scoring" json:"use_vector_scoring"`
}

// DefaultEngineConfig returns the engine defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxContextTokens:             64000,
		SoftThreshold:                0.50,
		HardThreshold:                0.65,
		EmergencyThreshold:           0.80,
		MinMessagesBetweenCompaction: 2,
		MinTimeBetweenCompactionSecs: 30,
		StaleFileThreshold:           3,
		FloorTokens:                  50,
		MinMessagesToKeep:            4,
		RelevanceKeepPercentage:      0.50,
		EmergencyKeep:                4,
		UseVectorScoring:             true,
	}
}

// EmbeddingConfig configures the embedder client's backend endpoint and
// in-memory cache.
type EmbeddingConfig struct {
	// PrimaryModel is attempted first for every embed request.
	PrimaryModel string `yaml:"primary_model" json:"primary_model"`

	// FallbackModel is attempted if the primary model errors.
	FallbackModel string `yaml:"fallback_model" json:"fallback_model"`

	// EndpointURL is the embedding service's HTTP endpoint, e.g. an
	// Ollama-compatible `/api/embeddings` route.
	EndpointURL string `yaml:"endpoint_url" json:"endpoint_url"`

	// CacheCapacity bounds the embedder's in-memory LRU cache entry count.
	CacheCapacity int `yaml:"cache_capacity" json:"cache_capacity"`

	// EmbedTimeoutSecs bounds a single embed request round trip.
	EmbedTimeoutSecs int `yaml:"embed_timeout_secs" json:"embed_timeout_secs"`
}

// DefaultEmbeddingConfig returns sensible defaults for a local
// Ollama-compatible embedding server.
func DefaultEmbeddingConfig() EmbeddingConfig {
	return EmbeddingConfig{
		PrimaryModel:     "nomic-embed-text",
		FallbackModel:    "",
		EndpointURL:      "http://localhost:11434/api/embeddings",
		CacheCapacity:    1000,
		EmbedTimeoutSecs: 30,
	}
}

// StoreConfig configures the persistence store.
type StoreConfig struct {
	// DatabasePath is the on-disk SQLite file. Empty selects the
	// platform-appropriate per-user default (see store.DefaultDBPath).
	DatabasePath string `yaml:"database_path" json:"database_path"`

	// PurgeAfterDays, when positive, is the session inactivity age (by
	// last_used) after which a session becomes eligible for purge.
	PurgeAfterDays int `yaml:"purge_after_days" json:"purge_after_days"`
}

// DefaultStoreConfig returns the default store configuration.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{DatabasePath: "", PurgeAfterDays: 90}
}

// SummarizerConfig configures the optional LLM-backed Level 3 (emergency)
// summarizer. When disabled, or when APIKey is empty, emergency compaction
// uses the deterministic structural fallback summary instead.
type SummarizerConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	APIKey  string `yaml:"api_key" json:"api_key"`
	Model   string `yaml:"model" json:"model"`
}

// DefaultSummarizerConfig returns the summarizer defaults (disabled).
func DefaultSummarizerConfig() SummarizerConfig {
	return SummarizerConfig{Enabled: false, APIKey: "", Model: "gemini-2.0-flash"}
}
