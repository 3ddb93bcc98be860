// Package embedding implements the context engine's embedder client: an
// HTTP client for an Ollama-compatible embedding endpoint, with a
// primary/fallback model pair, an in-memory LRU response cache, and a
// memoized liveness probe.
package embedding

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"
	"time"

	"ctxengine/internal/logging"
)

// Client embeds text against a configured endpoint, trying a fallback
// model if the primary fails, and caches successful results in memory.
type Client struct {
	endpoint      string
	primaryModel  string
	fallbackModel string
	httpClient    *http.Client

	cache *lruCache

	availMu      sync.Mutex
	availChecked bool
	availResult  bool
}

// Config configures a Client.
type Config struct {
	EndpointURL   string
	PrimaryModel  string
	FallbackModel string
	CacheCapacity int
	Timeout       time.Duration
}

// New constructs a Client. CacheCapacity <= 0 disables caching.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint:      cfg.EndpointURL,
		primaryModel:  cfg.PrimaryModel,
		fallbackModel: cfg.FallbackModel,
		httpClient:    &http.Client{Timeout: timeout},
		cache:         newLRUCache(cfg.CacheCapacity),
	}
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// IsAvailable reports whether the embedding endpoint is reachable. The
// result is memoized for the lifetime of the Client: once determined,
// subsequent calls return the cached verdict rather than re-probing,
// matching the original implementation's once-per-process availability
// check. Unlike that implementation, which shelled out to a CLI tool to
// list installed models, this probes the HTTP endpoint directly with a
// minimal embed request, since that is the actual dependency being
// relied on.
func (c *Client) IsAvailable(ctx context.Context) bool {
	c.availMu.Lock()
	defer c.availMu.Unlock()
	if c.availChecked {
		return c.availResult
	}

	_, err := c.embedOnce(ctx, c.primaryModel, "availability probe")
	c.availResult = err == nil
	c.availChecked = true
	if !c.availResult {
		logging.EmbeddingWarn("embedding endpoint unavailable: %v", err)
	}
	return c.availResult
}

// Embed returns the embedding vector for text, trying the primary model
// first and the fallback model (if configured) on failure. A successful
// result is cached keyed by model+text; a cache hit short-circuits the
// HTTP round trip entirely. Returns (nil, nil) if both models fail and no
// fallback produced a result -- callers treat a nil vector as "no
// semantic score available" and fall back to lexical scoring.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if key := cacheKey(c.primaryModel, text); c.cache != nil {
		if v, ok := c.cache.get(key); ok {
			return v, nil
		}
	}

	vec, err := c.embedOnce(ctx, c.primaryModel, text)
	if err == nil {
		c.cache.put(cacheKey(c.primaryModel, text), vec)
		return vec, nil
	}
	logging.EmbeddingWarn("primary model %q failed: %v", c.primaryModel, err)

	if c.fallbackModel == "" {
		return nil, nil
	}

	if key := cacheKey(c.fallbackModel, text); c.cache != nil {
		if v, ok := c.cache.get(key); ok {
			return v, nil
		}
	}

	vec, err = c.embedOnce(ctx, c.fallbackModel, text)
	if err != nil {
		logging.EmbeddingError("fallback model %q also failed: %v", c.fallbackModel, err)
		return nil, nil
	}
	c.cache.put(cacheKey(c.fallbackModel, text), vec)
	return vec, nil
}

func (c *Client) embedOnce(ctx context.Context, model, text string) ([]float32, error) {
	timer := logging.StartTimer(logging.CategoryEmbedding, "embedOnce")
	defer timer.Stop()

	body, err := json.Marshal(embedRequest{Model: model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embed endpoint returned status %d: %s", resp.StatusCode, string(b))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode embed response: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("embed endpoint returned an empty vector")
	}
	return out.Embedding, nil
}

// cacheKey hashes model||text so cache keys have a bounded size
// regardless of prompt length.
func cacheKey(model, text string) string {
	h := sha256.Sum256([]byte(model + "||" + text))
	return hex.EncodeToString(h[:])
}

// CosineSimilarity returns the cosine similarity of a and b. It returns
// 0.0 (rather than an error) for any of: a nil vector, an empty vector, a
// zero-norm vector, or a length mismatch between a and b -- mirroring the
// original scorer's deliberately permissive failure mode, since a missing
// similarity score should degrade to "no semantic signal" rather than
// abort scoring.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// ScoreRelevance remaps cosine similarity from [-1, 1] to [0, 1].
func ScoreRelevance(a, b []float32) float64 {
	return (CosineSimilarity(a, b) + 1) / 2
}
