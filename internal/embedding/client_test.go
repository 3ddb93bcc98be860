package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"nil a", nil, []float32{1}, 0.0},
		{"empty b", []float32{1}, []float32{}, 0.0},
		{"zero norm", []float32{0, 0}, []float32{1, 1}, 0.0},
		{"length mismatch", []float32{1, 2}, []float32{1, 2, 3}, 0.0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := CosineSimilarity(c.a, c.b)
			if diff := got - c.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("CosineSimilarity(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
			}
		})
	}
}

func TestScoreRelevanceRemapsToUnitRange(t *testing.T) {
	got := ScoreRelevance([]float32{1, 0}, []float32{-1, 0})
	if got != 0.0 {
		t.Errorf("expected opposite vectors to score 0.0, got %v", got)
	}
	got = ScoreRelevance([]float32{1, 0}, []float32{1, 0})
	if got != 1.0 {
		t.Errorf("expected identical vectors to score 1.0, got %v", got)
	}
}

func newTestServer(t *testing.T, vector []float32, failModels map[string]bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if failModels[req.Model] {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(embedResponse{Embedding: vector})
	}))
}

func TestEmbedFallsBackOnPrimaryFailure(t *testing.T) {
	srv := newTestServer(t, []float32{1, 2, 3}, map[string]bool{"primary": true})
	defer srv.Close()

	c := New(Config{EndpointURL: srv.URL, PrimaryModel: "primary", FallbackModel: "fallback", CacheCapacity: 10})
	vec, err := c.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("expected fallback vector, got %v", vec)
	}
}

func TestEmbedReturnsNilWhenBothModelsFail(t *testing.T) {
	srv := newTestServer(t, nil, map[string]bool{"primary": true, "fallback": true})
	defer srv.Close()

	c := New(Config{EndpointURL: srv.URL, PrimaryModel: "primary", FallbackModel: "fallback"})
	vec, err := c.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if vec != nil {
		t.Errorf("expected nil vector on total failure, got %v", vec)
	}
}

func TestEmbedCachesResult(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{1, 2}})
	}))
	defer srv.Close()

	c := New(Config{EndpointURL: srv.URL, PrimaryModel: "m", CacheCapacity: 10})
	if _, err := c.Embed(context.Background(), "same text"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Embed(context.Background(), "same text"); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("expected 1 HTTP call on cache hit, got %d", calls)
	}
}

func TestIsAvailableMemoizes(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{1}})
	}))
	defer srv.Close()

	c := New(Config{EndpointURL: srv.URL, PrimaryModel: "m"})
	if !c.IsAvailable(context.Background()) {
		t.Fatal("expected available")
	}
	if !c.IsAvailable(context.Background()) {
		t.Fatal("expected available on second check")
	}
	if calls != 1 {
		t.Errorf("expected memoized probe (1 call), got %d", calls)
	}
}
