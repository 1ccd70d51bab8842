package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/knowledge-retrieval/internal/config"
	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
	"github.com/kirillkom/knowledge-retrieval/internal/infrastructure/resilience"
)

func TestRemoteEmbedderSendsOpenAIRequest(t *testing.T) {
	var payload map[string]any
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer server.Close()

	embedder, err := NewRemoteEmbedder(RemoteConfig{
		BaseURL:   server.URL + "/v1/",
		APIKey:    "sk-test",
		Model:     "text-embedding-3-small",
		Dimension: 3,
	}, nil)
	if err != nil {
		t.Fatalf("NewRemoteEmbedder() error = %v", err)
	}

	vector, err := embedder.Embed(context.Background(), "labor law")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vector) != 3 || vector[1] != 0.2 {
		t.Fatalf("unexpected vector %v", vector)
	}
	if auth != "Bearer sk-test" {
		t.Fatalf("unexpected auth header %q", auth)
	}
	if payload["model"] != "text-embedding-3-small" || payload["input"] != "labor law" {
		t.Fatalf("unexpected payload %v", payload)
	}
	if embedder.Backend() != domain.EmbeddingRemote || embedder.Dimension() != 3 {
		t.Fatalf("unexpected backend/dimension")
	}
}

func TestRemoteEmbedderRequiresAPIKey(t *testing.T) {
	_, err := NewRemoteEmbedder(RemoteConfig{BaseURL: "http://x"}, nil)
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRemoteEmbedderIncludesStatusAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer server.Close()

	embedder, _ := NewRemoteEmbedder(RemoteConfig{BaseURL: server.URL, APIKey: "bad"}, nil)
	_, err := embedder.Embed(context.Background(), "hello")
	if !domain.IsKind(err, domain.ErrEmbedding) {
		t.Fatalf("expected embedding error, got %v", err)
	}
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected HTTPStatusError 401, got %v", err)
	}
	if !strings.Contains(err.Error(), "invalid api key") {
		t.Fatalf("expected body in error, got %v", err)
	}
}

func TestUpstreamOverloadIsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer server.Close()

	embedder, _ := NewLocalEmbedder(LocalConfig{URL: server.URL}, resilience.NewExecutor(resilience.DefaultConfig()))
	_, err := embedder.Embed(context.Background(), "hello")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}

func TestLocalEmbedderSendsTextAndKey(t *testing.T) {
	var body map[string]string
	var apiKey, auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("X-API-Key")
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"embedding":[1,2]}`))
	}))
	defer server.Close()

	embedder, err := NewLocalEmbedder(LocalConfig{URL: server.URL, APIKey: "secret", Dimension: 2, Timeout: time.Second}, nil)
	if err != nil {
		t.Fatalf("NewLocalEmbedder() error = %v", err)
	}
	vector, err := embedder.Embed(context.Background(), "مرسوم")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vector) != 2 || body["text"] != "مرسوم" {
		t.Fatalf("unexpected exchange: vector=%v body=%v", vector, body)
	}
	if apiKey != "secret" || auth != "Bearer secret" {
		t.Fatalf("unexpected auth headers %q %q", apiKey, auth)
	}
}

func TestLocalEmbedderRejectsMalformedResponses(t *testing.T) {
	for _, reply := range []string{
		`{"vector":[1,2]}`,
		`{"embedding":"oops"}`,
		`{"embedding":[]}`,
		`{"embedding":[1,"a"]}`,
	} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(reply))
		}))
		embedder, _ := NewLocalEmbedder(LocalConfig{URL: server.URL}, nil)
		_, err := embedder.Embed(context.Background(), "x")
		server.Close()
		if !domain.IsKind(err, domain.ErrEmbedding) {
			t.Fatalf("reply %s: expected embedding error, got %v", reply, err)
		}
	}
}

func TestLocalEmbedderRequiresURL(t *testing.T) {
	_, err := NewLocalEmbedder(LocalConfig{}, nil)
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestDimensionMismatchIsConfigurationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embedding":[1,2,3]}`))
	}))
	defer server.Close()

	embedder, _ := NewLocalEmbedder(LocalConfig{URL: server.URL, Dimension: 4}, nil)
	_, err := embedder.Embed(context.Background(), "x")
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestSelect(t *testing.T) {
	cfg := config.Config{
		RemoteEmbeddingsURL:    "https://api.example.com/v1",
		RemoteEmbeddingsAPIKey: "key",
		LocalEmbeddingsURL:     "http://embedder.internal/embed",
		EmbeddingDimension:     8,
	}

	_, err := Select(cfg, domain.DeploymentPolicy{Sovereign: true, Embeddings: domain.EmbeddingRemote}, nil)
	if !errors.Is(err, domain.ErrSovereignViolation) || !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected sovereign violation, got %v", err)
	}

	local, err := Select(cfg, domain.DeploymentPolicy{Sovereign: true, Embeddings: domain.EmbeddingLocal}, nil)
	if err != nil || local.Backend() != domain.EmbeddingLocal {
		t.Fatalf("expected local embedder, got %v / %v", local, err)
	}

	remote, err := Select(cfg, domain.DeploymentPolicy{Embeddings: domain.EmbeddingRemote}, nil)
	if err != nil || remote.Backend() != domain.EmbeddingRemote || remote.Dimension() != 8 {
		t.Fatalf("expected remote embedder, got %v / %v", remote, err)
	}
}
