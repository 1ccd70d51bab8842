// Package embedding holds the remote and local embedding providers.
package embedding

import (
	"fmt"
	"time"

	"github.com/kirillkom/knowledge-retrieval/internal/config"
	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
	"github.com/kirillkom/knowledge-retrieval/internal/core/ports"
	"github.com/kirillkom/knowledge-retrieval/internal/infrastructure/resilience"
)

// Select builds the embedder named by policy. Sovereign deployments are refused
// a remote embedder before anything is constructed.
func Select(cfg config.Config, policy domain.DeploymentPolicy, executor *resilience.Executor) (ports.Embedder, error) {
	if err := policy.CheckEmbeddings(); err != nil {
		return nil, err
	}

	timeout := time.Duration(cfg.EmbeddingTimeoutSeconds) * time.Second
	switch policy.Embeddings {
	case domain.EmbeddingLocal:
		return NewLocalEmbedder(LocalConfig{
			URL:       cfg.LocalEmbeddingsURL,
			APIKey:    cfg.LocalEmbeddingsAPIKey,
			Dimension: cfg.EmbeddingDimension,
			Timeout:   timeout,
		}, executor)
	case domain.EmbeddingRemote:
		return NewRemoteEmbedder(RemoteConfig{
			BaseURL:   cfg.RemoteEmbeddingsURL,
			APIKey:    cfg.RemoteEmbeddingsAPIKey,
			Model:     cfg.RemoteEmbeddingsModel,
			Dimension: cfg.EmbeddingDimension,
			Timeout:   timeout,
		}, executor)
	default:
		return nil, domain.WrapError(domain.ErrConfiguration, "select embeddings", fmt.Errorf("unknown backend %q", policy.Embeddings))
	}
}

// checkDimension enforces the configured vector length; zero disables the check.
func checkDimension(vector []float32, want int) ([]float32, error) {
	if want > 0 && len(vector) != want {
		return nil, domain.WrapError(domain.ErrConfiguration, "embedding dimension",
			fmt.Errorf("got %d values, EMBEDDING_DIMENSION is %d", len(vector), want))
	}
	return vector, nil
}
