package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
	"github.com/kirillkom/knowledge-retrieval/internal/infrastructure/resilience"
)

// RemoteConfig addresses an OpenAI-compatible embeddings API.
type RemoteConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	Dimension int
	Timeout   time.Duration
}

type RemoteEmbedder struct {
	endpoint  string
	apiKey    string
	model     string
	dimension int
	transport *transport
}

func NewRemoteEmbedder(cfg RemoteConfig, executor *resilience.Executor) (*RemoteEmbedder, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, domain.WrapError(domain.ErrConfiguration, "remote embeddings", errors.New("REMOTE_EMBEDDINGS_API_KEY is not set"))
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, domain.WrapError(domain.ErrConfiguration, "remote embeddings", errors.New("REMOTE_EMBEDDINGS_URL is not set"))
	}
	return &RemoteEmbedder{
		endpoint:  strings.TrimRight(cfg.BaseURL, "/") + "/embeddings",
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		dimension: cfg.Dimension,
		transport: newTransport(domain.EmbeddingRemote, cfg.Timeout, executor),
	}, nil
}

func (e *RemoteEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	request := map[string]any{
		"model": e.model,
		"input": text,
	}

	var response struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	headers := http.Header{"Authorization": []string{"Bearer " + e.apiKey}}
	if err := e.transport.postJSON(ctx, e.endpoint, headers, request, &response); err != nil {
		return nil, err
	}
	if len(response.Data) == 0 || len(response.Data[0].Embedding) == 0 {
		return nil, domain.WrapError(domain.ErrEmbedding, "embed_remote", fmt.Errorf("response has no embedding"))
	}
	return checkDimension(response.Data[0].Embedding, e.dimension)
}

func (e *RemoteEmbedder) Dimension() int {
	return e.dimension
}

func (e *RemoteEmbedder) Backend() domain.EmbeddingBackend {
	return domain.EmbeddingRemote
}
