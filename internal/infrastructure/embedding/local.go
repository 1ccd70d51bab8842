package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
	"github.com/kirillkom/knowledge-retrieval/internal/infrastructure/resilience"
)

// LocalConfig addresses an in-boundary embedding service that accepts
// {"text": ...} and answers {"embedding": [...]}.
type LocalConfig struct {
	URL       string
	APIKey    string
	Dimension int
	Timeout   time.Duration
}

type LocalEmbedder struct {
	url       string
	apiKey    string
	dimension int
	transport *transport
}

func NewLocalEmbedder(cfg LocalConfig, executor *resilience.Executor) (*LocalEmbedder, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, domain.WrapError(domain.ErrConfiguration, "local embeddings", errors.New("LOCAL_EMBEDDINGS_URL is not set"))
	}
	return &LocalEmbedder{
		url:       cfg.URL,
		apiKey:    cfg.APIKey,
		dimension: cfg.Dimension,
		transport: newTransport(domain.EmbeddingLocal, cfg.Timeout, executor),
	}, nil
}

func (e *LocalEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var headers http.Header
	if e.apiKey != "" {
		headers = http.Header{
			"X-API-Key":     []string{e.apiKey},
			"Authorization": []string{"Bearer " + e.apiKey},
		}
	}

	var response map[string]json.RawMessage
	if err := e.transport.postJSON(ctx, e.url, headers, map[string]string{"text": text}, &response); err != nil {
		return nil, err
	}

	raw, ok := response["embedding"]
	if !ok {
		return nil, domain.WrapError(domain.ErrEmbedding, "embed_local", errors.New("response has no embedding field"))
	}
	var vector []float32
	if err := json.Unmarshal(raw, &vector); err != nil {
		return nil, domain.WrapError(domain.ErrEmbedding, "embed_local", fmt.Errorf("embedding is not a numeric array: %w", err))
	}
	if len(vector) == 0 {
		return nil, domain.WrapError(domain.ErrEmbedding, "embed_local", errors.New("embedding is empty"))
	}
	return checkDimension(vector, e.dimension)
}

func (e *LocalEmbedder) Dimension() int {
	return e.dimension
}

func (e *LocalEmbedder) Backend() domain.EmbeddingBackend {
	return domain.EmbeddingLocal
}
