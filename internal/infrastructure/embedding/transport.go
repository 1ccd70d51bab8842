package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
	"github.com/kirillkom/knowledge-retrieval/internal/infrastructure/resilience"
)

const maxErrorBody = 2048

// HTTPStatusError is a non-2xx reply from an embedding service.
type HTTPStatusError struct {
	Backend    domain.EmbeddingBackend
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "embedding status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("%s embeddings status: %s", e.Backend, e.Status)
	}
	return fmt.Sprintf("%s embeddings status: %s: %s", e.Backend, e.Status, strings.TrimSpace(e.Body))
}

func (e *HTTPStatusError) HTTPStatus() int {
	return e.StatusCode
}

type transport struct {
	backend    domain.EmbeddingBackend
	httpClient *http.Client
	executor   *resilience.Executor
}

func newTransport(backend domain.EmbeddingBackend, timeout time.Duration, executor *resilience.Executor) *transport {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &transport{
		backend:    backend,
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

// postJSON sends payload and decodes a 2xx body into out. Failures are typed
// as temporary when the breaker or upstream overload is the cause, otherwise
// as embedding errors.
func (t *transport) postJSON(ctx context.Context, url string, headers http.Header, payload any, out any) error {
	operation := "embed_" + string(t.backend)
	call := func(ctx context.Context) error {
		return t.do(ctx, url, headers, payload, out)
	}

	var err error
	if t.executor != nil {
		err = t.executor.Execute(ctx, operation, call, resilience.ClassifyUpstream)
	} else {
		err = call(ctx)
	}
	if err == nil {
		return nil
	}
	if resilience.IsTemporary(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return domain.WrapError(domain.ErrEmbedding, operation, err)
}

func (t *transport) do(ctx context.Context, url string, headers http.Header, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal embeddings request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create embeddings request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s embeddings request: %w", t.backend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &HTTPStatusError{
			Backend:    t.backend,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(raw),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode embeddings response: %w", err)
	}
	return nil
}
