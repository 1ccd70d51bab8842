package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
	"github.com/kirillkom/knowledge-retrieval/internal/core/usecase"
	"github.com/kirillkom/knowledge-retrieval/internal/infrastructure/retrieval"
	"github.com/kirillkom/knowledge-retrieval/internal/observability/metrics"
)

type searcherFake struct {
	req  domain.SearchRequest
	resp *domain.SearchResponse
	err  error
}

func (f *searcherFake) Search(_ context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	f.req = req
	return f.resp, f.err
}

func newTestHandler(searcher *searcherFake) http.Handler {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewRouter(searcher, metrics.NewHTTPServerMetrics("test"), logger).Handler()
}

func postSearch(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/knowledge/search", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestSearchReturnsEnvelope(t *testing.T) {
	score := 0.9
	searcher := &searcherFake{resp: &domain.SearchResponse{
		Results: []domain.SearchResult{{
			DocID: "d1", Title: "Labor Law", Snippet: "Article 5", Score: 0.75,
			SourceType: domain.SourceLaw, PublishedDate: "2005-09-27", AuthorityScore: &score,
		}},
		DatasetVersion: "2026.10",
		Backend:        "pgvector",
	}}

	res := postSearch(t, newTestHandler(searcher), `{"query":"annual leave","language":"en","top_k":5,"filters":{"source_type":["law"],"tags":["labor"],"authority_min":0.5}}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if searcher.req.TopK == nil || *searcher.req.TopK != 5 || searcher.req.Filters.AuthorityMin == nil || *searcher.req.Filters.AuthorityMin != 0.5 {
		t.Fatalf("request not decoded: %+v", searcher.req)
	}

	var body map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["backend"] != "pgvector" || body["dataset_version"] != "2026.10" {
		t.Fatalf("unexpected envelope %v", body)
	}
	first := body["results"].([]any)[0].(map[string]any)
	if first["published_date"] != "2005-09-27" || first["source_type"] != "law" {
		t.Fatalf("unexpected result %v", first)
	}
	if _, ok := first["section"]; ok {
		t.Fatalf("expected empty optional fields to be omitted: %v", first)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestSearchErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		want     int
		wantCode string
	}{
		{"invalid input", domain.WrapError(domain.ErrInvalidInput, "validate", errors.New("query too short")), http.StatusBadRequest, "invalid_request"},
		{"temporary", domain.WrapError(domain.ErrTemporary, "embed_remote", errors.New("circuit open")), http.StatusServiceUnavailable, "unavailable"},
		{"embedding", domain.WrapError(domain.ErrEmbedding, "embed_local", errors.New("401")), http.StatusBadGateway, "embedding_failed"},
		{"configuration", domain.WrapError(domain.ErrConfiguration, "embedding dimension", errors.New("mismatch")), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := postSearch(t, newTestHandler(&searcherFake{err: tc.err}), `{"query":"wages"}`)
			if res.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, res.Code)
			}
			var body apiError
			if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body.Code != tc.wantCode || body.RequestID == "" {
				t.Fatalf("unexpected error body %+v", body)
			}
			if tc.want >= http.StatusInternalServerError && strings.Contains(body.Error, "mismatch") {
				t.Fatalf("internal error detail leaked: %q", body.Error)
			}
		})
	}
}

func TestSearchRejectsBadRequests(t *testing.T) {
	handler := newTestHandler(&searcherFake{})

	if res := postSearch(t, handler, `{"query":`); res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid json, got %d", res.Code)
	}

	big := `{"query":"` + strings.Repeat("a", maxSearchBodyBytes) + `"}`
	if res := postSearch(t, handler, big); res.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", res.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/knowledge/search", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}

func TestSearchTopKPresence(t *testing.T) {
	searcher := &searcherFake{resp: &domain.SearchResponse{}}
	handler := newTestHandler(searcher)

	if res := postSearch(t, handler, `{"query":"annual leave"}`); res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if searcher.req.TopK != nil {
		t.Fatalf("expected absent top_k to stay nil, got %d", *searcher.req.TopK)
	}

	postSearch(t, handler, `{"query":"annual leave","top_k":0}`)
	if searcher.req.TopK == nil || *searcher.req.TopK != 0 {
		t.Fatalf("expected explicit top_k 0 to be forwarded, got %v", searcher.req.TopK)
	}
}

func TestSearchExplicitZeroTopKIsBadRequest(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	uc := usecase.NewQueryUseCase(
		domain.DeploymentPolicy{Embeddings: domain.EmbeddingLocal, Retrieval: domain.RetrievalMock},
		retrieval.NewMockProvider("test"), "test", logger,
	)
	handler := NewRouter(uc, metrics.NewHTTPServerMetrics("test"), logger).Handler()

	res := postSearch(t, handler, `{"query":"annual leave","top_k":0}`)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for top_k 0, got %d: %s", res.Code, res.Body.String())
	}
	if res := postSearch(t, handler, `{"query":"annual leave"}`); res.Code != http.StatusOK {
		t.Fatalf("expected 200 without top_k, got %d", res.Code)
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	handler := newTestHandler(&searcherFake{resp: &domain.SearchResponse{Backend: "mock"}})
	_ = postSearch(t, handler, `{"query":"wages"}`)

	for path, want := range map[string]string{
		"/healthz": `"status":"ok"`,
		"/metrics": `knowledge_search_requests_total{backend="mock",service="test",status="ok"} 1`,
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		if res.Code != http.StatusOK || !bytes.Contains(res.Body.Bytes(), []byte(want)) {
			t.Fatalf("%s: unexpected response %d %s", path, res.Code, res.Body.String())
		}
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	res := httptest.NewRecorder()
	newTestHandler(&searcherFake{}).ServeHTTP(res, req)
	if res.Header().Get(requestIDHeader) != "abc-123" {
		t.Fatalf("expected caller request id, got %q", res.Header().Get(requestIDHeader))
	}
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/unknown", nil)
	res := httptest.NewRecorder()
	newTestHandler(&searcherFake{}).ServeHTTP(res, req)
	if res.Code != http.StatusNotFound || !strings.Contains(res.Body.String(), `"code":"not_found"`) {
		t.Fatalf("unexpected response %d %s", res.Code, res.Body.String())
	}
}

func TestAccessLogCarriesSearchOutcome(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	searcher := &searcherFake{resp: &domain.SearchResponse{
		Results: []domain.SearchResult{{DocID: "d1"}, {DocID: "d2"}},
		Backend: "pgvector",
	}}
	handler := NewRouter(searcher, nil, logger).Handler()

	_ = postSearch(t, handler, `{"query":"wages"}`)

	var entry map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(logs.Bytes()), []byte("\n")) {
		var candidate map[string]any
		if err := json.Unmarshal(line, &candidate); err == nil && candidate["msg"] == "http_request" {
			entry = candidate
		}
	}
	if entry == nil {
		t.Fatalf("no http_request log line in %s", logs.String())
	}
	if entry["backend"] != "pgvector" || entry["results"] != float64(2) || entry["status"] != float64(200) {
		t.Fatalf("unexpected access log entry %v", entry)
	}
}
