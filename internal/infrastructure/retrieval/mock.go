package retrieval

import (
	"context"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
)

// MockScore is the fixed similarity reported by the canned provider.
const MockScore = 0.86

// MockProvider answers every query with one canned result echoing the query.
type MockProvider struct {
	datasetVersion string
}

func NewMockProvider(datasetVersion string) *MockProvider {
	return &MockProvider{datasetVersion: datasetVersion}
}

func (p *MockProvider) Search(_ context.Context, query domain.SearchQuery) (*domain.SearchResponse, error) {
	authority := 1.0
	return &domain.SearchResponse{
		Results: []domain.SearchResult{{
			DocID:          "mock-doc-0001",
			Title:          "Mock knowledge result",
			Snippet:        "Mock result for: " + query.Text,
			Score:          MockScore,
			SourceType:     domain.SourceTypeDocument,
			AuthorityScore: &authority,
		}},
		DatasetVersion: p.datasetVersion,
		Backend:        string(domain.RetrievalMock),
	}, nil
}

func (p *MockProvider) Backend() domain.RetrievalBackend {
	return domain.RetrievalMock
}
