package ports

import (
	"context"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
)

// KnowledgeIngestor is the inbound contract for a batch ingestion run.
type KnowledgeIngestor interface {
	Run(ctx context.Context) (*domain.IngestReport, error)
}

// KnowledgeSearcher is the inbound contract for semantic search.
type KnowledgeSearcher interface {
	Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error)
}
