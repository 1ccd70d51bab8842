package ports

import (
	"context"
	"io"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
)

// SourceStorage lists and reads source files under the knowledge root.
type SourceStorage interface {
	Walk(ctx context.Context) ([]domain.SourceFile, error)
	Open(ctx context.Context, file domain.SourceFile) (io.ReadCloser, error)
}

// SourceCatalog resolves per-source ingestion metadata.
type SourceCatalog interface {
	Lookup(sourceID string) (domain.SourceConfig, bool)
}

// TextExtractor pulls raw text out of a source file.
type TextExtractor interface {
	Extract(ctx context.Context, file domain.SourceFile) (string, error)
}

// Chunker splits text into overlapping windows.
type Chunker interface {
	Split(text string) []domain.TextWindow
}

// Embedder converts text to a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	Backend() domain.EmbeddingBackend
}

// KnowledgeStore is a scoped connection to the vector index. Callers must Close it.
type KnowledgeStore interface {
	UpsertDocument(ctx context.Context, doc domain.SourceDocument) error
	DeleteChunks(ctx context.Context, docID string) (int64, error)
	UpsertChunk(ctx context.Context, chunk domain.DocumentChunk) error
	SearchChunks(ctx context.Context, queryVector []float32, query domain.SearchQuery) ([]domain.ChunkMatch, error)
	Close() error
}

// KnowledgeStoreConnector opens a fresh KnowledgeStore per ingestion run or query.
type KnowledgeStoreConnector interface {
	Open(ctx context.Context) (KnowledgeStore, error)
}

// RetrievalProvider answers similarity searches.
type RetrievalProvider interface {
	Search(ctx context.Context, query domain.SearchQuery) (*domain.SearchResponse, error)
	Backend() domain.RetrievalBackend
}

// IngestQueue publishes/consumes ingestion run requests.
type IngestQueue interface {
	PublishIngestRequested(ctx context.Context, req domain.IngestRequest) error
	SubscribeIngestRequested(ctx context.Context, handler func(context.Context, domain.IngestRequest) error) error
}

// IngestRecorder observes pipeline progress.
type IngestRecorder interface {
	RecordDocument(status string)
	RecordChunk(status string)
}

// Fingerprinter derives the stable document id and the chunk content hash.
type Fingerprinter interface {
	DocID(relativePath string) string
	ContentHash(text string) string
}
