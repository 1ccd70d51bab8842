package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
	"github.com/kirillkom/knowledge-retrieval/internal/core/ports"
)

// PGVectorProvider embeds the query and runs a filtered nearest-neighbour
// search over a freshly opened knowledge store.
type PGVectorProvider struct {
	policy         domain.DeploymentPolicy
	embedder       ports.Embedder
	connector      ports.KnowledgeStoreConnector
	datasetVersion string
	logger         *slog.Logger
}

func NewPGVectorProvider(
	policy domain.DeploymentPolicy,
	embedder ports.Embedder,
	connector ports.KnowledgeStoreConnector,
	datasetVersion string,
	logger *slog.Logger,
) *PGVectorProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &PGVectorProvider{
		policy:         policy,
		embedder:       embedder,
		connector:      connector,
		datasetVersion: datasetVersion,
		logger:         logger,
	}
}

func (p *PGVectorProvider) Search(ctx context.Context, query domain.SearchQuery) (*domain.SearchResponse, error) {
	if err := p.policy.CheckEmbeddings(); err != nil {
		return nil, err
	}
	if p.embedder == nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "pgvector search", errors.New("no embedding provider configured"))
	}

	vector, err := p.embedder.Embed(ctx, query.Text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	store, err := p.connector.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open knowledge store: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			p.logger.Warn("knowledge_store_close_failed", "error", cerr)
		}
	}()

	matches, err := store.SearchChunks(ctx, vector, query)
	if err != nil {
		return nil, err
	}

	return &domain.SearchResponse{
		Results:        rankMatches(matches, query.TopK),
		DatasetVersion: p.datasetVersion,
		Backend:        string(domain.RetrievalPGVector),
	}, nil
}

func (p *PGVectorProvider) Backend() domain.RetrievalBackend {
	return domain.RetrievalPGVector
}

// rankMatches orders by ascending distance (stable, no tie-breaker), keeps
// at most topK and converts distances to scores.
func rankMatches(matches []domain.ChunkMatch, topK int) []domain.SearchResult {
	ordered := make([]domain.ChunkMatch, len(matches))
	copy(ordered, matches)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Distance < ordered[j].Distance
	})
	if topK > 0 && len(ordered) > topK {
		ordered = ordered[:topK]
	}

	results := make([]domain.SearchResult, 0, len(ordered))
	for _, m := range ordered {
		authority := m.Document.AuthorityScore
		result := domain.SearchResult{
			DocID:          m.Document.DocID,
			Title:          m.Document.Title,
			Section:        m.Chunk.Section,
			Article:        m.Chunk.Article,
			PageStart:      m.Chunk.PageStart,
			PageEnd:        m.Chunk.PageEnd,
			Snippet:        m.Chunk.Snippet,
			URL:            m.Document.URL,
			Score:          Score(m.Distance),
			Hash:           m.Chunk.Hash,
			SourceType:     m.Document.SourceType,
			Tags:           m.Document.Tags,
			AuthorityScore: &authority,
		}
		if result.DocID == "" {
			result.DocID = m.Chunk.DocID
		}
		if m.Document.PublishedDate != nil {
			result.PublishedDate = m.Document.PublishedDate.Format(domain.DateLayout)
		}
		results = append(results, result)
	}
	return results
}

// Score maps a cosine distance in [0,2] to a similarity in [0,1].
func Score(distance float64) float64 {
	score := 1 - distance
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
