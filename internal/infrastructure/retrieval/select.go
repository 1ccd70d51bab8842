// Package retrieval holds the search providers behind the query service.
package retrieval

import (
	"log/slog"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
	"github.com/kirillkom/knowledge-retrieval/internal/core/ports"
)

type Options struct {
	DatasetVersion string
	Embedder       ports.Embedder
	Connector      ports.KnowledgeStoreConnector
	Logger         *slog.Logger
}

// Select resolves the provider once at startup. Anything but pgvector is mock.
func Select(policy domain.DeploymentPolicy, opts Options) ports.RetrievalProvider {
	if policy.Retrieval == domain.RetrievalPGVector {
		return NewPGVectorProvider(policy, opts.Embedder, opts.Connector, opts.DatasetVersion, opts.Logger)
	}
	return NewMockProvider(opts.DatasetVersion)
}
