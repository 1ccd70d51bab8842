// Package cli implements the knowledgectl command tree.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kirillkom/knowledge-retrieval/internal/core/ports"
)

// Runtime builds the services a command needs on first use, so that
// `search` against the mock backend never touches NATS or Postgres.
type Runtime interface {
	Searcher() (ports.KnowledgeSearcher, error)
	Ingestor() (ports.KnowledgeIngestor, error)
	Queue() (ports.IngestQueue, func(), error)
	Logger() *slog.Logger
}

func NewRootCommand(rt Runtime, version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "knowledgectl",
		Short:         "Operate the knowledge retrieval index",
		Long:          `knowledgectl ingests the configured knowledge root, queues ingestion runs for the worker and searches the index.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newSearchCommand(rt),
		newIngestCommand(rt),
		newEnqueueCommand(rt),
		newMCPCommand(rt, version),
	)
	return root
}
