package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
)

func newEnqueueCommand(rt Runtime) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Ask the worker to run ingestion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			queue, closeFn, err := rt.Queue()
			if err != nil {
				return err
			}
			defer closeFn()
			if err := queue.PublishIngestRequested(cmd.Context(), domain.IngestRequest{Reason: reason}); err != nil {
				return fmt.Errorf("publish ingest request: %w", err)
			}
			cmd.Println("Ingestion request queued.")
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "manual", "reason recorded with the request")
	return cmd
}
