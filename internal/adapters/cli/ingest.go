package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
)

func newIngestCommand(rt Runtime) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Index the knowledge root now",
		Long: `Walks KNOWLEDGE_ROOT, extracts and chunks every supported file and
(re)writes its chunks and embeddings in the vector store. Refused in
sovereign mode when the embedding backend is remote.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ingestor, err := rt.Ingestor()
			if err != nil {
				return err
			}
			started := time.Now()
			report, err := ingestor.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("ingestion failed: %w", err)
			}
			if asJSON {
				data, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal report: %w", err)
				}
				cmd.Println(string(data))
				return nil
			}
			printReport(cmd, report, time.Since(started))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output the report as JSON")
	return cmd
}

func printReport(cmd *cobra.Command, report *domain.IngestReport, elapsed time.Duration) {
	cmd.Printf("Indexed %d documents, %d chunks in %s\n", report.Documents, report.Chunks, elapsed.Round(time.Millisecond))
	if len(report.SkippedFiles) > 0 {
		cmd.Printf("Skipped files (%d):\n", len(report.SkippedFiles))
		for _, f := range report.SkippedFiles {
			cmd.Printf("  - %s\n", f)
		}
	}
	if len(report.FailedChunks) > 0 {
		cmd.Printf("Failed chunks (%d):\n", len(report.FailedChunks))
		for _, c := range report.FailedChunks {
			cmd.Printf("  - %s\n", c)
		}
	}
}
