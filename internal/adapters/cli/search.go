package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
)

type searchFlags struct {
	topK         int
	language     string
	sourceTypes  []string
	tags         []string
	authorityMin float64
	dateFrom     string
	dateTo       string
	json         bool
}

func newSearchCommand(rt Runtime) *cobra.Command {
	var flags searchFlags
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the knowledge index",
		Long: `Runs a semantic search through the same query service as the HTTP API.
Filters narrow results by source type, tags, publication date and authority.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := domain.SearchRequest{
				Query:    args[0],
				Language: domain.Language(flags.language),
				Filters: domain.SearchFilters{
					SourceType: flags.sourceTypes,
					Tags:       flags.tags,
					DateFrom:   flags.dateFrom,
					DateTo:     flags.dateTo,
				},
			}
			if cmd.Flags().Changed("top-k") {
				req.TopK = &flags.topK
			}
			if cmd.Flags().Changed("authority-min") {
				req.Filters.AuthorityMin = &flags.authorityMin
			}
			return runSearch(cmd, rt, req, flags.json)
		},
	}
	cmd.Flags().IntVarP(&flags.topK, "top-k", "k", domain.DefaultTopK, "number of results (1-20)")
	cmd.Flags().StringVarP(&flags.language, "language", "l", "", "query language: ar, en or auto")
	cmd.Flags().StringSliceVar(&flags.sourceTypes, "source-type", nil, "restrict to source types (repeatable)")
	cmd.Flags().StringSliceVar(&flags.tags, "tag", nil, "match documents carrying any of these tags (repeatable)")
	cmd.Flags().Float64Var(&flags.authorityMin, "authority-min", 0.7, "minimum authority score")
	cmd.Flags().StringVar(&flags.dateFrom, "from", "", "earliest publication date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&flags.dateTo, "to", "", "latest publication date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&flags.json, "json", false, "output the response as JSON")
	return cmd
}

func runSearch(cmd *cobra.Command, rt Runtime, req domain.SearchRequest, asJSON bool) error {
	searcher, err := rt.Searcher()
	if err != nil {
		return err
	}
	resp, err := searcher.Search(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if asJSON {
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal response: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(resp.Results) == 0 {
		cmd.Printf("No results found (backend %s, dataset %s).\n", resp.Backend, resp.DatasetVersion)
		return nil
	}
	cmd.Printf("Results from %s (dataset %s):\n\n", resp.Backend, resp.DatasetVersion)
	for i, result := range resp.Results {
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, result.Title, result.Score)
		if result.SourceType != "" {
			cmd.Printf("      Type: %s", result.SourceType)
			if result.PublishedDate != "" {
				cmd.Printf("  Published: %s", result.PublishedDate)
			}
			cmd.Println()
		}
		if result.URL != "" {
			cmd.Printf("      %s\n", result.URL)
		}
		cmd.Printf("      %s\n\n", snippet(result.Snippet, 240))
	}
	return nil
}

func snippet(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
