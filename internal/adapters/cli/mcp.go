package cli

import (
	"github.com/spf13/cobra"

	mcpadapter "github.com/kirillkom/knowledge-retrieval/internal/adapters/mcp"
)

func newMCPCommand(rt Runtime, version string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the search_knowledge tool over MCP stdio",
		Long: `Starts a Model Context Protocol server on stdin/stdout exposing the
search_knowledge tool. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			searcher, err := rt.Searcher()
			if err != nil {
				return err
			}
			return mcpadapter.NewServer(searcher, version, rt.Logger()).ServeStdio()
		},
	}
}
