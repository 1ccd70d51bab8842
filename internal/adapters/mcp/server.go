// Package mcpadapter exposes the knowledge search to MCP clients over stdio.
package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
	"github.com/kirillkom/knowledge-retrieval/internal/core/ports"
)

const (
	serverName     = "knowledge-retrieval"
	SearchToolName = "search_knowledge"
)

type Server struct {
	searcher ports.KnowledgeSearcher
	logger   *slog.Logger
	mcp      *server.MCPServer
}

func NewServer(searcher ports.KnowledgeSearcher, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		searcher: searcher,
		logger:   logger,
		mcp:      server.NewMCPServer(serverName, version, server.WithToolCapabilities(false)),
	}
	s.mcp.AddTool(searchTool(), s.handleSearch)
	return s
}

// ServeStdio blocks until stdin closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func searchTool() mcp.Tool {
	return mcp.NewTool(SearchToolName,
		mcp.WithDescription("Semantic search over the indexed legal and regulatory knowledge base."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Natural-language question, 2 to 2000 characters.")),
		mcp.WithString("language", mcp.Description("ar, en or auto."), mcp.Enum("ar", "en", "auto")),
		mcp.WithNumber("top_k", mcp.Description("Number of results, 1 to 20. Defaults to 8.")),
		mcp.WithNumber("authority_min", mcp.Description("Minimum source authority, 0 to 1. Defaults to 0.7.")),
		mcp.WithArray("source_type", mcp.Description("Restrict to these source types."), mcp.WithStringItems()),
		mcp.WithArray("tags", mcp.Description("Match documents carrying any of these tags."), mcp.WithStringItems()),
		mcp.WithString("date_from", mcp.Description("Earliest publication date, YYYY-MM-DD.")),
		mcp.WithString("date_to", mcp.Description("Latest publication date, YYYY-MM-DD.")),
	)
}

func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := domain.SearchRequest{
		Query:    query,
		Language: domain.Language(request.GetString("language", "")),
		Filters: domain.SearchFilters{
			SourceType: request.GetStringSlice("source_type", nil),
			Tags:       request.GetStringSlice("tags", nil),
			DateFrom:   request.GetString("date_from", ""),
			DateTo:     request.GetString("date_to", ""),
		},
	}
	args := request.GetArguments()
	if _, ok := args["top_k"]; ok {
		v, err := request.RequireFloat("top_k")
		if err != nil || v != math.Trunc(v) {
			return mcp.NewToolResultError("top_k must be an integer"), nil
		}
		k := int(v)
		req.TopK = &k
	}
	if _, ok := args["authority_min"]; ok {
		v, err := request.RequireFloat("authority_min")
		if err != nil {
			return mcp.NewToolResultError("authority_min must be a number"), nil
		}
		req.Filters.AuthorityMin = &v
	}

	resp, err := s.searcher.Search(ctx, req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		s.logger.Error("mcp_search_failed", "error", err)
		return mcp.NewToolResultError("search failed: " + err.Error()), nil
	}

	body, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(body)), nil
}
