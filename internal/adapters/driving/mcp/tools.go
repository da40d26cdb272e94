package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// defaultSearchLimit applies when the caller gives no limit.
const defaultSearchLimit = 5

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the question or keywords to find passages for"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of passages to return (default 5)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single ranked passage.
type SearchResultOutput struct {
	Source     string  `json:"source"`
	Title      string  `json:"title,omitempty"`
	Similarity float64 `json:"similarity"`
	Fallback   bool    `json:"fallback,omitempty"`
	Content    string  `json:"content"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Query string `json:"query" jsonschema:"the question to answer from the documents"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer        string   `json:"answer"`
	Mode          string   `json:"mode"`
	Confidence    string   `json:"confidence"`
	LowConfidence bool     `json:"low_confidence,omitempty"`
	Sources       []string `json:"sources"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using the indexed documents as context",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Find the document passages most similar to a query",
	}, s.handleSearch)
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := s.ports.RAG.Ask(ctx, input.Query)
	if err != nil {
		return nil, AskOutput{}, err
	}

	sources := answer.Sources
	if sources == nil {
		sources = []string{}
	}
	return nil, AskOutput{
		Answer:        answer.Text,
		Mode:          answer.Mode.String(),
		Confidence:    answer.Confidence.String(),
		LowConfidence: answer.LowConfidence,
		Sources:       sources,
	}, nil
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	results, err := s.ports.RAG.Search(ctx, input.Query, limit)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}
	for i := range results {
		output.Results[i] = SearchResultOutput{
			Source:     results[i].Chunk.Source,
			Title:      results[i].Chunk.Title,
			Similarity: results[i].Similarity,
			Fallback:   results[i].Fallback,
			Content:    results[i].Chunk.Text,
		}
	}

	return nil, output, nil
}
