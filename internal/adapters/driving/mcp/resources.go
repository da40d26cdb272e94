package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for sercha-rag resources.
	uriScheme = "sercha-rag://"
)

// documentInfo is the JSON view of a catalogued document.
type documentInfo struct {
	Source     string    `json:"source"`
	Title      string    `json:"title,omitempty"`
	URI        string    `json:"uri"`
	Chunks     int       `json:"chunks"`
	Pages      int       `json:"pages,omitempty"`
	IngestedAt time.Time `json:"ingested_at"`
}

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "stats",
		Name:        "stats",
		Description: "Knowledge base statistics",
		MIMEType:    "application/json",
	}, s.handleStatsResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "documents",
		Name:        "documents",
		Description: "Documents in the knowledge base",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{source}",
		Name:        "document",
		Description: "One catalogued document; {source} is its URL-escaped path or URL",
		MIMEType:    "application/json",
	}, s.handleDocumentResource)
}

// handleStatsResource returns the knowledge base statistics.
func (s *Server) handleStatsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	info, err := s.ports.RAG.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting info: %w", err)
	}

	stats := struct {
		Initialized bool `json:"initialized"`
		domain.KnowledgeBaseStats
	}{info.Initialized, info.KnowledgeBase}
	if stats.Sources == nil {
		stats.Sources = []string{}
	}
	return jsonResult(req.Params.URI, stats)
}

// handleDocumentsResource lists the catalogued documents.
func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	info, err := s.ports.RAG.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting info: %w", err)
	}

	docs := make([]documentInfo, len(info.Documents))
	for i := range info.Documents {
		docs[i] = toDocumentInfo(info.Documents[i])
	}
	return jsonResult(req.Params.URI, docs)
}

// handleDocumentResource returns one catalogued document by source name.
func (s *Server) handleDocumentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	source := extractDocumentSource(req.Params.URI)
	if source == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	info, err := s.ports.RAG.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting info: %w", err)
	}
	for i := range info.Documents {
		if info.Documents[i].Source == source {
			return jsonResult(req.Params.URI, toDocumentInfo(info.Documents[i]))
		}
	}
	return nil, mcp.ResourceNotFoundError(req.Params.URI)
}

func toDocumentInfo(e domain.CatalogEntry) documentInfo {
	return documentInfo{
		Source:     e.Source,
		Title:      e.Title,
		URI:        e.URI,
		Chunks:     e.ChunkCount,
		Pages:      e.Pages,
		IngestedAt: e.IngestedAt,
	}
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractDocumentSource extracts the source from a URI like
// sercha-rag://documents/{source}. The source is path-unescaped.
func extractDocumentSource(uri string) string {
	const prefix = uriScheme + "documents/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	source, err := url.PathUnescape(strings.TrimPrefix(uri, prefix))
	if err != nil {
		return ""
	}
	return source
}
