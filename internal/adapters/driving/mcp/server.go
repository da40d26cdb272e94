package mcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Version is the MCP server version.
const Version = "0.1.0"

const (
	shutdownTimeout    = 5 * time.Second
	httpSessionTimeout = 30 * time.Minute
)

const instructions = `This server answers questions from a local document knowledge base.
Use "ask" for a grounded answer with its sources and confidence.
Use "search" to inspect the raw passages that match a query.
The sercha-rag://stats and sercha-rag://documents resources describe what has been ingested.`

// Server exposes the knowledge base over MCP.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer registers the ask and search tools and the knowledge base
// resources against ports.RAG.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	impl := &mcp.Implementation{
		Name:    "sercha-rag",
		Version: Version,
	}
	opts := &mcp.ServerOptions{
		Instructions: instructions,
		InitializedHandler: func(context.Context, *mcp.InitializedRequest) {
			logger.Debug("MCP client session initialised")
		},
	}

	s := &Server{
		ports:  ports,
		server: mcp.NewServer(impl, opts),
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run serves a single client over stdio until ctx is cancelled
// or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	logger.Debug("Serving MCP over stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the streamable HTTP transport on addr until ctx is
// cancelled. Idle sessions are dropped after httpSessionTimeout.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, &mcp.StreamableHTTPOptions{SessionTimeout: httpSessionTimeout})

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	logger.Debug("Serving MCP over HTTP on %s", listener.Addr())

	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		httpServer.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	if err := httpServer.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
