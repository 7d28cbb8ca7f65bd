package server

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/ironsheep/image-analyzer-mcp/internal/analyzer"
	"github.com/ironsheep/image-analyzer-mcp/internal/config"
)

// Name is the server name reported during the MCP handshake.
const Name = "image-analyzer-mcp"

// Server exposes the analyze_images tool over MCP.
type Server struct {
	mcp      *server.MCPServer
	analyzer *analyzer.Analyzer
	logger   zerolog.Logger
}

// New creates a server for cfg.
//
// Parameters:
//   - cfg: server configuration, shared read-only by every tool call.
//   - version: reported to clients during initialization.
//   - logger: destination for diagnostics. Never stdout, which carries the protocol.
//   - opts: passed through to the analyzer.
//
// Returns an error if the tool definition cannot be built.
func New(cfg config.Config, version string, logger zerolog.Logger, opts ...analyzer.Option) (*Server, error) {
	s := &Server{
		mcp: server.NewMCPServer(Name, version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
		analyzer: analyzer.New(cfg, logger, opts...),
		logger:   logger,
	}

	tool, err := AnalyzeImagesTool(cfg.DefaultModel)
	if err != nil {
		return nil, err
	}
	s.mcp.AddTool(tool, s.handleAnalyzeImages)

	return s, nil
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// Run serves MCP over in and out until ctx is canceled or in is closed.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(log.New(s.logger, "", 0))

	s.logger.Info().Msg("MCP server listening on stdio")
	if err := stdio.Listen(ctx, in, out); err != nil && ctx.Err() == nil {
		return fmt.Errorf("stdio server error: %w", err)
	}
	return nil
}
