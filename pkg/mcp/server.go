package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/surfview/pkg/models"
	"github.com/Sriram-PR/surfview/pkg/orchestrate"
)

const serverName = "surfview"

// Renderer is the pipeline the tools drive
type Renderer interface {
	RenderURL(ctx context.Context, raw string) models.RenderResult
	OpenExternal(raw string)
	Inflight() []orchestrate.Render
	Cancel(id string) bool
	Shutdown()
}

// ServerConfig holds configuration for the MCP server
type ServerConfig struct {
	Renderer  Renderer
	Version   string
	Transport string // "stdio" or "sse"
	Port      int
	Logger    *logrus.Logger
}

// Server exposes renderUrl and openExternal as MCP tools
type Server struct {
	mcpServer *server.MCPServer
	cfg       *ServerConfig
	log       *logrus.Entry
}

// NewServer creates a new MCP server instance
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg.Renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	mcpServer := server.NewMCPServer(
		serverName,
		cfg.Version,
		server.WithLogging(),
	)

	s := &Server{
		mcpServer: mcpServer,
		cfg:       cfg,
		log:       cfg.Logger.WithField("component", "mcp"),
	}
	s.registerTools()

	return s, nil
}

func (s *Server) registerTools() {
	renderTool := mcp.NewTool("render_url",
		mcp.WithDescription("Render a web page in an isolated, script-free browser session and return a full-page screenshot plus its classified links"),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Address to render; a bare host such as 'example.com' is treated as https"),
		),
	)
	s.mcpServer.AddTool(renderTool, s.handleRenderURL)

	openTool := mcp.NewTool("open_external",
		mcp.WithDescription("Open a URL with the operating system's default handler. Unsafe input is ignored."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Address to open, typically a link of type 'download'"),
		),
	)
	s.mcpServer.AddTool(openTool, s.handleOpenExternal)

	listTool := mcp.NewTool("list_renders",
		mcp.WithDescription("List renders currently in progress"),
	)
	s.mcpServer.AddTool(listTool, s.handleListRenders)

	cancelTool := mcp.NewTool("cancel_render",
		mcp.WithDescription("Abort an in-progress render; its browser session is torn down"),
		mcp.WithString("render_id",
			mcp.Required(),
			mcp.Description("ID returned by list_renders"),
		),
	)
	s.mcpServer.AddTool(cancelTool, s.handleCancelRender)

	s.log.Infof("Registered %d MCP tools", 4)
}

// Run starts the MCP server with the configured transport
func (s *Server) Run() error {
	switch s.cfg.Transport {
	case "stdio":
		s.log.Info("Starting MCP server with stdio transport")
		return server.ServeStdio(s.mcpServer)
	case "sse":
		addr := fmt.Sprintf(":%d", s.cfg.Port)
		s.log.Infof("Starting MCP server with SSE transport on %s", addr)
		return server.NewSSEServer(s.mcpServer).Start(addr)
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio, sse)", s.cfg.Transport)
	}
}

// Shutdown aborts in-flight renders
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down MCP server...")
	s.cfg.Renderer.Shutdown()
	return nil
}
