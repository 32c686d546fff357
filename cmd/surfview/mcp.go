package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Sriram-PR/surfview/pkg/mcp"
)

// runMcpServer handles the mcp-server subcommand
func runMcpServer(args []string) {
	fs := flag.NewFlagSet("mcp-server", flag.ExitOnError)
	configFile := fs.String("config", defaultConfigFile, "Path to config file")
	transport := fs.String("transport", "stdio", "Transport type (stdio, sse)")
	port := fs.Int("port", 8080, "HTTP port (for sse transport)")
	logLevel := fs.String("loglevel", "", "Log level (debug, info, warn, error); overrides log_level")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: surfview mcp-server [options]

Start an MCP (Model Context Protocol) server for AI tool integration.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Start with stdio transport
  surfview mcp-server

  # Start with SSE transport on port 8080
  surfview mcp-server -transport sse -port 8080

Available MCP Tools:
  render_url      Render a page to a screenshot plus classified links
  open_external   Open a URL with the system's default handler
  list_renders    List renders in progress
  cancel_render   Abort a render in progress
`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	exitCode := doMcpServer(*configFile, *transport, *port, *logLevel, os.Stderr)
	os.Exit(exitCode)
}

// doMcpServer is the testable implementation of the MCP server
func doMcpServer(configPath, transport string, port int, logLevel string, stderr io.Writer) int {
	if transport != "stdio" && transport != "sse" {
		fmt.Fprintf(stderr, "Unknown transport: %s (supported: stdio, sse)\n", transport)
		return 1
	}

	appCfg := loadAndValidateConfig(configPath, stderr)
	if appCfg == nil {
		return 1
	}

	// MCP protocol uses stdout, logs go to stderr
	log := setupLogger(logLevel, appCfg.LogLevel, stderr)

	orch, err := buildOrchestrator(appCfg, nil, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	server, err := mcp.NewServer(&mcp.ServerConfig{
		Renderer:  orch,
		Version:   version,
		Transport: transport,
		Port:      port,
		Logger:    log,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error creating MCP server: %v\n", err)
		return 1
	}

	log.Infof("Starting MCP server (transport: %s)", transport)

	if err := server.Run(); err != nil {
		fmt.Fprintf(stderr, "MCP server error: %v\n", err)
		return 1
	}
	return 0
}
