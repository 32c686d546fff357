package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// handleRenderURL handles the render_url tool
func (s *Server) handleRenderURL(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := request.GetString("url", "")
	if raw == "" {
		return mcp.NewToolResultError("url parameter is required"), nil
	}

	result := s.cfg.Renderer.RenderURL(ctx, raw)
	if !result.OK {
		return mcp.NewToolResultError(result.Error), nil
	}

	// The image travels as its own content block; the text block carries everything else
	summary := map[string]interface{}{
		"ok":       true,
		"url":      result.URL,
		"title":    result.Title,
		"renderMs": result.RenderMs,
		"links":    result.Links,
	}
	return mcp.NewToolResultImage(formatJSON(summary), result.ImageBase64(), "image/png"), nil
}

// handleOpenExternal handles the open_external tool; the outcome is never reported
func (s *Server) handleOpenExternal(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := request.GetString("url", "")
	if raw == "" {
		return mcp.NewToolResultError("url parameter is required"), nil
	}
	s.cfg.Renderer.OpenExternal(raw)
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"status": "requested"})), nil
}

// handleListRenders handles the list_renders tool
func (s *Server) handleListRenders(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	renders := s.cfg.Renderer.Inflight()
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"renders": renders,
		"total":   len(renders),
	})), nil
}

// handleCancelRender handles the cancel_render tool
func (s *Server) handleCancelRender(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("render_id", "")
	if id == "" {
		return mcp.NewToolResultError("render_id parameter is required"), nil
	}
	if !s.cfg.Renderer.Cancel(id) {
		return mcp.NewToolResultError(fmt.Sprintf("render '%s' not found", id)), nil
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"status":    "cancelled",
		"render_id": id,
	})), nil
}

// formatJSON formats data as an indented JSON string
func formatJSON(data map[string]interface{}) string {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("{\"error\": %q}", err.Error())
	}
	return string(b)
}
