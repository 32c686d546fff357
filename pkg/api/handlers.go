package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/surfview/pkg/models"
	"github.com/Sriram-PR/surfview/pkg/orchestrate"
)

// Renderer is the pipeline behind the HTTP boundary
type Renderer interface {
	RenderURL(ctx context.Context, raw string) models.RenderResult
	OpenExternal(raw string)
	Inflight() []orchestrate.Render
}

// URLRequest is the body of /render and /open
type URLRequest struct {
	URL string `json:"url"`
}

// Handlers contains all HTTP handlers
type Handlers struct {
	renderer Renderer
	log      *logrus.Entry
	version  string
}

// NewHandlers creates a new handler set
func NewHandlers(renderer Renderer, version string, log *logrus.Entry) *Handlers {
	return &Handlers{renderer: renderer, version: version, log: log}
}

// Render handles renderUrl; pipeline failures are still 200 with ok=false in the body
func (h *Handlers) Render(c *gin.Context) {
	var req URLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.Failure("request body must be JSON with a 'url' field"))
		return
	}
	c.JSON(http.StatusOK, h.renderer.RenderURL(c.Request.Context(), req.URL))
}

// Open handles openExternal; it reports nothing about the outcome
func (h *Handlers) Open(c *gin.Context) {
	var req URLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.Failure("request body must be JSON with a 'url' field"))
		return
	}
	h.renderer.OpenExternal(req.URL)
	c.Status(http.StatusNoContent)
}

// Renders lists in-flight renders
func (h *Handlers) Renders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"renders": h.renderer.Inflight()})
}

// Health handles health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"service":  "surfview",
		"version":  h.version,
		"inflight": len(h.renderer.Inflight()),
	})
}
