package handler

import (
	"context"
	"errors"
	"net/http"

	"realty/internal/model"
	"realty/internal/service"

	"github.com/gin-gonic/gin"
)

// IndexBuilder maintains the listing vector index
type IndexBuilder interface {
	Build(ctx context.Context) (model.IndexBuildReport, error)
	Count(ctx context.Context) (int, error)
}

// IndexHandler handles vector index HTTP requests
type IndexHandler struct {
	builder IndexBuilder
}

// NewIndexHandler creates a new index handler
func NewIndexHandler(builder IndexBuilder) *IndexHandler {
	return &IndexHandler{builder: builder}
}

// Build handles POST /api/v1/index/build
func (h *IndexHandler) Build(c *gin.Context) {
	report, err := h.builder.Build(c.Request.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrAIDisabled) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": "Index build failed: " + err.Error(), "report": report})
		return
	}
	c.JSON(http.StatusOK, report)
}

// Status handles GET /api/v1/index
func (h *IndexHandler) Status(c *gin.Context) {
	count, err := h.builder.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count documents: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": count})
}
