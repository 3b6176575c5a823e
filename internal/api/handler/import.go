package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/recipeclip/internal/api/middleware"
	"github.com/timmy/recipeclip/internal/logger"
	"github.com/timmy/recipeclip/internal/service"
	"github.com/timmy/recipeclip/internal/source"
)

// SourceResolver returns the import source registered under name.
type SourceResolver func(name string) (source.Source, bool)

// ImportHandler runs bulk imports on behalf of an admin. One import runs
// at a time.
type ImportHandler struct {
	importer *service.ImportService
	resolve  SourceResolver

	mu            sync.RWMutex
	isRunning     bool
	lastStats     *service.ImportStats
	lastRunTime   time.Time
	lastRunStatus string
}

// NewImportHandler creates a new import handler.
// Parameters:
//   - importer: import service instance.
//   - resolve: looks up sources by name.
// Returns:
//   - *ImportHandler: initialized handler.
func NewImportHandler(importer *service.ImportService, resolve SourceResolver) *ImportHandler {
	return &ImportHandler{importer: importer, resolve: resolve}
}

// ImportRequest represents the import API request.
type ImportRequest struct {
	Source string `json:"source" binding:"required"`
	Limit  int    `json:"limit" binding:"min=0,max=10000"`
	Force  bool   `json:"force"`
}

// ImportStatusResponse represents the import status.
type ImportStatusResponse struct {
	IsRunning     bool                 `json:"is_running"`
	LastRunTime   string               `json:"last_run_time,omitempty"`
	LastRunStatus string               `json:"last_run_status,omitempty"`
	LastStats     *service.ImportStats `json:"last_stats,omitempty"`
}

// TriggerImport handles POST /api/v1/admin/import. The import runs to
// completion even if the client disconnects.
func (h *ImportHandler) TriggerImport(c *gin.Context) {
	ctx := c.Request.Context()

	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	src, ok := h.resolve(req.Source)
	if !ok {
		logger.CtxWarn(ctx, "Unknown import source requested: source=%s", req.Source)
		badRequest(c, "Unknown source: "+req.Source)
		return
	}

	h.mu.Lock()
	if h.isRunning {
		h.mu.Unlock()
		c.JSON(http.StatusConflict, gin.H{"error": "Import is already running"})
		return
	}
	h.isRunning = true
	h.mu.Unlock()

	actor, _ := middleware.Actor(c)
	stats, err := h.importer.ImportFromSource(context.WithoutCancel(ctx), src, service.ImportOptions{
		OwnerID: actor.UserID,
		Limit:   req.Limit,
		Force:   req.Force,
	})

	h.mu.Lock()
	h.isRunning = false
	h.lastStats = stats
	h.lastRunTime = time.Now()
	h.lastRunStatus = "success"
	if err != nil {
		h.lastRunStatus = "failed: " + err.Error()
	}
	h.mu.Unlock()

	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Import completed",
		"stats":   stats,
	})
}

// Status handles GET /api/v1/admin/import/status.
func (h *ImportHandler) Status(c *gin.Context) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	resp := ImportStatusResponse{
		IsRunning:     h.isRunning,
		LastRunStatus: h.lastRunStatus,
		LastStats:     h.lastStats,
	}
	if !h.lastRunTime.IsZero() {
		resp.LastRunTime = h.lastRunTime.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}
