package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/flockboard/internal/charting"
	"github.com/mamadbah2/flockboard/internal/domain/models"
	"github.com/mamadbah2/flockboard/internal/service/analysis"
	"github.com/mamadbah2/flockboard/internal/service/flocks"
	"github.com/mamadbah2/flockboard/internal/service/logs"
	"github.com/mamadbah2/flockboard/internal/service/reporting"
)

// FlockHandler serves the flock registry, daily logs and their derived views.
type FlockHandler struct {
	flocks    *flocks.Service
	logs      *logs.Service
	analysis  *analysis.Service
	reporting *reporting.Service
	charts    *charting.Generator
	logger    *zap.Logger
}

// NewFlockHandler constructs the HTTP handler adapter.
func NewFlockHandler(flockSvc *flocks.Service, logSvc *logs.Service, analysisSvc *analysis.Service, reportingSvc *reporting.Service, charts *charting.Generator, logger *zap.Logger) *FlockHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FlockHandler{
		flocks:    flockSvc,
		logs:      logSvc,
		analysis:  analysisSvc,
		reporting: reportingSvc,
		charts:    charts,
		logger:    logger,
	}
}

// Create places a new flock.
func (h *FlockHandler) Create(c *gin.Context) {
	var req flocks.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	flock, err := h.flocks.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, flock)
}

// List returns every flock, active ones first.
func (h *FlockHandler) List(c *gin.Context) {
	list, err := h.flocks.List(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Get returns one flock.
func (h *FlockHandler) Get(c *gin.Context) {
	flock, err := h.flocks.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, flock)
}

// Close depopulates a flock.
func (h *FlockHandler) Close(c *gin.Context) {
	flock, err := h.flocks.Close(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, flock)
}

// RecordLog appends a daily log.
func (h *FlockHandler) RecordLog(c *gin.Context) {
	var log models.DailyLog
	if err := c.ShouldBindJSON(&log); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	saved, err := h.logs.Record(c.Request.Context(), c.Param("id"), log)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

// ListLogs returns the enriched series; order=desc gives the table view.
func (h *FlockHandler) ListLogs(c *gin.Context) {
	var newestFirst bool
	switch order := c.DefaultQuery("order", "asc"); order {
	case "asc":
	case "desc":
		newestFirst = true
	default:
		badRequest(c, h.logger, fmt.Errorf("order must be asc or desc, got %q", order))
		return
	}

	enriched, err := h.logs.Enriched(c.Request.Context(), c.Param("id"), newestFirst)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, enriched)
}

// Summary returns the aggregate production metrics.
func (h *FlockHandler) Summary(c *gin.Context) {
	summary, err := h.logs.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Overview returns the flock detail view.
func (h *FlockHandler) Overview(c *gin.Context) {
	flock, overview, err := h.logs.Overview(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flock": flock, "overview": overview})
}

// Chart renders a PNG series. No logs yields 204 so the dashboard shows its placeholder.
func (h *FlockHandler) Chart(c *gin.Context) {
	ctx := c.Request.Context()
	flock, err := h.flocks.Get(ctx, c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	enriched, err := h.logs.Enriched(ctx, flock.ID, false)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	img, err := h.charts.Render(charting.SeriesKind(c.Query("series")), flock.Name, enriched)
	if errors.Is(err, charting.ErrNoData) {
		c.Status(http.StatusNoContent)
		return
	}
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Data(http.StatusOK, "image/png", img)
}

type analysisRequest struct {
	Kind analysis.Kind `json:"kind"`
}

// Analyze generates a narrative analysis of the flock.
func (h *FlockHandler) Analyze(c *gin.Context) {
	var req analysisRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, h.logger, err)
			return
		}
	}

	result, err := h.analysis.Analyze(c.Request.Context(), c.Param("id"), req.Kind)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Export writes the flock history to the configured spreadsheet.
func (h *FlockHandler) Export(c *gin.Context) {
	rows, err := h.reporting.ExportFlock(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}
