package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/flockboard/internal/charting"
	"github.com/mamadbah2/flockboard/internal/repository"
	"github.com/mamadbah2/flockboard/internal/service/analysis"
	"github.com/mamadbah2/flockboard/internal/service/flocks"
	"github.com/mamadbah2/flockboard/internal/service/health"
	"github.com/mamadbah2/flockboard/internal/service/inventory"
	"github.com/mamadbah2/flockboard/internal/service/logs"
	"github.com/mamadbah2/flockboard/internal/service/reporting"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, flocks.ErrInvalidFlock),
		errors.Is(err, logs.ErrInvalidLog),
		errors.Is(err, health.ErrInvalidVaccination),
		errors.Is(err, inventory.ErrInvalidItem),
		errors.Is(err, analysis.ErrUnknownKind),
		errors.Is(err, charting.ErrUnknownSeries):
		return http.StatusBadRequest
	case errors.Is(err, logs.ErrDuplicateDay),
		errors.Is(err, flocks.ErrFlockClosed),
		errors.Is(err, health.ErrAlreadyAdministered),
		errors.Is(err, repository.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, inventory.ErrInsufficientStock):
		return http.StatusUnprocessableEntity
	case errors.Is(err, analysis.ErrAnalysisDisabled),
		errors.Is(err, reporting.ErrExportDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, logger *zap.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, logger *zap.Logger, err error) {
	logger.Warn("invalid request", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
