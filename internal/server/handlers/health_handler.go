package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/flockboard/internal/domain/models"
	"github.com/mamadbah2/flockboard/internal/service/health"
)

// HealthHandler serves vaccination scheduling and the calendar.
type HealthHandler struct {
	svc     *health.Service
	program models.VaccinationProgram
	logger  *zap.Logger
	now     func() time.Time
}

// NewHealthHandler constructs the handler. The program is applied when a request carries none.
func NewHealthHandler(svc *health.Service, program models.VaccinationProgram, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{svc: svc, program: program, logger: logger, now: time.Now}
}

// List returns a flock's vaccinations with status.
func (h *HealthHandler) List(c *gin.Context) {
	views, err := h.svc.ListForFlock(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// Schedule plans one vaccination.
func (h *HealthHandler) Schedule(c *gin.Context) {
	var req health.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	v, err := h.svc.Schedule(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

// ApplyProgram schedules a vaccination program, the configured one by default.
func (h *HealthHandler) ApplyProgram(c *gin.Context) {
	program := h.program
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&program); err != nil {
			badRequest(c, h.logger, err)
			return
		}
	}

	created, err := h.svc.ApplyProgram(c.Request.Context(), c.Param("id"), program)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

type administerRequest struct {
	Date string `json:"date"`
}

// Administer marks a vaccination as given, today unless a date is sent.
func (h *HealthHandler) Administer(c *gin.Context) {
	var req administerRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, h.logger, err)
			return
		}
	}

	at := h.now()
	if req.Date != "" {
		parsed, err := time.Parse(models.DateLayout, req.Date)
		if err != nil {
			badRequest(c, h.logger, fmt.Errorf("date must be YYYY-MM-DD"))
			return
		}
		at = parsed
	}

	v, err := h.svc.Administer(c.Request.Context(), c.Param("id"), at)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// Calendar returns the month grid, the current month by default.
func (h *HealthHandler) Calendar(c *gin.Context) {
	now := h.now()
	year, month := now.Year(), int(now.Month())

	if raw := c.Query("year"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, h.logger, fmt.Errorf("year must be a number"))
			return
		}
		year = v
	}
	if raw := c.Query("month"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, h.logger, fmt.Errorf("month must be a number"))
			return
		}
		month = v
	}

	cal, err := h.svc.Calendar(c.Request.Context(), year, time.Month(month))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cal)
}
