package handler

import (
	"net/http"
	"time"

	"billing/internal/middleware"
	"billing/internal/service"
	"billing/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
	auth              *middleware.Authenticator
}

func NewStatisticsHandler(statisticsService service.StatisticsService, auth *middleware.Authenticator) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService, auth: auth}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	statsGroup := router.Group("/api/statistics")
	{
		statsGroup.GET("", h.auth.RequireRole(middleware.RoleAdmin, middleware.RoleManager), h.GetStatistics)
	}
}

// @Summary      Get billing statistics
// @Description  Invoiced, tax, collected and outstanding totals with top customers, bounded by time
// @Tags         statistics
// @Produce      json
// @Param        start_date query string false "Start Date (RFC3339, default: first day of the month)"
// @Param        end_date   query string false "End Date (RFC3339, default: now)"
// @Success      200 {object} response.Response{data=model.BillingStatistics}
// @Failure      400 {object} response.Response "Invalid date format"
// @Failure      401 {object} response.Response "Unauthorized"
// @Security     BearerAuth
// @Router       /api/statistics [get]
func (h *StatisticsHandler) GetStatistics(c *gin.Context) {
	startDateStr := c.Query("start_date")
	endDateStr := c.Query("end_date")

	var startDate, endDate time.Time
	var err error

	// Default to current month if no dates are provided
	now := time.Now()
	if startDateStr == "" {
		startDate = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	} else {
		startDate, err = time.Parse(time.RFC3339, startDateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.FieldError(http.StatusBadRequest, "start_date", "invalid start_date format, expected RFC3339"))
			return
		}
	}

	if endDateStr == "" {
		endDate = now
	} else {
		endDate, err = time.Parse(time.RFC3339, endDateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.FieldError(http.StatusBadRequest, "end_date", "invalid end_date format, expected RFC3339"))
			return
		}
	}

	stats, err := h.statisticsService.GetStatistics(c.Request.Context(), startDate, endDate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}
